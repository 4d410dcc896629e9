package track

import (
	"sync"

	"github.com/osawyer/domscope/inspect/capture"
)

// Interactions is a bounded log of user interactions reported through the
// message surface. The aggregator reads summaries; it never sees the raw
// log.
type Interactions struct {
	mu     sync.Mutex
	total  int
	recent []capture.Interaction
	cap    int
}

// NewInteractions creates a recorder retaining at most keep events
// (default 100).
func NewInteractions(keep int) *Interactions {
	if keep <= 0 {
		keep = 100
	}
	return &Interactions{cap: keep}
}

// Record appends one interaction, trimming the retained log.
func (r *Interactions) Record(iv capture.Interaction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.total++
	r.recent = append(r.recent, iv)
	if len(r.recent) > r.cap {
		r.recent = r.recent[len(r.recent)-r.cap:]
	}
}

// Summary returns the running total plus at most max recent interactions.
func (r *Interactions) Summary(max int) capture.InteractionSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	recent := r.recent
	if max > 0 && len(recent) > max {
		recent = recent[len(recent)-max:]
	}
	return capture.InteractionSummary{
		Total:  r.total,
		Recent: append([]capture.Interaction(nil), recent...),
	}
}
