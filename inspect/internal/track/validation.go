package track

import (
	"sync"

	"github.com/osawyer/domscope/inspect/capture"
)

// Validations is a bounded log of form-validation outcomes.
type Validations struct {
	mu       sync.Mutex
	total    int
	failures int
	recent   []capture.Validation
	cap      int
}

// NewValidations creates a recorder retaining at most keep events
// (default 100).
func NewValidations(keep int) *Validations {
	if keep <= 0 {
		keep = 100
	}
	return &Validations{cap: keep}
}

// Record appends one validation outcome.
func (r *Validations) Record(v capture.Validation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.total++
	if !v.Valid {
		r.failures++
	}
	r.recent = append(r.recent, v)
	if len(r.recent) > r.cap {
		r.recent = r.recent[len(r.recent)-r.cap:]
	}
}

// Summary returns totals plus at most max recent outcomes.
func (r *Validations) Summary(max int) capture.ValidationSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	recent := r.recent
	if max > 0 && len(recent) > max {
		recent = recent[len(recent)-max:]
	}
	return capture.ValidationSummary{
		Total:    r.total,
		Failures: r.failures,
		Recent:   append([]capture.Validation(nil), recent...),
	}
}
