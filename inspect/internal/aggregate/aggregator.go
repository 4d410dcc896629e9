// Package aggregate merges DOM, interaction, validation, and
// conditional-rendering state into one size-bounded context per tick.
package aggregate

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/osawyer/domscope/dom"
	"github.com/osawyer/domscope/extract"
	"github.com/osawyer/domscope/inspect/capture"
	"github.com/osawyer/domscope/inspect/internal/config"
	"github.com/osawyer/domscope/inspect/internal/pattern"
	"github.com/osawyer/domscope/inspect/internal/sink"
	"github.com/osawyer/domscope/inspect/internal/track"
)

// changeSampleSize is how many leading elements feed the change-detection
// hash. A sampling heuristic: changes past the prefix do not flip
// HasChanged but still appear in the new snapshot.
const changeSampleSize = 10

// Page identifies the page whose context is being aggregated.
type Page struct {
	URL    string
	ChatID string
}

// Aggregator runs the periodic capture loop.
type Aggregator struct {
	cfg     config.AggregationConfig
	extCfg  config.ExtractionConfig
	arena   *dom.Arena
	cond    *track.Conditional
	inter   *track.Interactions
	valid   *track.Validations
	out     sink.Sink
	logger  *slog.Logger
	page    Page
	seq     atomic.Uint64
	running atomic.Bool

	mu         sync.Mutex
	history    []capture.Context
	prevCount  int
	prevSample string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates an Aggregator.
func New(cfg config.AggregationConfig, extCfg config.ExtractionConfig, a *dom.Arena,
	cond *track.Conditional, inter *track.Interactions, valid *track.Validations,
	out sink.Sink, page Page, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		cfg:    cfg,
		extCfg: extCfg,
		arena:  a,
		cond:   cond,
		inter:  inter,
		valid:  valid,
		out:    out,
		page:   page,
		logger: logger,
	}
}

// Start begins the capture loop: one immediate capture, then one per
// interval until Stop.
func (g *Aggregator) Start(ctx context.Context) {
	if !g.running.CompareAndSwap(false, true) {
		return
	}
	ctx, g.cancel = context.WithCancel(ctx)

	if _, err := g.Capture(ctx); err != nil {
		g.logger.Error("aggregate: initial capture failed", "error", err)
	}

	g.wg.Add(1)
	go g.loop(ctx)
}

// Stop halts the loop and performs one final capture.
func (g *Aggregator) Stop() {
	if !g.running.CompareAndSwap(true, false) {
		return
	}
	g.cancel()
	g.wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := g.Capture(ctx); err != nil {
		g.logger.Error("aggregate: final capture failed", "error", err)
	}
}

func (g *Aggregator) loop(ctx context.Context) {
	defer g.wg.Done()
	ticker := time.NewTicker(g.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := g.Capture(ctx); err != nil {
				g.logger.Error("aggregate: capture failed", "error", err)
			}
		}
	}
}

// Capture builds one aggregated context, truncates it to budget, records
// it in history, and emits it to the sink. Safe to call from outside the
// loop; concurrent calls serialise on the history lock only while
// mutating shared state.
func (g *Aggregator) Capture(ctx context.Context) (capture.Context, error) {
	now := time.Now()

	domState := g.domState()
	detected := pattern.Detect(g.arena, g.emitEvent(ctx))
	condSummary := g.cond.Summary(g.cfg.MaxEvents)
	condSummary.Patterns = pattern.Counts(detected)

	vp := g.arena.Viewport()
	c := capture.Context{
		ID:                   uuid.Must(uuid.NewV7()).String(),
		Seq:                  g.seq.Add(1),
		Timestamp:            now.UnixMilli(),
		URL:                  g.page.URL,
		ChatID:               g.page.ChatID,
		Title:                g.title(),
		Viewport:             capture.Box{Width: vp.Width, Height: vp.Height},
		DOMState:             domState,
		Interactions:         g.inter.Summary(g.cfg.RecentInteractions),
		Validations:          g.valid.Summary(g.cfg.RecentValidations),
		ConditionalRendering: condSummary,
	}
	c.LLMSummary = buildSummary(g.arena, &c, detected)

	if Truncate(&c, g.cfg.MaxContextSize) {
		g.logger.Debug("aggregate: context truncated",
			"seq", c.Seq, "size", capture.SerializedLen(&c))
	}

	g.mu.Lock()
	g.history = append(g.history, c)
	if len(g.history) > g.cfg.HistoryLimit {
		g.history = g.history[len(g.history)-g.cfg.HistoryTrim:]
	}
	g.mu.Unlock()

	if err := g.out.SendContext(ctx, c); err != nil {
		g.logger.Error("aggregate: send context failed", "error", err)
		return c, err
	}

	g.logger.Info("aggregate: context captured",
		"seq", c.Seq,
		"elements", c.DOMState.ElementCount,
		"tracked", c.ConditionalRendering.TrackedCount,
		"changed", c.DOMState.HasChanged)
	return c, nil
}

// History returns a copy of the retained captures, oldest first.
func (g *Aggregator) History() []capture.Context {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]capture.Context(nil), g.history...)
}

// domState extracts the element inventory and computes the sampled
// change flag against the previous tick.
func (g *Aggregator) domState() capture.DOMState {
	opts := extract.Options{
		IncludeHidden:    g.extCfg.IncludeHidden,
		OnlyFormElements: g.extCfg.OnlyFormElements,
		TestGeneration:   g.extCfg.TestGeneration,
		MaxDepth:         g.extCfg.MaxDepth,
	}

	body := g.arena.Body()
	elements := extract.Tree(g.arena, body, opts)

	interactive := 0
	for _, el := range elements {
		if el.State.Visible && el.State.Enabled {
			interactive++
		}
	}

	sample := elements
	if len(sample) > changeSampleSize {
		sample = sample[:changeSampleSize]
	}
	raw, _ := json.Marshal(sample)
	sampleHash := capture.Hash(raw)

	g.mu.Lock()
	changed := len(elements) != g.prevCount || sampleHash != g.prevSample
	first := g.prevSample == "" && g.prevCount == 0
	g.prevCount = len(elements)
	g.prevSample = sampleHash
	g.mu.Unlock()

	if first {
		changed = false
	}

	return capture.DOMState{
		ElementCount:     len(elements),
		InteractiveCount: interactive,
		Elements:         elements,
		HasChanged:       changed,
		Hash:             sampleHash,
	}
}

func (g *Aggregator) title() string {
	for _, h := range g.arena.Query("title") {
		return g.arena.Text(h)
	}
	return ""
}

// emitEvent returns the event callback handed to detectors: events go
// straight to the sink, failures are logged and swallowed.
func (g *Aggregator) emitEvent(ctx context.Context) func(capture.Event) {
	return func(ev capture.Event) {
		if err := g.out.SendEvent(ctx, ev); err != nil {
			g.logger.Warn("aggregate: send event failed", "type", ev.Type, "error", err)
		}
	}
}
