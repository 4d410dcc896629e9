// Package inspect is the DOM inspection engine: it extracts interactive
// elements with stable selectors, tracks conditional rendering through
// mutation streams, and aggregates DOM, interaction, and validation
// state into size-bounded contexts shipped to configured sinks.
//
// Usage:
//
//	insp, err := inspect.New(cfg, arena, source)
//	defer insp.Close()
//	insp.StartTracking(ctx)   // continuous analysis
//	c, err := insp.CaptureContext(ctx)
//	insp.RegisterConnectivity(router)
//	insp.RegisterMCP(mcpServer)
package inspect

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/osawyer/domscope/dom"
	"github.com/osawyer/domscope/extract"
	"github.com/osawyer/domscope/inspect/capture"
	"github.com/osawyer/domscope/inspect/internal/aggregate"
	"github.com/osawyer/domscope/inspect/internal/sink"
	"github.com/osawyer/domscope/inspect/internal/track"
	"github.com/osawyer/domscope/observe"
	"github.com/osawyer/domscope/store"
)

const highlightStyle = "outline: 2px solid #ff3b30; outline-offset: 2px"

// Inspector is the main orchestrator.
type Inspector struct {
	cfg    *Config
	arena  *dom.Arena
	source observe.Source
	cond   *track.Conditional
	inter  *track.Interactions
	valid  *track.Validations
	agg    *aggregate.Aggregator
	sinks  *sink.Router
	st     *store.Store
	logger *slog.Logger

	extraSinks []sink.Sink

	mu         sync.Mutex
	tracking   bool
	highlights map[dom.Handle]string // handle → style attr before highlight
	hadStyle   map[dom.Handle]bool
}

// Option configures an Inspector.
type Option func(*Inspector)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(i *Inspector) { i.logger = l }
}

// WithStore attaches persistence: captured contexts and events are
// written to the database, and the chat ID survives restarts.
func WithStore(s *store.Store) Option {
	return func(i *Inspector) { i.st = s }
}

// WithSink adds an output sink beyond those built from configuration.
func WithSink(s sink.Sink) Option {
	return func(i *Inspector) { i.extraSinks = append(i.extraSinks, s) }
}

// New creates an Inspector over an arena and a mutation source.
func New(cfg *Config, a *dom.Arena, src observe.Source, opts ...Option) (*Inspector, error) {
	if cfg == nil {
		cfg = &Config{}
		cfg.ApplyDefaults()
	}

	i := &Inspector{
		cfg:        cfg,
		arena:      a,
		source:     src,
		logger:     slog.Default(),
		highlights: make(map[dom.Handle]string),
		hadStyle:   make(map[dom.Handle]bool),
	}
	for _, o := range opts {
		o(i)
	}

	sinks, err := i.buildSinks()
	if err != nil {
		return nil, err
	}
	i.sinks = sinks

	i.inter = track.NewInteractions(0)
	i.valid = track.NewValidations(0)
	i.cond = track.NewConditional(a, src, track.Config{
		MaxTracked: cfg.Tracker.MaxTrackedElements,
		EvictBatch: cfg.Tracker.EvictBatch,
		SnippetLen: cfg.Tracker.SnippetLen,
		Logger:     i.logger,
	}, i.emitEvent)

	i.agg = aggregate.New(cfg.Aggregation, cfg.Extraction, a,
		i.cond, i.inter, i.valid, i.sinks,
		aggregate.Page{URL: cfg.Page.URL, ChatID: cfg.Page.ChatID}, i.logger)

	if i.st != nil && cfg.Page.ChatID != "" {
		if err := i.st.SetSetting(context.Background(), store.KeyChatID, cfg.Page.ChatID); err != nil {
			i.logger.Warn("inspect: persist chat id failed", "error", err)
		}
	}

	return i, nil
}

// buildSinks assembles the output fan-out from configuration, the
// optional store, and any extra sinks.
func (i *Inspector) buildSinks() (*sink.Router, error) {
	var out []sink.Sink
	for _, sc := range i.cfg.Sinks {
		switch sc.Type {
		case "stdout":
			out = append(out, sink.NewStdout(os.Stdout))
		case "webhook":
			if sc.URL == "" {
				return nil, fmt.Errorf("inspect: webhook sink requires url")
			}
			out = append(out, sink.NewWebhook(sc.URL, sink.WithWebhookLogger(i.logger)))
		default:
			return nil, fmt.Errorf("inspect: unknown sink type %q", sc.Type)
		}
	}
	if i.st != nil {
		st := i.st
		url := i.cfg.Page.URL
		out = append(out, sink.NewCallback(
			func(ctx context.Context, c capture.Context) error {
				return st.InsertContext(ctx, c)
			},
			func(ctx context.Context, ev capture.Event) error {
				return st.InsertEvent(ctx, url, ev)
			},
		))
	}
	out = append(out, i.extraSinks...)
	return sink.NewRouter(i.logger, out...), nil
}

// AnalyzeDOM performs a one-shot extraction pass over the page and
// returns the element inventory.
func (i *Inspector) AnalyzeDOM() []capture.ElementDescriptor {
	opts := extract.Options{
		IncludeHidden:    i.cfg.Extraction.IncludeHidden,
		OnlyFormElements: i.cfg.Extraction.OnlyFormElements,
		TestGeneration:   i.cfg.Extraction.TestGeneration,
		MaxDepth:         i.cfg.Extraction.MaxDepth,
	}
	return extract.Tree(i.arena, i.arena.Body(), opts)
}

// StartTracking begins continuous analysis: the conditional tracker
// subscribes to mutation streams and the aggregator starts its capture
// loop. Idempotent.
func (i *Inspector) StartTracking(ctx context.Context) {
	i.mu.Lock()
	if i.tracking {
		i.mu.Unlock()
		return
	}
	i.tracking = true
	i.mu.Unlock()

	i.cond.Start(ctx)
	i.agg.Start(ctx)
	i.logger.Info("inspect: tracking started", "url", i.cfg.Page.URL)
}

// StopTracking halts continuous analysis. The aggregator performs one
// final capture before stopping. Idempotent.
func (i *Inspector) StopTracking() {
	i.mu.Lock()
	if !i.tracking {
		i.mu.Unlock()
		return
	}
	i.tracking = false
	i.mu.Unlock()

	i.agg.Stop()
	i.cond.Stop()
	i.logger.Info("inspect: tracking stopped")
}

// CaptureContext builds one aggregated context immediately, outside the
// periodic loop.
func (i *Inspector) CaptureContext(ctx context.Context) (capture.Context, error) {
	return i.agg.Capture(ctx)
}

// History returns the retained captures, oldest first.
func (i *Inspector) History() []capture.Context {
	return i.agg.History()
}

// RecordInteraction feeds a user interaction into the aggregation.
func (i *Inspector) RecordInteraction(iv capture.Interaction) {
	i.inter.Record(iv)
}

// RecordValidation feeds a form-validation result into the aggregation.
func (i *Inspector) RecordValidation(v capture.Validation) {
	i.valid.Record(v)
}

// HighlightElement outlines the first element matching the CSS selector
// and remembers its previous inline style for RemoveHighlight.
func (i *Inspector) HighlightElement(selector string) error {
	matches := i.arena.Query(selector)
	if len(matches) == 0 {
		return fmt.Errorf("inspect: highlight: no element matches %q", selector)
	}
	h := matches[0]

	i.mu.Lock()
	defer i.mu.Unlock()
	if _, already := i.highlights[h]; already {
		return nil
	}

	prev := i.arena.Attr(h, "style")
	i.highlights[h] = prev
	i.hadStyle[h] = i.arena.HasAttr(h, "style")

	style := highlightStyle
	if prev != "" {
		style = strings.TrimRight(prev, "; ") + "; " + highlightStyle
	}
	i.arena.SetAttr(h, "style", style)
	return nil
}

// RemoveHighlight restores the inline style saved by HighlightElement.
// With an empty selector, all highlights are removed.
func (i *Inspector) RemoveHighlight(selector string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if selector == "" {
		for h := range i.highlights {
			i.restoreLocked(h)
		}
		return nil
	}

	matches := i.arena.Query(selector)
	if len(matches) == 0 {
		return fmt.Errorf("inspect: remove highlight: no element matches %q", selector)
	}
	for _, h := range matches {
		if _, ok := i.highlights[h]; ok {
			i.restoreLocked(h)
		}
	}
	return nil
}

func (i *Inspector) restoreLocked(h dom.Handle) {
	if i.hadStyle[h] {
		i.arena.SetAttr(h, "style", i.highlights[h])
	} else {
		i.arena.RemoveAttr(h, "style")
	}
	delete(i.highlights, h)
	delete(i.hadStyle, h)
}

// ChatID returns the active chat ID, consulting the store when the
// configuration carries none.
func (i *Inspector) ChatID(ctx context.Context) string {
	if i.cfg.Page.ChatID != "" {
		return i.cfg.Page.ChatID
	}
	if i.st != nil {
		if id, err := i.st.GetSetting(ctx, store.KeyChatID); err == nil && id != "" {
			return id
		}
	}
	return ""
}

// SetChatID updates the active chat ID, persisting it when a store is
// attached.
func (i *Inspector) SetChatID(ctx context.Context, id string) error {
	i.cfg.Page.ChatID = id
	if i.st != nil {
		return i.st.SetSetting(ctx, store.KeyChatID, id)
	}
	return nil
}

// Store returns the underlying store, or nil (testing, admin).
func (i *Inspector) Store() *store.Store {
	return i.st
}

// Close stops tracking and releases sinks. The store, when attached, is
// owned by the caller and stays open.
func (i *Inspector) Close() error {
	i.StopTracking()
	return i.sinks.Close()
}

// emitEvent routes tracker events to the sinks.
func (i *Inspector) emitEvent(ev capture.Event) {
	if err := i.sinks.SendEvent(context.Background(), ev); err != nil {
		i.logger.Warn("inspect: send event failed", "type", ev.Type, "error", err)
	}
}
