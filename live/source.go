package live

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod/lib/proto"

	"github.com/osawyer/domscope/dom"
	"github.com/osawyer/domscope/observe"
	"github.com/osawyer/domscope/selector"
)

//go:embed observer.js
var observerJS string

const bindingName = "__domscope_binding"

// jsRecord is one mutation record from the injected observer.
type jsRecord struct {
	Op       string `json:"op"` // attr | attr_remove | text | add | remove
	XPath    string `json:"xpath"`
	Name     string `json:"name"`
	Index    int    `json:"index"` // text: child index of the mutated text node
	Value    string `json:"value"`
	OldValue string `json:"old_value"`
	HTML     string `json:"html"`
}

// SourceConfig configures a live Source.
type SourceConfig struct {
	Debounce observe.DebounceConfig
	Logger   *slog.Logger
}

// Source mirrors a live page into an arena and implements observe.Source
// on top of it. Mutation records from the page resolve to arena handles,
// replay onto the arena, and fan out to subscribers.
//
// Attribute and text records pass through a debouncer so rapid runs
// (animations, typing) collapse to their net effect; structural changes
// apply immediately.
type Source struct {
	tab    *Tab
	local  *observe.Local
	deb    *observe.Debouncer
	rawCh  chan jsRecord
	cancel context.CancelFunc
	logger *slog.Logger
}

// NewSource parses the tab's current DOM into a fresh arena and prepares
// the mutation bridge. Call Start to begin streaming.
func NewSource(ctx context.Context, tab *Tab, cfg SourceConfig) (*Source, *dom.Arena, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	raw, err := tab.HTML(ctx)
	if err != nil {
		return nil, nil, err
	}
	arena, err := dom.ParseString(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("live: parse DOM: %w", err)
	}

	if w, h, err := tab.Viewport(ctx); err == nil {
		arena.SetViewport(dom.Rect{Width: w, Height: h})
	}

	s := &Source{
		tab:    tab,
		local:  observe.NewLocal(arena),
		rawCh:  make(chan jsRecord, 4096),
		logger: cfg.Logger,
	}
	s.deb = observe.NewDebouncer(cfg.Debounce, s.applyBatch)
	return s, arena, nil
}

// Subscribe implements observe.Source.
func (s *Source) Subscribe(scope dom.Handle, kinds ...observe.ChangeKind) observe.Subscription {
	return s.local.Subscribe(scope, kinds...)
}

// Arena returns the mirrored arena.
func (s *Source) Arena() *dom.Arena { return s.local.Arena() }

// Start injects the observer script and begins streaming mutations.
func (s *Source) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)

	if err := (proto.RuntimeAddBinding{Name: bindingName}).Call(s.tab.Page); err != nil {
		s.logger.Warn("live: add binding failed (may already exist)", "error", err)
	}
	go s.listenBinding(ctx)

	if _, err := s.tab.Page.Context(ctx).Eval(observerJS); err != nil {
		return fmt.Errorf("live: inject observer: %w", err)
	}

	go s.loop(ctx)
	s.logger.Info("live: observing", "url", s.tab.PageURL)
	return nil
}

// Stop disconnects the page observer and closes all subscriptions.
func (s *Source) Stop() {
	if _, err := s.tab.Page.Eval(`() => window.__domscope_stop && window.__domscope_stop()`); err != nil {
		s.logger.Debug("live: stop script failed", "error", err)
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.local.Close()
}

// listenBinding receives batches from the injected script.
func (s *Source) listenBinding(ctx context.Context) {
	s.tab.Page.Context(ctx).EachEvent(func(e *proto.RuntimeBindingCalled) {
		if e.Name != bindingName {
			return
		}
		var records []jsRecord
		if err := json.Unmarshal([]byte(e.Payload), &records); err != nil {
			s.logger.Warn("live: parse binding payload", "error", err)
			return
		}
		for _, rec := range records {
			select {
			case s.rawCh <- rec:
			default:
				s.logger.Warn("live: record buffer full, dropping", "op", rec.Op)
			}
		}
	})()
}

// loop drains raw records: structural changes replay immediately,
// attribute and text changes go through the debouncer.
func (s *Source) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			s.deb.Flush()
			return

		case rec := <-s.rawCh:
			switch rec.Op {
			case "add", "remove", "attr_remove":
				s.deb.Flush() // keep ordering across the structural boundary
				s.applyStructural(rec)
			case "attr", "text":
				if ev, ok := s.toEvent(rec); ok {
					s.deb.Add(ev)
				}
			}

		case <-s.deb.TimerC():
			s.deb.Flush()
		}
	}
}

// toEvent resolves a record's xpath into a pending change event. The
// arena is not touched yet; application happens at flush.
func (s *Source) toEvent(rec jsRecord) (observe.ChangeEvent, bool) {
	h := selector.Resolve(s.Arena(), rec.XPath)
	if h == 0 {
		return observe.ChangeEvent{}, false
	}

	kind := observe.KindAttribute
	if rec.Op == "text" {
		kind = observe.KindCharacterData
	}
	return observe.ChangeEvent{
		Kind:     kind,
		Target:   h,
		Name:     rec.Name,
		Index:    rec.Index,
		Value:    rec.Value,
		OldValue: rec.OldValue,
		At:       time.Now(),
	}, true
}

// applyBatch replays compacted attribute/text events onto the arena.
// The Local mutators emit to subscribers as a side effect.
func (s *Source) applyBatch(events []observe.ChangeEvent) {
	for _, ev := range events {
		switch ev.Kind {
		case observe.KindAttribute:
			s.local.SetAttr(ev.Target, ev.Name, ev.Value)
		case observe.KindCharacterData:
			// Splice the one text node the page mutated; SetText would
			// flatten the parent's element children out of the mirror.
			s.local.SpliceText(ev.Target, ev.Index, ev.Value)
		}
	}
}

// applyStructural replays an add, remove, or attribute-removal record.
func (s *Source) applyStructural(rec jsRecord) {
	a := s.Arena()
	h := selector.Resolve(a, rec.XPath)
	if h == 0 {
		s.logger.Debug("live: unresolved xpath", "op", rec.Op, "xpath", rec.XPath)
		return
	}

	switch rec.Op {
	case "add":
		if _, err := s.local.InsertHTML(h, rec.HTML); err != nil {
			s.logger.Warn("live: apply add failed", "error", err)
		}
	case "remove":
		s.local.Remove(h)
	case "attr_remove":
		s.local.RemoveAttr(h, rec.Name)
	}
}

// RefreshBounds measures bounding boxes for every element matching the
// CSS selector and records them in the arena, so visibility checks see
// real layout data.
func (s *Source) RefreshBounds(ctx context.Context, sel string) error {
	res, err := s.tab.Page.Context(ctx).Eval(`(sel) => {
		const out = [];
		for (const el of document.querySelectorAll(sel)) {
			const r = el.getBoundingClientRect();
			out.push({ x: r.x, y: r.y, width: r.width, height: r.height });
		}
		return out;
	}`, sel)
	if err != nil {
		return fmt.Errorf("live: measure %q: %w", sel, err)
	}

	var rects []dom.Rect
	if err := json.Unmarshal([]byte(res.Value.JSON("", "")), &rects); err != nil {
		return fmt.Errorf("live: decode rects: %w", err)
	}

	a := s.Arena()
	matches := a.Query(sel)
	for i, h := range matches {
		if i >= len(rects) {
			break
		}
		a.SetBounds(h, rects[i])
	}
	return nil
}
