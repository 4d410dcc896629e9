// Package track maintains the live bookkeeping behind the aggregated
// context: conditional-rendering state, user interactions, and form
// validation outcomes.
package track

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/osawyer/domscope/dom"
	"github.com/osawyer/domscope/extract"
	"github.com/osawyer/domscope/inspect/capture"
	"github.com/osawyer/domscope/inspect/internal/pattern"
	"github.com/osawyer/domscope/observe"
)

// conditionalQuery matches elements whose rendering is plausibly toggled
// by application state. The initial scan and the reveal cascade both use
// it.
const conditionalQuery = `[hidden], [aria-hidden], [aria-expanded], [data-toggle], [data-show],
	.modal, [role=dialog], dialog, .collapse, .dropdown, .tab-pane, .accordion,
	.loading, .spinner, [aria-busy=true]`

// conditionalAttrs are the attributes recorded per tracked element.
var conditionalAttrs = []string{
	"hidden", "aria-hidden", "aria-expanded", "aria-busy",
	"data-toggle", "data-show", "style", "class", "role",
}

// loadingClasses mark in-progress content.
var loadingClasses = map[string]bool{
	"loading": true, "spinner": true, "skeleton": true, "placeholder": true,
}

// Config controls the conditional tracker.
type Config struct {
	// MaxTracked caps the bookkeeping maps. Default: 1000.
	MaxTracked int
	// EvictBatch is how many of the oldest records one eviction pass
	// removes. Default: 100.
	EvictBatch int
	// SnippetLen bounds stored text/HTML snippets. Default: 150.
	SnippetLen int
	// MaxEvents bounds the retained event log. Default: 200.
	MaxEvents int
	Logger    *slog.Logger
}

func (c *Config) defaults() {
	if c.MaxTracked <= 0 {
		c.MaxTracked = 1000
	}
	if c.EvictBatch <= 0 {
		c.EvictBatch = 100
	}
	if c.SnippetLen <= 0 {
		c.SnippetLen = 150
	}
	if c.MaxEvents <= 0 {
		c.MaxEvents = 200
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Conditional watches three independent change streams and classifies
// visibility, structural, and content changes against last-known state.
// Elements move untracked → tracked on first sight and back on removal or
// eviction; everything else is attributes of the record.
type Conditional struct {
	arena  *dom.Arena
	source observe.Source
	cfg    Config
	logger *slog.Logger
	emit   func(capture.Event)

	mu         sync.Mutex
	records    map[dom.Handle]*capture.TrackedElement
	visibility map[dom.Handle]capture.VisibilityState
	content    map[dom.Handle]capture.ContentState
	// fifo is the explicit insertion-order eviction queue. Eviction order
	// is a documented invariant, not incidental map iteration.
	fifo   []dom.Handle
	events []capture.Event

	subs   []observe.Subscription
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewConditional creates a tracker over an arena and a change source.
// emit receives every classified event in addition to the internal log;
// it may be nil.
func NewConditional(a *dom.Arena, src observe.Source, cfg Config, emit func(capture.Event)) *Conditional {
	cfg.defaults()
	return &Conditional{
		arena:      a,
		source:     src,
		cfg:        cfg,
		logger:     cfg.Logger,
		emit:       emit,
		records:    make(map[dom.Handle]*capture.TrackedElement),
		visibility: make(map[dom.Handle]capture.VisibilityState),
		content:    make(map[dom.Handle]capture.ContentState),
	}
}

// Start scans the document for conditional candidates and subscribes the
// three change streams. Each stream runs in its own goroutine; a failure
// in one handler never halts the others.
func (c *Conditional) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)

	c.mu.Lock()
	for _, h := range c.arena.Query(conditionalQuery) {
		c.trackLocked(h, "initial_scan")
	}
	n := len(c.records)
	c.mu.Unlock()

	c.logger.Info("tracker: initial scan complete", "tracked", n)

	attrSub := c.source.Subscribe(0, observe.KindAttribute)
	childSub := c.source.Subscribe(0, observe.KindChildList)
	dataSub := c.source.Subscribe(0, observe.KindCharacterData)
	c.subs = []observe.Subscription{attrSub, childSub, dataSub}

	c.wg.Add(3)
	go c.run(ctx, attrSub, c.handleAttribute)
	go c.run(ctx, childSub, c.handleChildList)
	go c.run(ctx, dataSub, c.handleCharacterData)
}

// Stop unsubscribes all streams and waits for the handlers to drain.
func (c *Conditional) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	for _, s := range c.subs {
		s.Unsubscribe()
	}
	c.wg.Wait()
}

func (c *Conditional) run(ctx context.Context, sub observe.Subscription, handle func(observe.ChangeEvent)) {
	defer c.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			handle(ev)
		}
	}
}

// Track registers an element. Exceeding the cap triggers one eviction
// pass over the oldest records.
func (c *Conditional) Track(h dom.Handle, source string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trackLocked(h, source)
}

func (c *Conditional) trackLocked(h dom.Handle, source string) {
	if h == 0 {
		return
	}
	if _, ok := c.records[h]; ok {
		return
	}

	vis := c.visibilityState(h)
	cont := c.contentState(h)

	attrs := map[string]string{}
	for _, name := range conditionalAttrs {
		if c.arena.HasAttr(h, name) {
			attrs[name] = c.arena.Attr(h, name)
		}
	}
	if len(attrs) == 0 {
		attrs = nil
	}

	c.records[h] = &capture.TrackedElement{
		Ref:                   extract.Ref(c.arena, h),
		Source:                source,
		StartTime:             time.Now().UnixMilli(),
		Visibility:            vis,
		Content:               cont,
		ConditionalAttributes: attrs,
		DetectedPattern:       pattern.Match(c.arena, h),
	}
	c.visibility[h] = vis
	c.content[h] = cont
	c.fifo = append(c.fifo, h)

	if len(c.records) > c.cfg.MaxTracked {
		c.evictLocked()
	}
}

// evictLocked removes the oldest EvictBatch handles in FIFO order. One
// pass per overflow; re-tracking re-enqueues at the tail.
func (c *Conditional) evictLocked() {
	n := c.cfg.EvictBatch
	if n > len(c.fifo) {
		n = len(c.fifo)
	}
	for _, h := range c.fifo[:n] {
		c.untrackLocked(h)
	}
	c.fifo = c.fifo[n:]
	c.logger.Debug("tracker: evicted oldest records", "count", n, "tracked", len(c.records))
}

// Untrack removes a single element from the bookkeeping maps.
func (c *Conditional) Untrack(h dom.Handle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.untrackLocked(h)
	for i, fh := range c.fifo {
		if fh == h {
			c.fifo = append(c.fifo[:i], c.fifo[i+1:]...)
			break
		}
	}
}

func (c *Conditional) untrackLocked(h dom.Handle) {
	delete(c.records, h)
	delete(c.visibility, h)
	delete(c.content, h)
}

// Tracked reports whether a handle is currently tracked.
func (c *Conditional) Tracked(h dom.Handle) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.records[h]
	return ok
}

// TrackedCount returns the number of tracked elements.
func (c *Conditional) TrackedCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}

// Summary condenses the tracker state for one aggregation tick, including
// at most maxEvents of the most recent events.
func (c *Conditional) Summary(maxEvents int) capture.ConditionalSummary {
	c.mu.Lock()
	defer c.mu.Unlock()

	events := c.events
	if maxEvents > 0 && len(events) > maxEvents {
		events = events[len(events)-maxEvents:]
	}
	out := capture.ConditionalSummary{
		TrackedCount: len(c.records),
		Events:       append([]capture.Event(nil), events...),
		Patterns:     map[string]int{},
	}
	for _, rec := range c.records {
		if rec.DetectedPattern != "" {
			out.Patterns[rec.DetectedPattern]++
		}
	}
	if len(out.Patterns) == 0 {
		out.Patterns = nil
	}
	return out
}

// handleAttribute classifies style/class/visibility attribute changes.
func (c *Conditional) handleAttribute(ev observe.ChangeEvent) {
	h := ev.Target
	if c.arena.Node(h) == nil {
		return
	}

	c.mu.Lock()
	rec, tracked := c.records[h]
	c.mu.Unlock()

	if !tracked {
		// An attribute flip can make an untracked element conditional.
		if visibilityAttr(ev.Name) && matchesConditional(c.arena, h) {
			c.Track(h, "dynamic_attr")
		}
		return
	}

	if !visibilityAttr(ev.Name) {
		c.mu.Lock()
		if rec.ConditionalAttributes == nil {
			rec.ConditionalAttributes = map[string]string{}
		}
		rec.ConditionalAttributes[ev.Name] = ev.Value
		c.mu.Unlock()
		return
	}

	now := c.visibilityState(h)

	c.mu.Lock()
	// An eviction may have removed the record between the two critical
	// sections; writing state back would leak an untracked entry.
	if _, still := c.records[h]; !still {
		c.mu.Unlock()
		return
	}
	prev := c.visibility[h]
	changed := now != prev
	if changed {
		c.visibility[h] = now
		rec.Visibility = now
	}
	c.mu.Unlock()

	if !changed {
		return
	}

	prevCopy, nowCopy := prev, now
	c.record(capture.Event{
		Type:          capture.EventVisibilityChange,
		Timestamp:     time.Now().UnixMilli(),
		Element:       rec.Ref,
		PreviousState: &prevCopy,
		CurrentState:  &nowCopy,
	})

	// Revealing a hidden element can reveal conditional descendants that
	// were invisible to the initial scan.
	if !prev.IsVisible && now.IsVisible {
		c.revealCascade(h)
	}
}

// handleChildList classifies structural changes: inserted subtrees become
// dynamic_render candidates, removed tracked nodes are untracked.
func (c *Conditional) handleChildList(ev observe.ChangeEvent) {
	for _, added := range ev.Added {
		if c.arena.Node(added) == nil {
			continue
		}
		if matchesConditional(c.arena, added) {
			c.Track(added, "dynamic_add")
			c.mu.Lock()
			rec := c.records[added]
			c.mu.Unlock()
			if rec != nil {
				c.record(capture.Event{
					Type:      capture.EventDynamicRender,
					Timestamp: time.Now().UnixMilli(),
					Element:   rec.Ref,
					Action:    "added",
				})
			}
		}
		// Children of the inserted subtree count too.
		for _, d := range c.arena.Descendants(added) {
			if matchesConditional(c.arena, d) {
				c.Track(d, "dynamic_add")
			}
		}
	}

	for _, removed := range ev.Removed {
		c.mu.Lock()
		rec, tracked := c.records[removed]
		c.mu.Unlock()
		if !tracked {
			continue
		}
		c.record(capture.Event{
			Type:      capture.EventDynamicRender,
			Timestamp: time.Now().UnixMilli(),
			Element:   rec.Ref,
			Action:    "removed",
		})
		c.Untrack(removed)
	}

	// The parent's content state shifts with its child count.
	c.refreshContent(ev.Target)
}

// handleCharacterData classifies text content changes.
func (c *Conditional) handleCharacterData(ev observe.ChangeEvent) {
	c.refreshContent(ev.Target)
}

// refreshContent re-reads an element's content state and emits
// content_change when it differs from last-known.
func (c *Conditional) refreshContent(h dom.Handle) {
	if h == 0 || c.arena.Node(h) == nil {
		return
	}

	c.mu.Lock()
	rec, tracked := c.records[h]
	c.mu.Unlock()
	if !tracked {
		return
	}

	now := c.contentState(h)

	c.mu.Lock()
	if _, still := c.records[h]; !still {
		c.mu.Unlock()
		return
	}
	prev := c.content[h]
	changed := now != prev
	if changed {
		c.content[h] = now
		rec.Content = now
	}
	c.mu.Unlock()

	if !changed {
		return
	}

	prevCopy, nowCopy := prev, now
	c.record(capture.Event{
		Type:            capture.EventContentChange,
		Timestamp:       time.Now().UnixMilli(),
		Element:         rec.Ref,
		PreviousContent: &prevCopy,
		CurrentContent:  &nowCopy,
	})
}

// revealCascade re-scans the descendants of a newly revealed element and
// tracks conditional children that are now visible. Bounded only by DOM
// size.
func (c *Conditional) revealCascade(h dom.Handle) {
	for _, d := range c.arena.Descendants(h) {
		if c.Tracked(d) {
			continue
		}
		if matchesConditional(c.arena, d) && c.arena.Visible(d) {
			c.Track(d, "reveal_cascade")
		}
	}
}

// record appends to the bounded event log and forwards to the emitter.
func (c *Conditional) record(ev capture.Event) {
	c.mu.Lock()
	c.events = append(c.events, ev)
	if len(c.events) > c.cfg.MaxEvents {
		c.events = c.events[len(c.events)-c.cfg.MaxEvents:]
	}
	c.mu.Unlock()

	if c.emit != nil {
		c.emit(ev)
	}
}

func (c *Conditional) visibilityState(h dom.Handle) capture.VisibilityState {
	v := c.arena.ComputeVisibility(h)
	return capture.VisibilityState{
		IsVisible:            v.IsVisible,
		Display:              v.Display,
		Visibility:           v.Visibility,
		Opacity:              v.Opacity,
		InViewport:           v.InViewport,
		HasVisibilityClasses: v.HasHideClass,
		HasShowClasses:       v.HasShowClass,
	}
}

func (c *Conditional) contentState(h dom.Handle) capture.ContentState {
	text := extract.TextSnippet(c.arena, h, c.cfg.SnippetLen)
	html := extract.HTMLSnippet(c.arena, h, c.cfg.SnippetLen)
	children := c.arena.Children(h)

	loading := false
	for _, cls := range strings.Fields(c.arena.Attr(h, "class")) {
		if loadingClasses[cls] {
			loading = true
			break
		}
	}
	if c.arena.Attr(h, "aria-busy") == "true" {
		loading = true
	}

	return capture.ContentState{
		TextSnippet:      text,
		InnerHTMLSnippet: html,
		ChildCount:       len(children),
		HasLoadingState:  loading,
		IsEmpty:          text == "" && len(children) == 0,
	}
}

// visibilityAttr reports whether a mutated attribute can change computed
// visibility.
func visibilityAttr(name string) bool {
	switch name {
	case "style", "class", "hidden", "aria-hidden":
		return true
	}
	return false
}

// matchesConditional reports whether an element looks conditionally
// rendered: it matches the conditional selector list.
func matchesConditional(a *dom.Arena, h dom.Handle) bool {
	parent := a.Parent(h)
	for _, m := range a.QueryFrom(parent, conditionalQuery) {
		if m == h {
			return true
		}
	}
	return false
}
