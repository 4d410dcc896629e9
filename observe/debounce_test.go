package observe

import (
	"testing"
	"time"

	"github.com/osawyer/domscope/dom"
)

func TestCompact_ConsecutiveAttr(t *testing.T) {
	events := []ChangeEvent{
		{Kind: KindAttribute, Target: 1, Name: "class", Value: "a", OldValue: "orig"},
		{Kind: KindAttribute, Target: 1, Name: "class", Value: "b", OldValue: "a"},
		{Kind: KindAttribute, Target: 1, Name: "class", Value: "c", OldValue: "b"},
	}

	got := compact(events)
	if len(got) != 1 {
		t.Fatalf("compact: got %d events, want 1", len(got))
	}
	if got[0].Value != "c" {
		t.Errorf("Value: got %q, want c", got[0].Value)
	}
	if got[0].OldValue != "orig" {
		t.Errorf("OldValue: got %q, want orig", got[0].OldValue)
	}
}

func TestCompact_DifferentAttrsKept(t *testing.T) {
	events := []ChangeEvent{
		{Kind: KindAttribute, Target: 1, Name: "class", Value: "a"},
		{Kind: KindAttribute, Target: 1, Name: "style", Value: "display:none"},
		{Kind: KindAttribute, Target: 2, Name: "class", Value: "b"},
	}

	if got := compact(events); len(got) != 3 {
		t.Fatalf("compact: got %d events, want 3", len(got))
	}
}

func TestCompact_ConsecutiveText(t *testing.T) {
	events := []ChangeEvent{
		{Kind: KindCharacterData, Target: 5, Value: "a", OldValue: "orig"},
		{Kind: KindCharacterData, Target: 5, Value: "ab", OldValue: "a"},
		{Kind: KindCharacterData, Target: 5, Value: "abc", OldValue: "ab"},
	}

	got := compact(events)
	if len(got) != 1 {
		t.Fatalf("compact: got %d events, want 1", len(got))
	}
	if got[0].Value != "abc" || got[0].OldValue != "orig" {
		t.Errorf("got value=%q old=%q, want abc/orig", got[0].Value, got[0].OldValue)
	}
}

func TestCompact_TextNodesCollapsePerIndex(t *testing.T) {
	// Two text nodes under the same parent change in one window: each
	// keeps its own latest value; collapsing across indexes would lose
	// the second node's change.
	events := []ChangeEvent{
		{Kind: KindCharacterData, Target: 1, Index: 0, Value: "a1", OldValue: "a0"},
		{Kind: KindCharacterData, Target: 1, Index: 0, Value: "a2", OldValue: "a1"},
		{Kind: KindCharacterData, Target: 1, Index: 2, Value: "b1", OldValue: "b0"},
	}

	got := compact(events)
	if len(got) != 2 {
		t.Fatalf("compact: got %d events, want 2", len(got))
	}
	if got[0].Index != 0 || got[0].Value != "a2" || got[0].OldValue != "a0" {
		t.Errorf("first run: got index %d value %q old %q", got[0].Index, got[0].Value, got[0].OldValue)
	}
	if got[1].Index != 2 || got[1].Value != "b1" {
		t.Errorf("second run: got index %d value %q", got[1].Index, got[1].Value)
	}
}

func TestCompact_ChildListNeverCollapsed(t *testing.T) {
	events := []ChangeEvent{
		{Kind: KindChildList, Target: 1, Added: []dom.Handle{10}},
		{Kind: KindChildList, Target: 1, Added: []dom.Handle{11}},
		{Kind: KindChildList, Target: 1, Removed: []dom.Handle{10}},
	}

	if got := compact(events); len(got) != 3 {
		t.Fatalf("compact: got %d events, want 3", len(got))
	}
}

func TestCompact_StructuralBoundaryStopsRun(t *testing.T) {
	events := []ChangeEvent{
		{Kind: KindAttribute, Target: 1, Name: "class", Value: "a", OldValue: "orig"},
		{Kind: KindChildList, Target: 1, Added: []dom.Handle{10}},
		{Kind: KindAttribute, Target: 1, Name: "class", Value: "b", OldValue: "a"},
	}

	got := compact(events)
	if len(got) != 3 {
		t.Fatalf("compact: got %d events, want 3 (runs cannot cross structural changes)", len(got))
	}
}

func TestDebouncer_MaxBufferFlushesImmediately(t *testing.T) {
	var flushed [][]ChangeEvent
	d := NewDebouncer(DebounceConfig{Window: time.Hour, MaxBuffer: 3},
		func(evs []ChangeEvent) { flushed = append(flushed, evs) })

	d.Add(ChangeEvent{Kind: KindChildList, Target: 1})
	d.Add(ChangeEvent{Kind: KindChildList, Target: 2})
	if len(flushed) != 0 {
		t.Fatalf("flushed early: %d batches", len(flushed))
	}

	full := d.Add(ChangeEvent{Kind: KindChildList, Target: 3})
	if !full {
		t.Error("Add at capacity: got false, want true")
	}
	if len(flushed) != 1 || len(flushed[0]) != 3 {
		t.Fatalf("flushed: got %d batches, want one batch of 3", len(flushed))
	}
}

func TestDebouncer_FlushResets(t *testing.T) {
	var count int
	d := NewDebouncer(DebounceConfig{}, func(evs []ChangeEvent) { count += len(evs) })

	d.Add(ChangeEvent{Kind: KindChildList, Target: 1})
	d.Flush()
	d.Flush() // second flush has nothing to do
	if count != 1 {
		t.Errorf("flushed %d events, want 1", count)
	}
	if d.TimerC() != nil {
		t.Error("timer channel not cleared after flush")
	}
}
