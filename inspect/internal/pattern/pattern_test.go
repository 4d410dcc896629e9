package pattern

import (
	"testing"

	"github.com/osawyer/domscope/dom"
	"github.com/osawyer/domscope/inspect/capture"
)

const patternDoc = `<html><body>
<div class="modal" style="display: none"><p>Confirm?</p></div>
<div role="tablist">
  <button role="tab">One</button>
  <button role="tab">Two</button>
  <button role="tab">Three</button>
</div>
<select name="country">
  <option>AT</option>
  <option>DE</option>
</select>
<div class="spinner"></div>
</body></html>`

func parseDoc(t *testing.T, src string) *dom.Arena {
	t.Helper()
	a, err := dom.ParseString(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return a
}

func TestDetect(t *testing.T) {
	a := parseDoc(t, patternDoc)

	var events []capture.Event
	got := Detect(a, func(ev capture.Event) { events = append(events, ev) })

	for _, typ := range []Type{Modal, Tab, Dropdown, Loading} {
		if len(got[typ]) != 1 {
			t.Errorf("%s: got %d instances, want 1", typ, len(got[typ]))
		}
	}
	for _, typ := range []Type{Accordion, Wizard, Carousel} {
		if len(got[typ]) != 0 {
			t.Errorf("%s: got %d instances, want none", typ, len(got[typ]))
		}
	}

	if len(events) != 4 {
		t.Fatalf("emitted %d events, want 4", len(events))
	}
	for _, ev := range events {
		if ev.Type != capture.EventPatternDetected {
			t.Errorf("event type: got %q", ev.Type)
		}
	}
}

func TestDetect_ModalVisibility(t *testing.T) {
	a := parseDoc(t, patternDoc)

	got := Detect(a, nil)
	if got[Modal][0].Visible {
		t.Error("display:none modal reported visible")
	}
	if !got[Tab][0].Visible {
		t.Error("tablist reported hidden")
	}
}

func TestDetect_ItemCounts(t *testing.T) {
	a := parseDoc(t, patternDoc)
	got := Detect(a, nil)

	if n := got[Tab][0].Items; n != 3 {
		t.Errorf("tab items: got %d, want 3", n)
	}
	if n := got[Dropdown][0].Items; n != 2 {
		t.Errorf("dropdown items: got %d, want 2", n)
	}
}

func TestCounts(t *testing.T) {
	a := parseDoc(t, patternDoc)
	counts := Counts(Detect(a, nil))

	if counts["modal"] != 1 || counts["tab"] != 1 {
		t.Errorf("counts: got %v", counts)
	}
	if _, ok := counts["accordion"]; ok {
		t.Error("counts includes undetected pattern")
	}

	if Counts(nil) != nil {
		t.Error("Counts(nil) should be nil")
	}
}

func TestMatch(t *testing.T) {
	a := parseDoc(t, patternDoc)

	modal := a.Query(".modal")[0]
	if got := Match(a, modal); got != "modal" {
		t.Errorf("Match(modal): got %q", got)
	}

	spinner := a.Query(".spinner")[0]
	if got := Match(a, spinner); got != "loading" {
		t.Errorf("Match(spinner): got %q", got)
	}

	plain := a.Query("p")[0]
	if got := Match(a, plain); got != "" {
		t.Errorf("Match(plain): got %q, want empty", got)
	}
}
