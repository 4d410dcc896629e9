package inspect

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/osawyer/domscope/dom"
	"github.com/osawyer/domscope/inspect/capture"
	"github.com/osawyer/domscope/inspect/internal/sink"
	"github.com/osawyer/domscope/observe"
	"github.com/osawyer/domscope/store"
)

const pageDoc = `<html><head><title>Signup</title></head><body>
<main>
  <form id="signup">
    <input type="email" name="email" placeholder="Email">
    <button type="submit" data-testid="signup-button">Sign up</button>
  </form>
  <div class="modal" style="display: none">Welcome aboard</div>
</main>
</body></html>`

func newInspector(t *testing.T, opts ...Option) (*Inspector, *observe.Local) {
	t.Helper()
	a, err := dom.ParseString(pageDoc)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	src := observe.NewLocal(a)

	cfg := DefaultConfig()
	cfg.Page.URL = "https://app.example/signup"

	insp, err := New(cfg, a, src, opts...)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	t.Cleanup(func() { insp.Close() })
	return insp, src
}

func TestAnalyzeDOM(t *testing.T) {
	insp, _ := newInspector(t)

	els := insp.AnalyzeDOM()
	if len(els) == 0 {
		t.Fatal("no elements extracted")
	}

	var btn *capture.ElementDescriptor
	for i := range els {
		if els[i].TagName == "button" {
			btn = &els[i]
		}
	}
	if btn == nil {
		t.Fatal("button not extracted")
	}
	if btn.CSSSelector != `[data-testid="signup-button"]` {
		t.Errorf("selector: got %q", btn.CSSSelector)
	}
	if !strings.HasPrefix(btn.XPath, "/html/body/") {
		t.Errorf("xpath: got %q", btn.XPath)
	}
}

func TestCaptureContext_DeliversToSink(t *testing.T) {
	var got []capture.Context
	collector := sink.NewCallback(func(_ context.Context, c capture.Context) error {
		got = append(got, c)
		return nil
	}, nil)
	insp, _ := newInspector(t, WithSink(collector))

	c, err := insp.CaptureContext(context.Background())
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if c.URL != "https://app.example/signup" {
		t.Errorf("url: got %q", c.URL)
	}
	if c.Title != "Signup" {
		t.Errorf("title: got %q", c.Title)
	}
	if len(got) != 1 || got[0].ID != c.ID {
		t.Fatalf("sink deliveries: %d", len(got))
	}
}

func TestHighlight_SaveAndRestore(t *testing.T) {
	insp, _ := newInspector(t)
	a := insp.arena

	if err := insp.HighlightElement(".modal"); err != nil {
		t.Fatalf("highlight: %v", err)
	}
	h := a.Query(".modal")[0]
	style := a.Attr(h, "style")
	if !strings.Contains(style, "outline: 2px solid") {
		t.Errorf("style after highlight: %q", style)
	}
	if !strings.Contains(style, "display: none") {
		t.Errorf("previous style lost: %q", style)
	}

	if err := insp.RemoveHighlight(".modal"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if got := a.Attr(h, "style"); got != "display: none" {
		t.Errorf("style after restore: %q", got)
	}
}

func TestHighlight_RestoreRemovesAddedStyleAttr(t *testing.T) {
	insp, _ := newInspector(t)
	a := insp.arena

	if err := insp.HighlightElement("#signup"); err != nil {
		t.Fatalf("highlight: %v", err)
	}
	h := a.Query("#signup")[0]
	if !a.HasAttr(h, "style") {
		t.Fatal("highlight did not set style")
	}

	if err := insp.RemoveHighlight(""); err != nil { // empty selector clears all
		t.Fatalf("remove all: %v", err)
	}
	if a.HasAttr(h, "style") {
		t.Error("style attribute not removed from an element that had none")
	}
}

func TestHighlight_NoMatch(t *testing.T) {
	insp, _ := newInspector(t)
	if err := insp.HighlightElement(".nope"); err == nil {
		t.Error("want error for unmatched selector")
	}
}

func TestTracking_CapturesMutations(t *testing.T) {
	var mu sync.Mutex
	var events []capture.Event
	collector := sink.NewCallback(nil, func(_ context.Context, ev capture.Event) error {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
		return nil
	})
	insp, src := newInspector(t, WithSink(collector))

	ctx := context.Background()
	insp.StartTracking(ctx)
	insp.StartTracking(ctx) // idempotent

	modal := insp.arena.Query(".modal")[0]
	src.SetAttr(modal, "style", "display: block")

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		var seen bool
		for _, ev := range events {
			if ev.Type == capture.EventVisibilityChange {
				seen = true
			}
		}
		mu.Unlock()
		if seen {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("visibility change never reached the sink")
		}
		time.Sleep(10 * time.Millisecond)
	}

	insp.StopTracking()
	insp.StopTracking()
}

func TestChatID_StoreFallback(t *testing.T) {
	st := store.OpenMemory(t)
	insp, _ := newInspector(t, WithStore(st))
	ctx := context.Background()

	if got := insp.ChatID(ctx); got != "" {
		t.Errorf("chat id before set: %q", got)
	}

	if err := insp.SetChatID(ctx, "chat-77"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got := insp.ChatID(ctx); got != "chat-77" {
		t.Errorf("chat id: got %q", got)
	}

	// A fresh inspector over the same store sees the persisted value.
	a, err := dom.ParseString(pageDoc)
	if err != nil {
		t.Fatal(err)
	}
	cfg := DefaultConfig()
	other, err := New(cfg, a, observe.NewLocal(a), WithStore(st))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer other.Close()
	if got := other.ChatID(ctx); got != "chat-77" {
		t.Errorf("persisted chat id: got %q", got)
	}
}

func TestStore_ReceivesCaptures(t *testing.T) {
	st := store.OpenMemory(t)
	insp, _ := newInspector(t, WithStore(st))
	ctx := context.Background()

	c, err := insp.CaptureContext(ctx)
	if err != nil {
		t.Fatalf("capture: %v", err)
	}

	latest, err := st.LatestContext(ctx, "")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest == nil || latest.ID != c.ID {
		t.Errorf("stored context: %+v", latest)
	}
}

func TestRecordInteractionAndValidation(t *testing.T) {
	insp, _ := newInspector(t)
	ctx := context.Background()

	insp.RecordInteraction(capture.Interaction{Type: "click", Timestamp: 1})
	insp.RecordValidation(capture.Validation{Valid: false, Message: "email required", Timestamp: 2})

	c, err := insp.CaptureContext(ctx)
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if c.Interactions.Total != 1 || len(c.Interactions.Recent) != 1 {
		t.Errorf("interactions: %+v", c.Interactions)
	}
	if c.Validations.Total != 1 || c.Validations.Failures != 1 {
		t.Errorf("validations: %+v", c.Validations)
	}
}
