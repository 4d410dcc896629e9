package dom

import "testing"

func parseDoc(t *testing.T, html string) *Arena {
	t.Helper()
	a, err := ParseString(html)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return a
}

func TestComputeVisibility_InlineStyles(t *testing.T) {
	tests := []struct {
		name string
		html string
		want bool
	}{
		{"plain", `<div>x</div>`, true},
		{"display none", `<div style="display: none">x</div>`, false},
		{"visibility hidden", `<div style="visibility: hidden">x</div>`, false},
		{"zero opacity", `<div style="opacity: 0">x</div>`, false},
		{"partial opacity", `<div style="opacity: 0.5">x</div>`, true},
		{"hidden attr", `<div hidden>x</div>`, false},
		{"aria-hidden", `<div aria-hidden="true">x</div>`, false},
		{"hide class", `<div class="d-none">x</div>`, false},
		{"hide class overridden by show class", `<div class="collapse show">x</div>`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := parseDoc(t, "<html><body>"+tt.html+"</body></html>")
			divs := a.Query("div")
			if len(divs) != 1 {
				t.Fatalf("got %d divs, want 1", len(divs))
			}
			if got := a.Visible(divs[0]); got != tt.want {
				t.Errorf("Visible: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestComputeVisibility_AncestorHides(t *testing.T) {
	a := parseDoc(t, `<html><body><div style="display:none"><span>x</span></div></body></html>`)
	spans := a.Query("span")
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if a.Visible(spans[0]) {
		t.Error("span inside display:none ancestor reported visible")
	}
}

func TestComputeVisibility_Bounds(t *testing.T) {
	a := parseDoc(t, `<html><body><div>x</div></body></html>`)
	h := a.Query("div")[0]

	// Unknown bounds do not count against visibility.
	if !a.Visible(h) {
		t.Fatal("unknown bounds should not hide the element")
	}

	a.SetBounds(h, Rect{})
	if a.Visible(h) {
		t.Error("zero-size bounds should hide the element")
	}

	a.SetBounds(h, Rect{X: 10, Y: 10, Width: 100, Height: 30})
	info := a.ComputeVisibility(h)
	if !info.IsVisible {
		t.Error("sized element reported hidden")
	}
	if !info.InViewport {
		t.Error("element inside the viewport reported out of view")
	}

	a.SetBounds(h, Rect{X: 5000, Y: 5000, Width: 100, Height: 30})
	if a.ComputeVisibility(h).InViewport {
		t.Error("element far outside the viewport reported in view")
	}
}

func TestParseInlineStyle(t *testing.T) {
	got := parseInlineStyle("Display: None; opacity:0.5 ; border: 1px")
	if got["display"] != "none" {
		t.Errorf("display: got %q, want none", got["display"])
	}
	if got["opacity"] != "0.5" {
		t.Errorf("opacity: got %q, want 0.5", got["opacity"])
	}
}
