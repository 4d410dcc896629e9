package selector

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/osawyer/domscope/dom"
)

// firstIn parses the document and returns the first element matching the
// query, failing the test when nothing matches.
func firstIn(t *testing.T, html, query string) (*dom.Arena, dom.Handle) {
	t.Helper()
	a, err := dom.ParseString(html)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	matches := a.Query(query)
	if len(matches) == 0 {
		t.Fatalf("no element matches %q", query)
	}
	return a, matches[0]
}

func TestCSS_TestIDBeatsEverything(t *testing.T) {
	a, h := firstIn(t,
		`<html><body><button id="save" class="btn primary" data-testid="save-button" aria-label="Save">Save</button></body></html>`,
		"button")

	got := CSS(a, h)
	want := `[data-testid="save-button"]`
	if got != want {
		t.Errorf("CSS: got %q, want %q", got, want)
	}
}

func TestCSS_TestHookOrder(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{"data-test", `<div data-test="panel"></div>`, `[data-test="panel"]`},
		{"data-cy", `<div data-cy="nav-menu"></div>`, `[data-cy="nav-menu"]`},
		{"testid over test", `<div data-test="b" data-testid="a"></div>`, `[data-testid="a"]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, h := firstIn(t, "<html><body>"+tt.html+"</body></html>", "div")
			if got := CSS(a, h); got != tt.want {
				t.Errorf("CSS: got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCSS_StableID(t *testing.T) {
	a, h := firstIn(t,
		`<html><body><button id="submit-button">Go</button></body></html>`,
		"button")

	if got := CSS(a, h); got != "#submit-button" {
		t.Errorf("CSS: got %q, want #submit-button", got)
	}
}

func TestCSS_DynamicIDFallsThrough(t *testing.T) {
	a, h := firstIn(t,
		`<html><body><input id="field-1823" name="email"></body></html>`,
		"input")

	got := CSS(a, h)
	if got == "#field-1823" {
		t.Fatalf("CSS used dynamic id %q", got)
	}
	want := `input[name="email"]`
	if got != want {
		t.Errorf("CSS: got %q, want %q", got, want)
	}
}

func TestCSS_AriaLabel(t *testing.T) {
	a, h := firstIn(t,
		`<html><body><button aria-label="Close dialog"></button></body></html>`,
		"button")

	want := `button[aria-label="Close dialog"]`
	if got := CSS(a, h); got != want {
		t.Errorf("CSS: got %q, want %q", got, want)
	}
}

func TestCSS_StableClassesSkipUtilities(t *testing.T) {
	a, h := firstIn(t,
		`<html><body><div class="col-md-6 text-center product-card mt-2 featured highlight"></div></body></html>`,
		"div")

	// Utility and digit-suffixed names are skipped; at most two survive.
	want := "div.product-card.featured"
	if got := CSS(a, h); got != want {
		t.Errorf("CSS: got %q, want %q", got, want)
	}
}

func TestCSS_RadioValue(t *testing.T) {
	a, h := firstIn(t,
		`<html><body><input type="radio" value="express"></body></html>`,
		"input")

	want := `input[type="radio"][value="express"]`
	if got := CSS(a, h); got != want {
		t.Errorf("CSS: got %q, want %q", got, want)
	}
}

func TestCSS_Placeholder(t *testing.T) {
	a, h := firstIn(t,
		`<html><body><input placeholder="Search products"></body></html>`,
		"input")

	want := `input[type="text"][placeholder="Search products"]`
	if got := CSS(a, h); got != want {
		t.Errorf("CSS: got %q, want %q", got, want)
	}
}

func TestCSS_ButtonText(t *testing.T) {
	a, h := firstIn(t,
		`<html><body><button class="col-12">Add to cart</button></body></html>`,
		"button")

	want := `button:contains("Add to cart")`
	if got := CSS(a, h); got != want {
		t.Errorf("CSS: got %q, want %q", got, want)
	}
}

func TestCSS_ButtonTextClipsOnRuneBoundary(t *testing.T) {
	// 3-byte runes put the 40-byte clip mid-rune; the selector must stay
	// valid UTF-8 for downstream engines.
	a, h := firstIn(t,
		`<html><body><button>`+strings.Repeat("€", 30)+`</button></body></html>`,
		"button")

	got := CSS(a, h)
	// 40 bytes of 3-byte runes backs off to 39: thirteen whole runes, no
	// stray escaped byte.
	want := `button:contains("` + strings.Repeat("€", 13) + `")`
	if got != want {
		t.Errorf("CSS: got %q, want %q", got, want)
	}
	if !utf8.ValidString(got) {
		t.Fatalf("selector is invalid UTF-8: %q", got)
	}
}

func TestCSS_LinkHref(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{"real href", `<a href="/checkout"></a>`, `a[href="/checkout"]`},
		{"hash href falls through", `<a href="#"></a>`, "a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, h := firstIn(t, "<html><body>"+tt.html+"</body></html>", "a")
			if got := CSS(a, h); got != tt.want {
				t.Errorf("CSS: got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCSS_BareTagLastResort(t *testing.T) {
	a, h := firstIn(t, `<html><body><section></section></body></html>`, "section")

	if got := CSS(a, h); got != "section" {
		t.Errorf("CSS: got %q, want section", got)
	}
}

func TestStableClasses(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"col-md-6 mt-2", 0},
		{"product-card", 1},
		{"a b c d", 2}, // capped at two
		{"item-42 list", 1},
	}
	for _, tt := range tests {
		if got := stableClasses(tt.in); len(got) != tt.want {
			t.Errorf("stableClasses(%q): got %v, want %d names", tt.in, got, tt.want)
		}
	}
}
