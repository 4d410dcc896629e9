package selector

import (
	"strings"
	"testing"

	"github.com/osawyer/domscope/dom"
)

func TestXPath_Body(t *testing.T) {
	a, err := dom.ParseString(`<html><body><div></div></body></html>`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if got := XPath(a, a.Body()); got != "/html/body" {
		t.Errorf("XPath(body): got %q, want /html/body", got)
	}
	if got := XPath(a, a.Root()); got != "/html" {
		t.Errorf("XPath(html): got %q, want /html", got)
	}
}

func TestXPath_SecondDiv(t *testing.T) {
	a, err := dom.ParseString(`<html><body><div>first</div><div>second</div></body></html>`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	divs := a.Query("div")
	if len(divs) != 2 {
		t.Fatalf("got %d divs, want 2", len(divs))
	}

	got := XPath(a, divs[1])
	if !strings.HasSuffix(got, "/div[2]") {
		t.Errorf("XPath: got %q, want suffix /div[2]", got)
	}
	if got != "/html/body/div[2]" {
		t.Errorf("XPath: got %q, want /html/body/div[2]", got)
	}
}

func TestXPath_IndexOmittedWhenUnique(t *testing.T) {
	a, err := dom.ParseString(`<html><body><main><span>x</span></main></body></html>`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	spans := a.Query("span")
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if got := XPath(a, spans[0]); got != "/html/body/main/span" {
		t.Errorf("XPath: got %q, want /html/body/main/span", got)
	}
}

func TestXPath_MixedSiblings(t *testing.T) {
	// The index counts same-tag siblings only: the p between the divs
	// does not affect div numbering.
	a, err := dom.ParseString(`<html><body><div>a</div><p>b</p><div>c</div></body></html>`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	divs := a.Query("div")
	if got := XPath(a, divs[1]); got != "/html/body/div[2]" {
		t.Errorf("XPath: got %q, want /html/body/div[2]", got)
	}

	ps := a.Query("p")
	if got := XPath(a, ps[0]); got != "/html/body/p" {
		t.Errorf("XPath: got %q, want /html/body/p", got)
	}
}

func TestResolve_RoundTrip(t *testing.T) {
	a, err := dom.ParseString(`<html><body>
		<div><span>one</span></div>
		<div><span>two</span><span>three</span></div>
	</body></html>`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	for _, h := range a.Query("div, span") {
		path := XPath(a, h)
		got := Resolve(a, path)
		if got != h {
			t.Errorf("Resolve(%q): got handle %d, want %d", path, got, h)
		}
	}
}

func TestResolve_Misses(t *testing.T) {
	a, err := dom.ParseString(`<html><body><div></div></body></html>`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	tests := []string{
		"",
		"not-a-path",
		"/html/body/span",
		"/html/body/div[2]",
		"/body/div",
	}
	for _, path := range tests {
		if got := Resolve(a, path); got != 0 {
			t.Errorf("Resolve(%q): got %d, want 0", path, got)
		}
	}
}
