// Package extract reads live element attributes, form state, and
// visibility into plain descriptor records.
package extract

import (
	"unicode/utf8"

	"github.com/osawyer/domscope/dom"
	"github.com/osawyer/domscope/inspect/capture"
	"github.com/osawyer/domscope/selector"
)

// specialAttrs is the fixed allow-list read explicitly in addition to
// whatever the markup carries. Live sources reflect element properties
// (value, checked) into these.
var specialAttrs = []string{
	"id", "name", "type", "value", "placeholder", "href", "src",
	"alt", "title", "role", "aria-label", "for", "action", "method",
	"checked", "selected", "disabled", "required", "readonly",
	"min", "max", "step", "maxlength", "pattern",
	"data-testid", "data-test", "data-cy",
}

// interactiveTags are elements a test generator can act on directly.
var interactiveTags = map[string]bool{
	"a": true, "button": true, "input": true, "select": true,
	"textarea": true, "form": true, "label": true, "option": true,
	"summary": true, "details": true,
}

// interactiveRoles are ARIA roles that make any tag actionable.
var interactiveRoles = map[string]bool{
	"button": true, "link": true, "tab": true, "checkbox": true,
	"radio": true, "switch": true, "menuitem": true, "combobox": true,
	"listbox": true, "textbox": true, "slider": true,
}

// skipTags never contribute descriptors.
var skipTags = map[string]bool{
	"script": true, "style": true, "noscript": true, "template": true,
	"meta": true, "link": true, "html": true, "head": true, "title": true,
}

// Options gate what the extractor includes.
type Options struct {
	// IncludeHidden keeps elements that fail the visibility check.
	IncludeHidden bool
	// OnlyFormElements restricts output to form controls.
	OnlyFormElements bool
	// TestGeneration restricts output to interactive or test-tagged
	// elements — the reduced mode used on aggregation ticks.
	TestGeneration bool
	// MaxDepth bounds the recursive walk. Default: 15.
	MaxDepth int
	// MaxText bounds descriptor text length. Default: 200.
	MaxText int
}

func (o *Options) defaults() {
	if o.MaxDepth <= 0 {
		o.MaxDepth = 15
	}
	if o.MaxText <= 0 {
		o.MaxText = 200
	}
}

// Element reads one element into a descriptor. Empty attribute values are
// dropped.
func Element(a *dom.Arena, h dom.Handle, opts Options) capture.ElementDescriptor {
	opts.defaults()

	attrs := map[string]string{}
	for k, v := range a.Attrs(h) {
		if v != "" {
			attrs[k] = v
		}
	}
	for _, k := range specialAttrs {
		if v := a.Attr(h, k); v != "" {
			attrs[k] = v
		}
	}
	if len(attrs) == 0 {
		attrs = nil
	}

	vis := a.ComputeVisibility(h)

	d := capture.ElementDescriptor{
		TagName:     a.Tag(h),
		XPath:       selector.XPath(a, h),
		CSSSelector: selector.CSS(a, h),
		Attributes:  attrs,
		Text:        clip(a.Text(h), opts.MaxText),
		State: capture.ElementState{
			Visible:  vis.IsVisible,
			Enabled:  !a.HasAttr(h, "disabled"),
			Selected: a.HasAttr(h, "checked") || a.HasAttr(h, "selected") || a.Attr(h, "aria-selected") == "true",
		},
	}

	if r, ok := a.Bounds(h); ok {
		d.BoundingBox = &capture.Box{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}
	}

	return d
}

// Tree walks the subtree under root and extracts every element passing the
// option gates. Depth is capped by early return, so pathological nesting
// cannot recurse unbounded.
func Tree(a *dom.Arena, root dom.Handle, opts Options) []capture.ElementDescriptor {
	opts.defaults()
	var out []capture.ElementDescriptor
	walk(a, root, opts, 0, &out)
	return out
}

func walk(a *dom.Arena, h dom.Handle, opts Options, depth int, out *[]capture.ElementDescriptor) {
	if depth > opts.MaxDepth || h == 0 {
		return
	}

	if wanted(a, h, opts) {
		*out = append(*out, Element(a, h, opts))
	}

	for _, c := range a.Children(h) {
		walk(a, c, opts, depth+1, out)
	}
}

func wanted(a *dom.Arena, h dom.Handle, opts Options) bool {
	tag := a.Tag(h)
	if skipTags[tag] {
		return false
	}
	if !opts.IncludeHidden && !a.Visible(h) {
		return false
	}
	if opts.OnlyFormElements && !formControl(tag) {
		return false
	}
	if opts.TestGeneration && !Testable(a, h) {
		return false
	}
	return true
}

func formControl(tag string) bool {
	switch tag {
	case "input", "select", "textarea", "button", "form", "label", "option", "fieldset":
		return true
	}
	return false
}

// Testable reports whether an element is interactive or carries a test
// hook, making it relevant in test-generation mode.
func Testable(a *dom.Arena, h dom.Handle) bool {
	if interactiveTags[a.Tag(h)] {
		return true
	}
	if interactiveRoles[a.Attr(h, "role")] {
		return true
	}
	if a.HasAttr(h, "onclick") || a.HasAttr(h, "tabindex") {
		return true
	}
	return a.HasAttr(h, "data-testid") || a.HasAttr(h, "data-test") || a.HasAttr(h, "data-cy")
}

// Ref builds the identifier record trackers use for an element.
func Ref(a *dom.Arena, h dom.Handle) capture.ElementRef {
	return capture.ElementRef{
		Tag:   a.Tag(h),
		ID:    a.Attr(h, "id"),
		Class: a.Attr(h, "class"),
		XPath: selector.XPath(a, h),
		CSS:   selector.CSS(a, h),
	}
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	// Back off to a rune boundary so the cut never yields invalid UTF-8.
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
