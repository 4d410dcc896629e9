// Package selector derives re-locatable CSS and XPath expressions for
// arena nodes. Generated selectors optimise for readability and resilience
// to DOM churn, not for guaranteed uniqueness: no rule verifies its match
// count against the live document.
package selector

import (
	"fmt"
	"strings"

	"github.com/osawyer/domscope/dom"
)

// XPath builds a positional XPath from the document root to the element.
// The index suffix [n] is omitted only when the element has neither
// preceding nor following siblings of the same tag. The body element is
// always /html/body.
func XPath(a *dom.Arena, h dom.Handle) string {
	tag := a.Tag(h)
	if tag == "" {
		return ""
	}

	switch tag {
	case "html":
		return "/html"
	case "body":
		return "/html/body"
	case "head":
		return "/html/head"
	}

	var segments []string
	for cur := h; cur != 0; cur = a.Parent(cur) {
		t := a.Tag(cur)
		if t == "html" {
			segments = append(segments, "html")
			break
		}
		segments = append(segments, step(a, cur))
	}

	// Built leaf-first; reverse into root-first order.
	for i, j := 0, len(segments)-1; i < j; i, j = i+1, j-1 {
		segments[i], segments[j] = segments[j], segments[i]
	}
	return "/" + strings.Join(segments, "/")
}

// step renders one path segment for an element, with a 1-based positional
// index among same-tag siblings when needed.
func step(a *dom.Arena, h dom.Handle) string {
	tag := a.Tag(h)
	parent := a.Parent(h)
	if parent == 0 {
		return tag
	}

	index, total := 0, 0
	for _, sib := range a.Children(parent) {
		if a.Tag(sib) != tag {
			continue
		}
		total++
		if sib == h {
			index = total
		}
	}

	if total > 1 {
		return fmt.Sprintf("%s[%d]", tag, index)
	}
	return tag
}
