package extract

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/osawyer/domscope/dom"
)

// snippetPolicy strips scripts, styles, event handlers, and anything else
// unsafe before a markup snippet leaves the inspector.
var snippetPolicy = bluemonday.UGCPolicy()

// TextSnippet returns up to n characters of collected text.
func TextSnippet(a *dom.Arena, h dom.Handle, n int) string {
	return clip(a.Text(h), n)
}

// HTMLSnippet returns up to n characters of sanitised inner HTML. The
// sanitiser runs before clipping so a truncated tag cannot smuggle markup
// through.
func HTMLSnippet(a *dom.Arena, h dom.Handle, n int) string {
	var sb strings.Builder
	for _, c := range a.Children(h) {
		sb.WriteString(a.Render(c))
	}
	clean := snippetPolicy.Sanitize(sb.String())
	return clip(strings.TrimSpace(clean), n)
}
