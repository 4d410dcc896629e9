package aggregate

import (
	"sort"
	"strings"
	"unicode/utf8"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/osawyer/domscope/dom"
	"github.com/osawyer/domscope/inspect/capture"
	"github.com/osawyer/domscope/inspect/internal/pattern"
)

const (
	maxSelectorsInSummary = 10
	maxEventTypes         = 10
	maxExcerptLen         = 400
)

var landmarkTags = []string{"main", "nav", "header", "footer", "aside", "article", "form"}

// buildSummary derives the low-volume digest from an already-assembled
// context. It reads counts and selectors out of the context rather than
// re-walking the tree.
func buildSummary(a *dom.Arena, c *capture.Context, detected map[pattern.Type][]pattern.Instance) capture.Summary {
	s := capture.Summary{
		ElementCounts: map[string]int{},
		PatternCounts: pattern.Counts(detected),
	}

	for _, el := range c.DOMState.Elements {
		s.ElementCounts[el.TagName]++
		if el.State.Visible && el.State.Enabled && el.CSSSelector != "" &&
			len(s.InteractiveSelectors) < maxSelectorsInSummary {
			s.InteractiveSelectors = append(s.InteractiveSelectors, el.CSSSelector)
		}
	}

	seen := map[string]bool{}
	for _, ev := range c.ConditionalRendering.Events {
		if seen[string(ev.Type)] {
			continue
		}
		seen[string(ev.Type)] = true
		s.RecentEventTypes = append(s.RecentEventTypes, string(ev.Type))
		if len(s.RecentEventTypes) >= maxEventTypes {
			break
		}
	}
	sort.Strings(s.RecentEventTypes)

	s.Landmarks = landmarks(a)
	s.Excerpt = excerpt(a)
	return s
}

// landmarks lists the structural landmark tags present on the page.
func landmarks(a *dom.Arena) []string {
	var out []string
	for _, tag := range landmarkTags {
		if len(a.Query(tag)) > 0 {
			out = append(out, tag)
		}
	}
	return out
}

// excerpt converts the main landmark region (or the body when no main
// exists) to markdown and clips it. Conversion failures yield an empty
// excerpt rather than an error: the digest is best-effort.
func excerpt(a *dom.Arena) string {
	root := a.Body()
	if mains := a.Query("main"); len(mains) > 0 {
		root = mains[0]
	}
	if root == 0 {
		return ""
	}

	raw := a.Render(root)
	if raw == "" {
		return ""
	}
	md, err := htmltomarkdown.ConvertString(raw)
	if err != nil {
		return ""
	}
	md = strings.TrimSpace(md)
	if len(md) > maxExcerptLen {
		cut := maxExcerptLen
		for cut > 0 && !utf8.RuneStart(md[cut]) {
			cut--
		}
		md = md[:cut] + "…"
	}
	return md
}
