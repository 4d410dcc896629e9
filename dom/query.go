package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// Query returns all handles matching a CSS selector, evaluated from the
// document root. Supports a practical subset:
//
//   - tag: "button", "select"
//   - .class: ".modal"
//   - #id: "#main"
//   - tag.class, tag#id: "div.modal"
//   - [attr], [attr=val], [attr="val"]: "[role=dialog]"
//   - descendant combinator: ".tabs .tab"
//   - selector lists: ".modal, [role=dialog], dialog"
func (a *Arena) Query(selector string) []Handle {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.queryFrom(0, selector)
}

// QueryFrom evaluates a selector scoped to the subtree of h. A zero handle
// scopes to the whole document.
func (a *Arena) QueryFrom(h Handle, selector string) []Handle {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.queryFrom(h, selector)
}

func (a *Arena) queryFrom(h Handle, selector string) []Handle {
	root := a.doc
	if h != 0 {
		root = a.nodes[h]
		if root == nil {
			return nil
		}
	}

	var out []Handle
	seen := make(map[Handle]bool)
	for _, alt := range strings.Split(selector, ",") {
		alt = strings.TrimSpace(alt)
		if alt == "" {
			continue
		}
		for _, n := range a.queryOne(root, alt) {
			hh := a.register(n)
			if !seen[hh] {
				seen[hh] = true
				out = append(out, hh)
			}
		}
	}
	return out
}

// queryOne evaluates a single compound selector (no commas) under root.
func (a *Arena) queryOne(root *html.Node, selector string) []*html.Node {
	parts := strings.Fields(selector)
	if len(parts) == 0 {
		return nil
	}

	matches := matchSimple(root, parts[0])
	for i := 1; i < len(parts); i++ {
		var next []*html.Node
		for _, parent := range matches {
			next = append(next, matchSimple(parent, parts[i])...)
		}
		matches = next
	}
	return matches
}

// matchSimple finds all descendants of root matching one selector part.
// root itself is not a candidate.
func matchSimple(root *html.Node, sel string) []*html.Node {
	m := parseSimpleSelector(sel)
	var results []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if matchesSelector(c, m) {
				results = append(results, c)
			}
			walk(c)
		}
	}
	walk(root)
	return results
}

type simpleSelector struct {
	tag     string
	id      string
	classes []string
	attrKey string
	attrVal string
	hasVal  bool
}

// parseSimpleSelector parses "tag.class", "#id", "tag[attr=val]", etc.
func parseSimpleSelector(sel string) simpleSelector {
	var s simpleSelector

	if idx := strings.IndexByte(sel, '['); idx >= 0 {
		attrPart := strings.TrimRight(sel[idx+1:], "]")
		sel = sel[:idx]
		if eqIdx := strings.IndexByte(attrPart, '='); eqIdx >= 0 {
			s.attrKey = attrPart[:eqIdx]
			s.attrVal = strings.Trim(attrPart[eqIdx+1:], `"'`)
			s.hasVal = true
		} else {
			s.attrKey = attrPart
		}
	}

	if idx := strings.IndexByte(sel, '#'); idx >= 0 {
		s.id = sel[idx+1:]
		sel = sel[:idx]
	}

	for {
		idx := strings.LastIndexByte(sel, '.')
		if idx < 0 {
			break
		}
		s.classes = append(s.classes, sel[idx+1:])
		sel = sel[:idx]
	}

	s.tag = sel
	return s
}

func matchesSelector(n *html.Node, s simpleSelector) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if s.tag != "" && n.Data != s.tag {
		return false
	}
	if s.id != "" && nodeAttr(n, "id") != s.id {
		return false
	}
	if len(s.classes) > 0 {
		classes := strings.Fields(nodeAttr(n, "class"))
		for _, want := range s.classes {
			found := false
			for _, c := range classes {
				if c == want {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	if s.attrKey != "" {
		if s.hasVal {
			if nodeAttr(n, s.attrKey) != s.attrVal {
				return false
			}
		} else if !nodeHasAttr(n, s.attrKey) {
			return false
		}
	}
	return true
}

func nodeAttr(n *html.Node, key string) string {
	for _, at := range n.Attr {
		if at.Key == key {
			return at.Val
		}
	}
	return ""
}

func nodeHasAttr(n *html.Node, key string) bool {
	for _, at := range n.Attr {
		if at.Key == key {
			return true
		}
	}
	return false
}
