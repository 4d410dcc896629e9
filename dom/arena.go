// Package dom provides an arena-indexed model of a parsed HTML document.
//
// Every element node observed by the inspector is assigned a stable integer
// Handle at first sight. All per-node bookkeeping elsewhere in the module is
// keyed by Handle, never by node pointer, so state maps survive re-parses
// and never form ownership edges to live nodes.
package dom

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"golang.org/x/net/html"
)

// Handle is a stable identifier for a node within an Arena. The zero value
// is never assigned.
type Handle int

// Rect is a layout bounding box in CSS pixels.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Zero reports whether the box has no area.
func (r Rect) Zero() bool { return r.Width <= 0 || r.Height <= 0 }

// Arena owns a parsed document and the handle index over it.
//
// All methods are safe for concurrent use. A single mutex serialises
// reads and mutations: the mirror goroutine replays page mutations while
// the aggregator and trackers walk the tree, and even read paths assign
// handles on first sight, so the index maps are written from both sides.
type Arena struct {
	mu      sync.Mutex
	doc     *html.Node
	nodes   map[Handle]*html.Node
	handles map[*html.Node]Handle
	bounds  map[Handle]Rect
	next    Handle

	viewport Rect
}

// Parse reads an HTML document and indexes every element node.
func Parse(r io.Reader) (*Arena, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("dom: parse: %w", err)
	}
	a := &Arena{
		doc:      doc,
		nodes:    make(map[Handle]*html.Node),
		handles:  make(map[*html.Node]Handle),
		bounds:   make(map[Handle]Rect),
		next:     1,
		viewport: Rect{Width: 1280, Height: 800},
	}
	a.indexSubtree(doc)
	return a, nil
}

// ParseString parses an HTML document held in a string.
func ParseString(s string) (*Arena, error) {
	return Parse(strings.NewReader(s))
}

// indexSubtree and register require a.mu held (Parse excepted: the arena
// is not yet shared there).
func (a *Arena) indexSubtree(n *html.Node) {
	if n.Type == html.ElementNode {
		a.register(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		a.indexSubtree(c)
	}
}

func (a *Arena) register(n *html.Node) Handle {
	if h, ok := a.handles[n]; ok {
		return h
	}
	h := a.next
	a.next++
	a.nodes[h] = n
	a.handles[n] = h
	return h
}

// HandleOf returns the handle for a node, assigning one on first sight.
func (a *Arena) HandleOf(n *html.Node) Handle {
	if n == nil || n.Type != html.ElementNode {
		return 0
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.register(n)
}

// Node returns the underlying node for a handle, or nil if the handle has
// been released or never existed. Intended for existence checks; callers
// must not traverse the returned node while the arena is shared.
func (a *Arena) Node(h Handle) *html.Node {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.nodes[h]
}

// Len returns the number of live handles.
func (a *Arena) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.nodes)
}

// Root returns the handle of the <html> element.
func (a *Arena) Root() Handle {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.firstByTag("html")
}

// Body returns the handle of the <body> element.
func (a *Arena) Body() Handle {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.firstByTag("body")
}

func (a *Arena) firstByTag(tag string) Handle {
	var found *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found != nil {
			return
		}
		if n.Type == html.ElementNode && n.Data == tag {
			found = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(a.doc)
	if found == nil {
		return 0
	}
	return a.register(found)
}

// Parent returns the handle of the nearest element ancestor, or 0.
func (a *Arena) Parent(h Handle) Handle {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := a.nodes[h]
	if n == nil {
		return 0
	}
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode {
			return a.register(p)
		}
	}
	return 0
}

// Children returns the handles of direct element children in document order.
func (a *Arena) Children(h Handle) []Handle {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := a.nodes[h]
	if n == nil {
		return nil
	}
	var out []Handle
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, a.register(c))
		}
	}
	return out
}

// Descendants returns all element descendants of h in document order,
// h excluded.
func (a *Arena) Descendants(h Handle) []Handle {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := a.nodes[h]
	if n == nil {
		return nil
	}
	var out []Handle
	var walk func(*html.Node)
	walk = func(m *html.Node) {
		for c := m.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode {
				out = append(out, a.register(c))
			}
			walk(c)
		}
	}
	walk(n)
	return out
}

// Tag returns the lower-case tag name for a handle, or "".
func (a *Arena) Tag(h Handle) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := a.nodes[h]
	if n == nil {
		return ""
	}
	return n.Data
}

// Attr returns the value of an attribute, or "".
func (a *Arena) Attr(h Handle, name string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := a.nodes[h]
	if n == nil {
		return ""
	}
	return nodeAttr(n, name)
}

// HasAttr reports whether the attribute is present, even when empty.
func (a *Arena) HasAttr(h Handle, name string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := a.nodes[h]
	if n == nil {
		return false
	}
	return nodeHasAttr(n, name)
}

// Attrs returns all attributes as a map. Empty values are kept; the
// extractor decides what to drop.
func (a *Arena) Attrs(h Handle) map[string]string {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := a.nodes[h]
	if n == nil {
		return nil
	}
	out := make(map[string]string, len(n.Attr))
	for _, at := range n.Attr {
		out[at.Key] = at.Val
	}
	return out
}

// Text returns the concatenated text content of the subtree, whitespace
// collapsed.
func (a *Arena) Text(h Handle) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := a.nodes[h]
	if n == nil {
		return ""
	}
	return collectText(n)
}

func collectText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(m *html.Node) {
		if m.Type == html.TextNode {
			sb.WriteString(m.Data)
			sb.WriteByte(' ')
		}
		if m.Type == html.ElementNode && (m.Data == "script" || m.Data == "style") {
			return
		}
		for c := m.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}

// Render serialises the subtree rooted at h as HTML.
func (a *Arena) Render(h Handle) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := a.nodes[h]
	if n == nil {
		return ""
	}
	var sb strings.Builder
	if err := html.Render(&sb, n); err != nil {
		return ""
	}
	return sb.String()
}

// SetBounds records a layout bounding box for a handle. Bounds come from a
// live layout engine; the static parse path never has them.
func (a *Arena) SetBounds(h Handle, r Rect) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.nodes[h] != nil {
		a.bounds[h] = r
	}
}

// Bounds returns the recorded layout box and whether one is known.
func (a *Arena) Bounds(h Handle) (Rect, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	r, ok := a.bounds[h]
	return r, ok
}

// SetViewport records the viewport dimensions used for in-viewport checks.
func (a *Arena) SetViewport(r Rect) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.viewport = r
}

// Viewport returns the current viewport rect.
func (a *Arena) Viewport() Rect {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.viewport
}

// SetAttr sets an attribute and returns the previous value.
func (a *Arena) SetAttr(h Handle, name, value string) (old string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := a.nodes[h]
	if n == nil {
		return ""
	}
	for i, at := range n.Attr {
		if at.Key == name {
			old = at.Val
			n.Attr[i].Val = value
			return old
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: value})
	return ""
}

// RemoveAttr deletes an attribute and returns the previous value.
func (a *Arena) RemoveAttr(h Handle, name string) (old string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := a.nodes[h]
	if n == nil {
		return ""
	}
	for i, at := range n.Attr {
		if at.Key == name {
			old = at.Val
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return old
		}
	}
	return ""
}

// SetText replaces the subtree of h with a single text node and returns the
// previous collected text.
func (a *Arena) SetText(h Handle, text string) (old string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := a.nodes[h]
	if n == nil {
		return ""
	}
	old = collectText(n)
	a.releaseChildren(n)
	for n.FirstChild != nil {
		n.RemoveChild(n.FirstChild)
	}
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	return old
}

// SetTextNode updates the data of the single text node at index idx of
// parent's child list (element, text, and comment nodes all count, the
// way DOM childNodes does). Element siblings are untouched, so mixed
// content keeps its structure across text changes. A missing text node
// at that position is spliced in, so a mirror that never saw the node's
// insertion still converges. Returns the node's previous data and
// whether anything was applied.
func (a *Arena) SetTextNode(parent Handle, idx int, text string) (old string, ok bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := a.nodes[parent]
	if n == nil || idx < 0 {
		return "", false
	}

	i := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if i == idx {
			if c.Type == html.TextNode {
				old = c.Data
				c.Data = text
				return old, true
			}
			n.InsertBefore(&html.Node{Type: html.TextNode, Data: text}, c)
			return "", true
		}
		i++
	}
	if i == idx {
		n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
		return "", true
	}
	return "", false
}

// InsertHTML parses a fragment in the context of the parent element and
// appends it, returning the handles of the inserted top-level elements.
func (a *Arena) InsertHTML(parent Handle, fragment string) ([]Handle, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := a.nodes[parent]
	if n == nil {
		return nil, fmt.Errorf("dom: insert: unknown handle %d", parent)
	}
	frags, err := html.ParseFragment(strings.NewReader(fragment), n)
	if err != nil {
		return nil, fmt.Errorf("dom: parse fragment: %w", err)
	}
	var out []Handle
	for _, f := range frags {
		n.AppendChild(f)
		a.indexSubtree(f)
		if f.Type == html.ElementNode {
			out = append(out, a.register(f))
		}
	}
	return out, nil
}

// Remove detaches the subtree rooted at h and releases every handle in it.
func (a *Arena) Remove(h Handle) {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := a.nodes[h]
	if n == nil {
		return
	}
	a.releaseSubtree(n)
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// Release drops the handle index entries for h without touching the tree.
// Used when a consumer un-tracks a node it no longer cares about.
func (a *Arena) Release(h Handle) {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := a.nodes[h]
	if n == nil {
		return
	}
	delete(a.nodes, h)
	delete(a.handles, n)
	delete(a.bounds, h)
}

func (a *Arena) releaseSubtree(n *html.Node) {
	if h, ok := a.handles[n]; ok {
		delete(a.nodes, h)
		delete(a.bounds, h)
		delete(a.handles, n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		a.releaseSubtree(c)
	}
}

func (a *Arena) releaseChildren(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		a.releaseSubtree(c)
	}
}
