package dom

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// hideClasses are class names that conventionally hide an element.
var hideClasses = map[string]bool{
	"hidden":    true,
	"hide":      true,
	"d-none":    true,
	"invisible": true,
	"collapse":  true,
	"sr-only":   true,
}

// showClasses are class names that conventionally reveal an element that a
// framework toggles (Bootstrap modals, tabs, collapses).
var showClasses = map[string]bool{
	"show":    true,
	"shown":   true,
	"visible": true,
	"active":  true,
	"open":    true,
	"in":      true,
	"d-block": true,
	"d-flex":  true,
}

// VisibilityInfo is the computed visibility of a node. Without a layout
// engine the computation is heuristic: inline styles, the hidden attribute,
// conventional show/hide classes, and recorded layout bounds when present.
type VisibilityInfo struct {
	IsVisible    bool
	Display      string
	Visibility   string
	Opacity      float64
	InViewport   bool
	HasHideClass bool
	HasShowClass bool
}

// ComputeVisibility derives the visibility of a handle. An element with a
// known zero-size bounding box is not visible regardless of styles; unknown
// bounds do not count against it (static parses have no layout).
func (a *Arena) ComputeVisibility(h Handle) VisibilityInfo {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.computeVisibility(h)
}

func (a *Arena) computeVisibility(h Handle) VisibilityInfo {
	info := VisibilityInfo{Opacity: 1}
	n := a.nodes[h]
	if n == nil {
		return info
	}

	style := parseInlineStyle(nodeAttr(n, "style"))
	info.Display = style["display"]
	info.Visibility = style["visibility"]
	if op, ok := style["opacity"]; ok {
		if f, err := strconv.ParseFloat(op, 64); err == nil {
			info.Opacity = f
		}
	}

	classes := strings.Fields(nodeAttr(n, "class"))
	for _, c := range classes {
		if hideClasses[c] {
			info.HasHideClass = true
		}
		if showClasses[c] {
			info.HasShowClass = true
		}
	}

	visible := true
	if info.Display == "none" || info.Visibility == "hidden" || info.Opacity <= 0 {
		visible = false
	}
	if nodeHasAttr(n, "hidden") || nodeAttr(n, "aria-hidden") == "true" {
		visible = false
	}
	if info.HasHideClass && !info.HasShowClass {
		visible = false
	}

	// Inline styles on ancestors hide the whole subtree.
	if visible {
		for p := n.Parent; p != nil; p = p.Parent {
			if p.Type != html.ElementNode {
				continue
			}
			ps := parseInlineStyle(nodeAttr(p, "style"))
			if ps["display"] == "none" || ps["visibility"] == "hidden" || nodeHasAttr(p, "hidden") {
				visible = false
				break
			}
		}
	}

	if r, ok := a.bounds[h]; ok {
		if r.Zero() {
			visible = false
		}
		info.InViewport = intersects(r, a.viewport)
	}

	info.IsVisible = visible
	return info
}

// Visible is a shorthand for ComputeVisibility(h).IsVisible.
func (a *Arena) Visible(h Handle) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.computeVisibility(h).IsVisible
}

// parseInlineStyle splits "display: none; opacity: 0.5" into a map.
func parseInlineStyle(style string) map[string]string {
	out := map[string]string{}
	for _, decl := range strings.Split(style, ";") {
		k, v, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		out[strings.ToLower(strings.TrimSpace(k))] = strings.ToLower(strings.TrimSpace(v))
	}
	return out
}

func intersects(a, b Rect) bool {
	if a.Zero() || b.Zero() {
		return false
	}
	return a.X < b.X+b.Width && a.X+a.Width > b.X &&
		a.Y < b.Y+b.Height && a.Y+a.Height > b.Y
}
