// Package pattern detects common conditional-rendering UI structures with
// fixed selector queries. Custom component markup that matches none of the
// selector lists is simply not reported; false negatives are expected.
package pattern

import (
	"time"

	"github.com/osawyer/domscope/dom"
	"github.com/osawyer/domscope/extract"
	"github.com/osawyer/domscope/inspect/capture"
)

// Type names a detected UI pattern.
type Type string

const (
	Modal     Type = "modal"
	Tab       Type = "tab"
	Accordion Type = "accordion"
	Dropdown  Type = "dropdown"
	Wizard    Type = "wizard"
	Carousel  Type = "carousel"
	Loading   Type = "loading"
)

// queries maps each pattern to its literal selector list. Detection is
// matching, nothing more.
var queries = map[Type]string{
	Modal:     `.modal, [role=dialog], dialog, .popup, .overlay`,
	Tab:       `[role=tablist], .tabs, .nav-tabs, .tab-container`,
	Accordion: `.accordion, [data-accordion], .collapse-group`,
	Dropdown:  `select, .dropdown, [role=listbox], [role=menu]`,
	Wizard:    `.wizard, .steps, .stepper, [data-step]`,
	Carousel:  `.carousel, .slider, .swiper, [data-carousel]`,
	Loading:   `.loading, .spinner, .skeleton, [aria-busy=true]`,
}

// All lists every detectable pattern in a stable order.
var All = []Type{Modal, Tab, Accordion, Dropdown, Wizard, Carousel, Loading}

// Instance is one matched occurrence of a pattern.
type Instance struct {
	Ref     capture.ElementRef `json:"ref"`
	Visible bool               `json:"visible"`
	// Items counts structural children where the pattern has them: tabs
	// in a tablist, sections in an accordion, slides in a carousel.
	Items int `json:"items,omitempty"`
}

// Detect runs every detector against the document and returns the matches
// per pattern. Each non-empty result is also reported through emit as a
// pattern_detected event; emit may be nil.
func Detect(a *dom.Arena, emit func(capture.Event)) map[Type][]Instance {
	out := make(map[Type][]Instance)

	for _, typ := range All {
		handles := a.Query(queries[typ])
		if len(handles) == 0 {
			continue
		}

		instances := make([]Instance, 0, len(handles))
		for _, h := range handles {
			instances = append(instances, Instance{
				Ref:     extract.Ref(a, h),
				Visible: a.Visible(h),
				Items:   itemCount(a, h, typ),
			})
		}
		out[typ] = instances

		if emit != nil {
			emit(capture.Event{
				Type:      capture.EventPatternDetected,
				Timestamp: time.Now().UnixMilli(),
				Element:   instances[0].Ref,
				Pattern:   string(typ),
				Instances: len(instances),
			})
		}
	}

	return out
}

// itemCount inspects the children structurally for patterns that have
// countable parts.
func itemCount(a *dom.Arena, h dom.Handle, typ Type) int {
	switch typ {
	case Tab:
		if n := len(a.QueryFrom(h, `[role=tab]`)); n > 0 {
			return n
		}
		return len(a.QueryFrom(h, `li`))
	case Accordion:
		if n := len(a.QueryFrom(h, `[aria-expanded]`)); n > 0 {
			return n
		}
		return len(a.Children(h))
	case Dropdown:
		if a.Tag(h) == "select" {
			return len(a.QueryFrom(h, `option`))
		}
		return len(a.QueryFrom(h, `li, [role=option], [role=menuitem]`))
	case Carousel, Wizard:
		return len(a.Children(h))
	}
	return 0
}

// Counts condenses a detection result to instance counts per pattern name.
func Counts(detected map[Type][]Instance) map[string]int {
	if len(detected) == 0 {
		return nil
	}
	out := make(map[string]int, len(detected))
	for typ, inst := range detected {
		out[string(typ)] = len(inst)
	}
	return out
}

// Match returns the first pattern whose selector list matches the element
// itself, or "". Used to annotate tracked elements.
func Match(a *dom.Arena, h dom.Handle) string {
	parent := a.Parent(h)
	for _, typ := range All {
		for _, m := range a.QueryFrom(parent, queries[typ]) {
			if m == h {
				return string(typ)
			}
		}
	}
	return ""
}
