// Package capture defines the structured types emitted by the inspector.
// These are the public API contract: any consumer (test generators, custom
// pipelines) imports this package to receive and process page context.
package capture

// Box is a layout bounding box in CSS pixels.
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ElementState captures the interactive state of an element at extraction
// time.
type ElementState struct {
	Visible  bool `json:"visible"`
	Enabled  bool `json:"enabled"`
	Selected bool `json:"selected"`
}

// ElementDescriptor is an immutable per-pass snapshot of one element. It is
// never kept between passes except for diffing.
type ElementDescriptor struct {
	TagName     string            `json:"tag_name"`
	XPath       string            `json:"xpath"`
	CSSSelector string            `json:"css_selector"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	Text        string            `json:"text,omitempty"`
	BoundingBox *Box              `json:"bounding_box,omitempty"`
	State       ElementState      `json:"state"`
}

// ElementRef identifies a tracked element across events without holding a
// node reference.
type ElementRef struct {
	Tag   string `json:"tag"`
	ID    string `json:"id,omitempty"`
	Class string `json:"class,omitempty"`
	XPath string `json:"xpath"`
	CSS   string `json:"css"`
}

// VisibilityState is the tracked visibility of a conditional element.
type VisibilityState struct {
	IsVisible            bool    `json:"is_visible"`
	Display              string  `json:"display,omitempty"`
	Visibility           string  `json:"visibility,omitempty"`
	Opacity              float64 `json:"opacity"`
	InViewport           bool    `json:"in_viewport"`
	HasVisibilityClasses bool    `json:"has_visibility_classes"`
	HasShowClasses       bool    `json:"has_show_classes"`
}

// ContentState is the tracked content of a conditional element.
type ContentState struct {
	TextSnippet      string `json:"text_snippet,omitempty"`
	InnerHTMLSnippet string `json:"inner_html_snippet,omitempty"`
	ChildCount       int    `json:"child_count"`
	HasLoadingState  bool   `json:"has_loading_state"`
	IsEmpty          bool   `json:"is_empty"`
}

// TrackedElement is the bookkeeping record for one conditionally rendered
// element.
type TrackedElement struct {
	Ref                   ElementRef        `json:"ref"`
	Source                string            `json:"source"` // initial_scan | dynamic_add | reveal_cascade
	StartTime             int64             `json:"start_time"`
	Visibility            VisibilityState   `json:"visibility"`
	Content               ContentState      `json:"content"`
	ConditionalAttributes map[string]string `json:"conditional_attributes,omitempty"`
	DetectedPattern       string            `json:"detected_pattern,omitempty"`
}

// Interaction is one user interaction reported to the inspector.
type Interaction struct {
	Type      string     `json:"type"` // click | input | change | submit | ...
	Element   ElementRef `json:"element"`
	Value     string     `json:"value,omitempty"`
	Timestamp int64      `json:"timestamp"`
}

// Validation is one form-validation outcome reported to the inspector.
type Validation struct {
	Field     ElementRef `json:"field"`
	Valid     bool       `json:"valid"`
	Message   string     `json:"message,omitempty"`
	Timestamp int64      `json:"timestamp"`
}
