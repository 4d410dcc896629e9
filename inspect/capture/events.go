package capture

// EventType classifies events emitted by the trackers and detectors.
type EventType string

const (
	EventVisibilityChange EventType = "visibility_change"
	EventDynamicRender    EventType = "dynamic_render"
	EventContentChange    EventType = "content_change"
	EventPatternDetected  EventType = "pattern_detected"
	EventInteraction      EventType = "interaction"
	EventValidation       EventType = "validation"
)

// Event is a single observation. Only the fields relevant to the event
// type are populated.
type Event struct {
	Type      EventType  `json:"type"`
	Timestamp int64      `json:"timestamp"` // epoch milliseconds
	Element   ElementRef `json:"element"`
	Source    string     `json:"source,omitempty"`

	// visibility_change
	PreviousState *VisibilityState `json:"previous_state,omitempty"`
	CurrentState  *VisibilityState `json:"current_state,omitempty"`

	// content_change
	PreviousContent *ContentState `json:"previous_content,omitempty"`
	CurrentContent  *ContentState `json:"current_content,omitempty"`

	// dynamic_render
	Action string `json:"action,omitempty"` // added | removed

	// pattern_detected
	Pattern   string `json:"pattern,omitempty"`
	Instances int    `json:"instances,omitempty"`
}
