package capture

// DOMState is the extracted element inventory of one aggregation tick.
type DOMState struct {
	ElementCount     int                 `json:"element_count"`
	InteractiveCount int                 `json:"interactive_count"`
	Elements         []ElementDescriptor `json:"elements"`
	// HasChanged is a sampling heuristic: element count plus a prefix
	// serialization compared against the previous tick. Changes outside
	// the sampled prefix do not flip it.
	HasChanged bool   `json:"has_changed"`
	Hash       string `json:"hash,omitempty"`
}

// InteractionSummary condenses the interaction log for one tick.
type InteractionSummary struct {
	Total  int           `json:"total"`
	Recent []Interaction `json:"recent,omitempty"`
}

// ValidationSummary condenses the validation log for one tick.
type ValidationSummary struct {
	Total    int          `json:"total"`
	Failures int          `json:"failures"`
	Recent   []Validation `json:"recent,omitempty"`
}

// ConditionalSummary condenses the conditional-rendering tracker state.
type ConditionalSummary struct {
	TrackedCount int            `json:"tracked_count"`
	Events       []Event        `json:"events,omitempty"`
	Patterns     map[string]int `json:"patterns,omitempty"`
}

// Summary is the derived low-volume digest included for LLM consumers:
// counts and short lists, not raw data.
type Summary struct {
	ElementCounts        map[string]int `json:"element_counts,omitempty"`
	InteractiveSelectors []string       `json:"interactive_selectors,omitempty"`
	PatternCounts        map[string]int `json:"pattern_counts,omitempty"`
	RecentEventTypes     []string       `json:"recent_event_types,omitempty"`
	Landmarks            []string       `json:"landmarks,omitempty"`
	Excerpt              string         `json:"excerpt,omitempty"`
}

// Context is the unified snapshot shipped to sinks: one per aggregation
// tick plus one final capture on stop.
type Context struct {
	ID        string `json:"id"`  // UUIDv7
	Seq       uint64 `json:"seq"` // monotonically increasing per inspector
	Timestamp int64  `json:"timestamp"`
	URL       string `json:"sourceUrl"`
	ChatID    string `json:"chatId,omitempty"`
	Title     string `json:"title,omitempty"`
	Viewport  Box    `json:"viewport"`

	DOMState             DOMState           `json:"dom_state"`
	Interactions         InteractionSummary `json:"interactions"`
	Validations          ValidationSummary  `json:"validations"`
	ConditionalRendering ConditionalSummary `json:"conditional_rendering"`
	LLMSummary           Summary            `json:"llm_summary"`

	// Truncated reports that the size budget forced reductions.
	Truncated bool `json:"truncated,omitempty"`
}

// SinkResponse is the reply shape of the external test-generation endpoint.
type SinkResponse struct {
	Success          bool `json:"success"`
	EnhancedSnapshot struct {
		Nodes []struct {
			Interactive bool `json:"interactive"`
		} `json:"nodes"`
	} `json:"enhancedSnapshot"`
}

// InteractiveNodes counts total and interactive nodes in a sink response.
func (r *SinkResponse) InteractiveNodes() (total, interactive int) {
	total = len(r.EnhancedSnapshot.Nodes)
	for _, n := range r.EnhancedSnapshot.Nodes {
		if n.Interactive {
			interactive++
		}
	}
	return total, interactive
}
