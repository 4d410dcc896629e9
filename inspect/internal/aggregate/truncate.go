package aggregate

import "github.com/osawyer/domscope/inspect/capture"

// A reduction shrinks one part of the context. It reports whether it
// removed anything; a false return means the step is exhausted.
type reduction func(*capture.Context) bool

// reductions are applied in order of least information loss first. The
// element inventory goes last: it is the primary payload.
var reductions = []reduction{
	dropExcerpt,
	halveEvents,
	halveRecentInteractions,
	halveRecentValidations,
	dropElementText,
	halveElements,
}

// Truncate shrinks c until its serialized form fits maxSize, re-measuring
// after every step. The budget is best-effort: when every reduction is
// exhausted the context is emitted oversize rather than dropped. Returns
// whether any reduction was applied.
func Truncate(c *capture.Context, maxSize int) bool {
	if maxSize <= 0 || capture.SerializedLen(c) <= maxSize {
		return false
	}

	// The flag itself costs bytes once serialized; set it up front so
	// every re-measure below accounts for it.
	c.Truncated = true
	applied := false
	for _, step := range reductions {
		for step(c) {
			applied = true
			if capture.SerializedLen(c) <= maxSize {
				return true
			}
		}
	}
	if !applied {
		c.Truncated = false
	}
	return applied
}

func dropExcerpt(c *capture.Context) bool {
	if c.LLMSummary.Excerpt == "" {
		return false
	}
	c.LLMSummary.Excerpt = ""
	return true
}

func halveEvents(c *capture.Context) bool {
	n := len(c.ConditionalRendering.Events)
	if n == 0 {
		return false
	}
	// keep the newest half
	c.ConditionalRendering.Events = c.ConditionalRendering.Events[n-n/2:]
	return true
}

func halveRecentInteractions(c *capture.Context) bool {
	n := len(c.Interactions.Recent)
	if n == 0 {
		return false
	}
	c.Interactions.Recent = c.Interactions.Recent[n-n/2:]
	return true
}

func halveRecentValidations(c *capture.Context) bool {
	n := len(c.Validations.Recent)
	if n == 0 {
		return false
	}
	c.Validations.Recent = c.Validations.Recent[n-n/2:]
	return true
}

func dropElementText(c *capture.Context) bool {
	dropped := false
	for i := range c.DOMState.Elements {
		if c.DOMState.Elements[i].Text != "" {
			c.DOMState.Elements[i].Text = ""
			dropped = true
		}
	}
	return dropped
}

func halveElements(c *capture.Context) bool {
	n := len(c.DOMState.Elements)
	if n == 0 {
		return false
	}
	c.DOMState.Elements = c.DOMState.Elements[:n/2]
	return true
}
