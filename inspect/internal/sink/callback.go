package sink

import (
	"context"

	"github.com/osawyer/domscope/inspect/capture"
)

// ContextFunc is called for each aggregated context (in-process, zero
// serialisation).
type ContextFunc func(ctx context.Context, c capture.Context) error

// EventFunc is called for each event.
type EventFunc func(ctx context.Context, ev capture.Event) error

// Callback delivers captures via Go function calls — the path for
// consumers living in the same binary.
type Callback struct {
	onContext ContextFunc
	onEvent   EventFunc
}

// NewCallback creates a Callback sink. Either handler may be nil.
func NewCallback(onContext ContextFunc, onEvent EventFunc) *Callback {
	return &Callback{onContext: onContext, onEvent: onEvent}
}

func (c *Callback) SendContext(ctx context.Context, cc capture.Context) error {
	if c.onContext != nil {
		return c.onContext(ctx, cc)
	}
	return nil
}

func (c *Callback) SendEvent(ctx context.Context, ev capture.Event) error {
	if c.onEvent != nil {
		return c.onEvent(ctx, ev)
	}
	return nil
}

func (c *Callback) Close() error { return nil }
