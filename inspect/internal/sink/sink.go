// Package sink defines output backends for aggregated context and events.
package sink

import (
	"context"

	"github.com/osawyer/domscope/inspect/capture"
)

// Sink is the output interface. Implementations deliver captures to
// different backends (stdout, webhook, in-process callback).
type Sink interface {
	SendContext(ctx context.Context, c capture.Context) error
	SendEvent(ctx context.Context, ev capture.Event) error
	Close() error
}
