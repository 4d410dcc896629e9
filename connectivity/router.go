// Package connectivity exposes the inspector's action surface: a named
// registry of byte-in/byte-out handlers, callable in-process or over
// HTTP. Callers never need to know which side of the wire a handler
// lives on.
package connectivity

import (
	"context"
	"log/slog"
	"sync"
)

// Handler is a transport-agnostic action function: bytes in, bytes out.
type Handler func(ctx context.Context, payload []byte) ([]byte, error)

type actionKey struct{}

// ActionFromContext returns the action name a handler was dispatched
// under, or "" outside a Router.Call.
func ActionFromContext(ctx context.Context) string {
	name, _ := ctx.Value(actionKey{}).(string)
	return name
}

// Router dispatches named action calls. Thread-safe.
type Router struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	chain    Middleware
	logger   *slog.Logger
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets a custom logger for the router.
func WithLogger(l *slog.Logger) Option {
	return func(r *Router) { r.logger = l }
}

// WithMiddleware installs a middleware chain applied to every handler
// at registration time.
func WithMiddleware(mw Middleware) Option {
	return func(r *Router) { r.chain = mw }
}

// New creates an empty Router.
func New(opts ...Option) *Router {
	r := &Router{
		handlers: make(map[string]Handler),
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Register binds an action name to a handler. Registering the same name
// twice replaces the previous handler.
func (r *Router) Register(action string, h Handler) {
	if r.chain != nil {
		h = r.chain(h)
	}
	r.mu.Lock()
	r.handlers[action] = h
	r.mu.Unlock()
}

// Call dispatches an action by name.
func (r *Router) Call(ctx context.Context, action string, payload []byte) ([]byte, error) {
	r.mu.RLock()
	h := r.handlers[action]
	r.mu.RUnlock()

	if h == nil {
		return nil, &ErrActionNotFound{Action: action}
	}
	ctx = context.WithValue(ctx, actionKey{}, action)
	r.logger.DebugContext(ctx, "connectivity: dispatch", "action", action)
	return h(ctx, payload)
}

// Actions lists the registered action names, unordered.
func (r *Router) Actions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		out = append(out, name)
	}
	return out
}
