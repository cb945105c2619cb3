// Package handlers contains the per-type business handlers invoked by the
// scheduler. Handlers must be idempotent: the pipeline is at-least-once and a
// handler can run more than once for the same event ID across retries.
package handlers

import (
	"context"
	"fmt"

	"github.com/francis/platform/internal/domain"
)

// Handler processes one event type. A nil return marks the event processed;
// any error is retryable up to the event's retry ceiling.
type Handler interface {
	Handle(ctx context.Context, clientID string, p domain.Payload) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, clientID string, p domain.Payload) error

func (f HandlerFunc) Handle(ctx context.Context, clientID string, p domain.Payload) error {
	return f(ctx, clientID, p)
}

// Registry maps event types to their handlers.
type Registry struct {
	handlers map[domain.EventType]Handler
}

// NewRegistry creates an empty handler registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[domain.EventType]Handler)}
}

// Register binds a handler to an event type, replacing any previous binding.
func (r *Registry) Register(t domain.EventType, h Handler) {
	r.handlers[t] = h
}

// Lookup returns the handler for an event type.
func (r *Registry) Lookup(t domain.EventType) (Handler, error) {
	h, ok := r.handlers[t]
	if !ok {
		return nil, fmt.Errorf("no handler registered for event type %s", t)
	}
	return h, nil
}
