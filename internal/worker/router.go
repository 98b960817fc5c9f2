package worker

import (
	"context"
	"errors"
	"fmt"
)

// EventHandler processes one event payload.
type EventHandler func(ctx context.Context, data []byte) error

// Router dispatches events to their handlers in registration order.
type Router struct {
	handlers map[string][]EventHandler
}

func NewRouter(handlers map[string][]EventHandler) *Router {
	return &Router{handlers: handlers}
}

// Handle runs every handler registered for event and joins their errors.
func (r *Router) Handle(ctx context.Context, event string, data []byte) error {
	handlers, ok := r.handlers[event]
	if !ok {
		return fmt.Errorf("no handler for event %q", event)
	}

	var errs []error
	for _, handler := range handlers {
		if err := handler(ctx, data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
