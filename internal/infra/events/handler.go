package events

import "context"

// Handler reacts to published events.
type Handler interface {
	// Handles lists the event types the handler subscribes to.
	Handles() []string

	// Handle processes one event. Handling the same event twice must be harmless.
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc struct {
	eventTypes []string
	fn         func(context.Context, Event) error
}

// NewHandlerFunc creates a HandlerFunc subscribed to eventTypes.
func NewHandlerFunc(fn func(context.Context, Event) error, eventTypes ...string) *HandlerFunc {
	return &HandlerFunc{
		eventTypes: eventTypes,
		fn:         fn,
	}
}

func (h *HandlerFunc) Handles() []string {
	return h.eventTypes
}

func (h *HandlerFunc) Handle(ctx context.Context, event Event) error {
	return h.fn(ctx, event)
}
