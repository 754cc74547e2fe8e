// Package events carries lifecycle notifications between bounded contexts
// without direct module-to-module calls. The platform layer defines only
// the contracts; the domain event types live with the modules.
package events

import (
	"context"
	"time"
)

// Event is a fact about a lifecycle transition that already happened.
type Event interface {
	// EventName identifies the event type, e.g. "lead.assigned".
	EventName() string
	// OccurredAt is when the transition committed.
	OccurredAt() time.Time
}

// BaseEvent supplies the timestamp every domain event embeds.
type BaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

// OccurredAt returns the event timestamp.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// NewBaseEvent stamps a base event with the current time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{Timestamp: time.Now()}
}

// Handler consumes events it subscribed to. A handler error never rolls
// back the transition that produced the event.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ctx context.Context, event Event) error

// Handle calls the wrapped function.
func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus routes published events to their subscribers.
type Bus interface {
	// Publish dispatches to all handlers registered for the event's name.
	// Delivery may be asynchronous.
	Publish(ctx context.Context, event Event)

	// PublishSync dispatches and waits for every handler to finish,
	// collecting their errors. Tests and transactional callers use this.
	PublishSync(ctx context.Context, event Event) error

	// Subscribe registers a handler under an event name as returned by
	// Event.EventName.
	Subscribe(eventName string, handler Handler)
}
