// Package events provides the in-process event bus the bounded contexts use
// to react to each other without direct imports.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is implemented by every domain event.
type Event interface {
	// EventName is the routing key handlers subscribe to.
	EventName() string
	OccurredAt() time.Time
}

// BaseEvent carries the identity and time of an event. Domain events embed it.
type BaseEvent struct {
	ID        string    `json:"eventId"`
	Timestamp time.Time `json:"timestamp"`
}

func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }

// EventID identifies one publication in logs.
func (e BaseEvent) EventID() string { return e.ID }

// NewBaseEvent stamps a fresh event id and the current UTC time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{ID: uuid.NewString(), Timestamp: time.Now().UTC()}
}

// Handler processes one event.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus publishes events to subscribed handlers.
type Bus interface {
	// Publish runs the handlers in the background; failures are only logged.
	Publish(ctx context.Context, event Event)
	// PublishSync runs the handlers and returns the first failure.
	PublishSync(ctx context.Context, event Event) error
	Subscribe(eventName string, handler Handler)
}

func eventID(event Event) string {
	if e, ok := event.(interface{ EventID() string }); ok {
		return e.EventID()
	}
	return ""
}
