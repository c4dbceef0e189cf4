package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"repair_audit_backend/platform/logger"
)

// InMemoryBus is a process-local Bus. Handlers for one event name run in
// registration order for PublishSync and concurrently for Publish.
type InMemoryBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	log      *logger.Logger
	inflight sync.WaitGroup
}

var _ Bus = (*InMemoryBus)(nil)

// NewInMemoryBus creates an empty bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return &InMemoryBus{
		handlers: make(map[string][]Handler),
		log:      log,
	}
}

// Subscribe registers a handler for eventName.
func (b *InMemoryBus) Subscribe(eventName string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventName] = append(b.handlers[eventName], handler)
}

func (b *InMemoryBus) handlersFor(eventName string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	hs := b.handlers[eventName]
	out := make([]Handler, len(hs))
	copy(out, hs)
	return out
}

// Publish dispatches event to every handler in its own goroutine. The
// handlers get a context detached from the caller's cancellation so a
// finished HTTP request does not abort notification delivery.
func (b *InMemoryBus) Publish(ctx context.Context, event Event) {
	hs := b.handlersFor(event.EventName())
	if len(hs) == 0 {
		return
	}
	detached := context.WithoutCancel(ctx)
	for _, h := range hs {
		b.inflight.Add(1)
		go func(h Handler) {
			defer b.inflight.Done()
			if err := safeHandle(detached, h, event); err != nil {
				b.log.Error("event handler failed",
					slog.String("event", event.EventName()),
					slog.String("eventId", eventID(event)),
					slog.String("error", err.Error()),
				)
			}
		}(h)
	}
}

// PublishSync runs all handlers concurrently and returns the first error.
func (b *InMemoryBus) PublishSync(ctx context.Context, event Event) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, h := range b.handlersFor(event.EventName()) {
		h := h
		g.Go(func() error {
			return safeHandle(gctx, h, event)
		})
	}
	return g.Wait()
}

// Wait blocks until every asynchronously published handler has returned.
func (b *InMemoryBus) Wait() {
	b.inflight.Wait()
}

func safeHandle(ctx context.Context, h Handler, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic for %s: %v", event.EventName(), r)
		}
	}()
	return h.Handle(ctx, event)
}
