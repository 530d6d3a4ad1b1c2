// Package events is a small synchronous publish/subscribe bus for domain
// events raised by the services layer.
package events

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/teamsync/teamsync/pkg/logger"
)

// Event is anything published on the bus.
type Event interface {
	EventName() string
}

// Handler reacts to an event. Returned errors are reported by Publish but
// never undo the change that raised the event.
type Handler func(ctx context.Context, event Event) error

type subscription struct {
	owner   string
	handler Handler
}

// Bus fans events out to subscribers in registration order.
type Bus struct {
	mu   sync.RWMutex
	subs map[string][]subscription
}

// NewBus constructs an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string][]subscription)}
}

// Subscribe registers handler for events named name. owner labels the
// subscriber in logs.
func (b *Bus) Subscribe(name, owner string, handler Handler) {
	if b == nil || handler == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[name] = append(b.subs[name], subscription{owner: owner, handler: handler})
}

// Subscribers returns the number of handlers registered for name.
func (b *Bus) Subscribers(name string) int {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[name])
}

// Publish delivers event to every subscriber, even when earlier ones fail.
// A panicking handler is recovered and reported as an error.
func (b *Bus) Publish(ctx context.Context, event Event) error {
	if b == nil || event == nil {
		return nil
	}

	name := event.EventName()
	b.mu.RLock()
	subs := append([]subscription(nil), b.subs[name]...)
	b.mu.RUnlock()

	var errs error
	for _, sub := range subs {
		if err := deliver(ctx, sub, event); err != nil {
			logger.WithModule("events").Warn("subscriber failed",
				zap.String("event", name),
				zap.String("subscriber", sub.owner),
				zap.Error(err),
			)
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", sub.owner, err))
		}
	}
	return errs
}

func deliver(ctx context.Context, sub subscription, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return sub.handler(ctx, event)
}
