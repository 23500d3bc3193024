// Package eventbus is an in-process, synchronous publish/subscribe bus.
//
// Publish runs every subscribed handler inline on the caller's goroutine before
// returning. Delivery is at-most-once: there is no queue, no retry and no replay.
// A handler error or panic is logged and never reaches the publisher.
package eventbus

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/rl1809/fulfillment/internal/core/domain"
)

var ErrNilEvent = errors.New("cannot publish nil event")

type Handler func(ctx context.Context, event domain.Event) error

type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	logger   *zap.Logger
}

func New(logger *zap.Logger) *Bus {
	return &Bus{
		handlers: make(map[string][]Handler),
		logger:   logger,
	}
}

func (b *Bus) Subscribe(eventType string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], h)
}

// On subscribes fn to events of type E.
func On[E domain.Event](b *Bus, fn func(ctx context.Context, event E) error) {
	var zero E
	b.Subscribe(zero.Type(), func(ctx context.Context, event domain.Event) error {
		typed, ok := event.(E)
		if !ok {
			return fmt.Errorf("unexpected payload %T for %s", event, zero.Type())
		}
		return fn(ctx, typed)
	})
}

func (b *Bus) Publish(ctx context.Context, event domain.Event) error {
	if event == nil {
		return ErrNilEvent
	}

	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[event.Type()]...)
	b.mu.RUnlock()

	if len(handlers) == 0 {
		b.logger.Debug("event dropped, no subscribers", zap.String("event_type", event.Type()))
		return nil
	}

	for _, h := range handlers {
		b.dispatch(ctx, h, event)
	}
	return nil
}

func (b *Bus) dispatch(ctx context.Context, h Handler, event domain.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				zap.String("event_type", event.Type()),
				zap.Any("panic", r),
			)
		}
	}()

	if err := h(ctx, event); err != nil {
		b.logger.Error("event handler failed",
			zap.String("event_type", event.Type()),
			zap.Error(err),
		)
	}
}
