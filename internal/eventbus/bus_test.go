package eventbus

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rl1809/fulfillment/internal/core/domain"
)

func TestPublish_InvokesHandlersInline(t *testing.T) {
	bus := New(zap.NewNop())
	var calls []string

	bus.Subscribe(domain.EventOrderUpdated, func(ctx context.Context, e domain.Event) error {
		calls = append(calls, "first")
		return nil
	})
	bus.Subscribe(domain.EventOrderUpdated, func(ctx context.Context, e domain.Event) error {
		calls = append(calls, "second")
		return nil
	})

	err := bus.Publish(context.Background(), domain.OrderUpdated{OrderID: uuid.New()})

	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestPublish_HandlerFailureDoesNotReachPublisher(t *testing.T) {
	bus := New(zap.NewNop())
	reached := false

	bus.Subscribe(domain.EventOrderUpdated, func(ctx context.Context, e domain.Event) error {
		return errors.New("boom")
	})
	bus.Subscribe(domain.EventOrderUpdated, func(ctx context.Context, e domain.Event) error {
		panic("handler exploded")
	})
	bus.Subscribe(domain.EventOrderUpdated, func(ctx context.Context, e domain.Event) error {
		reached = true
		return nil
	})

	err := bus.Publish(context.Background(), domain.OrderUpdated{})

	assert.NoError(t, err)
	assert.True(t, reached, "handlers after a failing one must still run")
}

func TestPublish_NoSubscribers(t *testing.T) {
	bus := New(zap.NewNop())

	assert.NoError(t, bus.Publish(context.Background(), domain.StockReleaseRequested{}))
}

func TestPublish_NilEvent(t *testing.T) {
	bus := New(zap.NewNop())

	assert.ErrorIs(t, bus.Publish(context.Background(), nil), ErrNilEvent)
}

func TestOn_TypedSubscription(t *testing.T) {
	bus := New(zap.NewNop())
	orderID := uuid.New()
	var got domain.StockReleaseProcessed

	On(bus, func(ctx context.Context, e domain.StockReleaseProcessed) error {
		got = e
		return nil
	})

	require.NoError(t, bus.Publish(context.Background(), domain.StockReleaseProcessed{OrderID: orderID, Success: true}))
	assert.Equal(t, orderID, got.OrderID)
	assert.True(t, got.Success)
}
