package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/fulfillment/internal/core/domain"
	"github.com/rl1809/fulfillment/internal/port"
)

func newTestOrder(t *testing.T) domain.Order {
	t.Helper()
	order, err := domain.NewOrder(uuid.New(), "user-1", []domain.OrderItem{
		{ProductID: "p-1", Quantity: 2, UnitPrice: decimal.NewFromInt(4)},
	}, nil, time.Now())
	require.NoError(t, err)
	return order
}

func TestMemoryStore_CommitOnSuccess(t *testing.T) {
	store := NewMemoryStore()
	order := newTestOrder(t)

	err := store.Execute(context.Background(), func(ctx context.Context, repos port.Repositories) error {
		return repos.Orders().Add(ctx, order)
	})

	require.NoError(t, err)
	got, ok := store.Order(order.ID)
	require.True(t, ok)
	assert.Equal(t, domain.OrderStatusPending, got.Status)
	assert.Equal(t, 1, store.OrderCount())
}

func TestMemoryStore_RollbackOnError(t *testing.T) {
	store := NewMemoryStore()
	store.RegisterProduct(domain.Product{ID: "p-1", Status: domain.ProductStatusActive},
		domain.InventoryRecord{Quantity: 10, MaxStock: 100})
	order := newTestOrder(t)
	boom := errors.New("boom")

	err := store.Execute(context.Background(), func(ctx context.Context, repos port.Repositories) error {
		if err := repos.Orders().Add(ctx, order); err != nil {
			return err
		}
		inv, err := repos.Inventory().GetByProductID(ctx, "p-1")
		if err != nil {
			return err
		}
		next, movement, err := inv.Debit(3, order.ID.String(), time.Now())
		if err != nil {
			return err
		}
		if err := repos.Inventory().Update(ctx, next); err != nil {
			return err
		}
		if err := repos.Movements().Add(ctx, movement); err != nil {
			return err
		}
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, store.OrderCount())
	inv, _ := store.Inventory("p-1")
	assert.Equal(t, 10, inv.Quantity)
	assert.Empty(t, store.Movements())
}

func TestMemoryStore_OrderUpdate_VersionCheck(t *testing.T) {
	store := NewMemoryStore()
	order := newTestOrder(t)
	ctx := context.Background()

	require.NoError(t, store.Execute(ctx, func(ctx context.Context, repos port.Repositories) error {
		return repos.Orders().Add(ctx, order)
	}))

	processing, err := order.UpdateStatus(domain.OrderStatusProcessing, time.Now())
	require.NoError(t, err)
	require.NoError(t, store.Execute(ctx, func(ctx context.Context, repos port.Repositories) error {
		return repos.Orders().Update(ctx, processing)
	}))

	err = store.Execute(ctx, func(ctx context.Context, repos port.Repositories) error {
		return repos.Orders().Update(ctx, processing)
	})
	assert.ErrorIs(t, err, ErrOptimisticLock)

	got, _ := store.Order(order.ID)
	assert.Equal(t, 2, got.Version)
}

func TestMemoryStore_GetMissing(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	err := store.Execute(ctx, func(ctx context.Context, repos port.Repositories) error {
		_, err := repos.Orders().Get(ctx, uuid.New())
		return err
	})
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	err = store.Execute(ctx, func(ctx context.Context, repos port.Repositories) error {
		_, err := repos.Inventory().GetByProductID(ctx, "missing")
		return err
	})
	assert.ErrorIs(t, err, domain.ErrInventoryNotFound)

	_, err = store.GetProduct(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
	_, err = store.GetUser(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	_, err = store.GetHealthCareCenter(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrFacilityNotFound)
}

func TestMemoryStore_ReturnedOrderIsACopy(t *testing.T) {
	store := NewMemoryStore()
	order := newTestOrder(t)
	ctx := context.Background()
	require.NoError(t, store.Execute(ctx, func(ctx context.Context, repos port.Repositories) error {
		return repos.Orders().Add(ctx, order)
	}))

	got, _ := store.Order(order.ID)
	got.Items[0].Quantity = 99

	again, _ := store.Order(order.ID)
	assert.Equal(t, 2, again.Items[0].Quantity)
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	store := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := store.Execute(ctx, func(ctx context.Context, repos port.Repositories) error {
		called = true
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
