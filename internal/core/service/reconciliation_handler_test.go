package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rl1809/fulfillment/internal/core/domain"
)

func TestReconciliation_SuccessConfirmsOrder(t *testing.T) {
	f := newFixture(t)
	order := f.seedOrder(t, domain.OrderStatusPending)

	require.NoError(t, f.reconcile.Handle(context.Background(), domain.StockReleaseProcessed{OrderID: order.ID, Success: true}))

	stored, _ := f.store.Order(order.ID)
	assert.Equal(t, domain.OrderStatusConfirmed, stored.Status)
	assert.Nil(t, stored.FailureReason)

	updates := f.events.OfType(domain.EventOrderUpdated)
	require.Len(t, updates, 1)
	e := updates[0].(domain.OrderUpdated)
	assert.Equal(t, domain.OrderStatusPending, e.OldStatus)
	assert.Equal(t, domain.OrderStatusConfirmed, e.NewStatus)
	assert.Equal(t, reconciliationActor, e.UpdatedBy)
}

func TestReconciliation_FailureMarksOrderFailed(t *testing.T) {
	f := newFixture(t)
	order := f.seedOrder(t, domain.OrderStatusPending)

	require.NoError(t, f.reconcile.Handle(context.Background(), domain.StockReleaseProcessed{
		OrderID: order.ID,
		Success: false,
		Items: []domain.ReleaseItemResult{
			{ProductID: "p-1", Quantity: 1, Success: true, Message: "not applied, release rolled back"},
			{ProductID: "p-2", Quantity: 9, Success: false, Message: "insufficient stock"},
		},
	}))

	stored, _ := f.store.Order(order.ID)
	assert.Equal(t, domain.OrderStatusFailed, stored.Status)
	require.NotNil(t, stored.FailureReason)
	assert.Equal(t, "p-2: insufficient stock", *stored.FailureReason)
	assert.Equal(t, []string{"failure:" + order.ID.String()}, f.notifier.Calls())
}

func TestReconciliation_FailureWithoutMessagesStillHasReason(t *testing.T) {
	f := newFixture(t)
	order := f.seedOrder(t, domain.OrderStatusPending)

	require.NoError(t, f.reconcile.Handle(context.Background(), domain.StockReleaseProcessed{OrderID: order.ID}))

	stored, _ := f.store.Order(order.ID)
	require.NotNil(t, stored.FailureReason)
	assert.NotEmpty(t, *stored.FailureReason)
}

func TestReconciliation_ErrorsAreSwallowed(t *testing.T) {
	f := newFixture(t)
	processing := f.seedOrder(t, domain.OrderStatusProcessing)

	assert.NoError(t, f.reconcile.Handle(context.Background(), domain.StockReleaseProcessed{OrderID: uuid.New(), Success: true}))
	assert.NoError(t, f.reconcile.Handle(context.Background(), domain.StockReleaseProcessed{OrderID: processing.ID, Success: true}))

	stored, _ := f.store.Order(processing.ID)
	assert.Equal(t, domain.OrderStatusProcessing, stored.Status)
	assert.Empty(t, f.events.OfType(domain.EventOrderUpdated))
}

func TestStockRelease_FailureEndsInFailedOrder(t *testing.T) {
	f := newFixture(t)
	f.addProduct("p-1", 5, 0, "1.00")
	order := f.seedOrder(t, domain.OrderStatusPending)

	require.NoError(t, f.release.Handle(context.Background(), domain.StockReleaseRequested{
		OrderID: order.ID,
		Items:   []domain.ReleaseItem{{ProductID: "p-1", Quantity: 6}},
	}))

	stored, _ := f.store.Order(order.ID)
	assert.Equal(t, domain.OrderStatusFailed, stored.Status)
	require.NotNil(t, stored.FailureReason)
	assert.Contains(t, *stored.FailureReason, "insufficient stock")
	assert.Equal(t, 5, f.quantity("p-1"))
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) StartFulfillment(ctx context.Context, e domain.OrderUpdated) error {
	return m.Called(ctx, e).Error(0)
}

func (m *mockNotifier) CompleteOrder(ctx context.Context, e domain.OrderUpdated) error {
	return m.Called(ctx, e).Error(0)
}

func (m *mockNotifier) ReleaseOrder(ctx context.Context, e domain.OrderUpdated) error {
	return m.Called(ctx, e).Error(0)
}

func (m *mockNotifier) NotifyFailure(ctx context.Context, e domain.OrderUpdated) error {
	return m.Called(ctx, e).Error(0)
}

func TestSideEffectHandler_Dispatch(t *testing.T) {
	tests := []struct {
		status domain.OrderStatus
		method string
	}{
		{domain.OrderStatusConfirmed, "StartFulfillment"},
		{domain.OrderStatusCompleted, "CompleteOrder"},
		{domain.OrderStatusCancelled, "ReleaseOrder"},
		{domain.OrderStatusFailed, "NotifyFailure"},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			notifier := &mockNotifier{}
			event := domain.OrderUpdated{OrderID: uuid.New(), NewStatus: tt.status}
			notifier.On(tt.method, mock.Anything, event).Return(errors.New("broker down"))

			err := NewSideEffectHandler(notifier, zap.NewNop()).Handle(context.Background(), event)

			assert.NoError(t, err, "trigger failures must not propagate")
			notifier.AssertExpectations(t)
		})
	}
}

func TestSideEffectHandler_IgnoresOtherStatuses(t *testing.T) {
	notifier := &mockNotifier{}
	h := NewSideEffectHandler(notifier, zap.NewNop())

	for _, status := range []domain.OrderStatus{domain.OrderStatusPending, domain.OrderStatusProcessing, domain.OrderStatusShipped} {
		require.NoError(t, h.Handle(context.Background(), domain.OrderUpdated{OrderID: uuid.New(), NewStatus: status}))
	}

	notifier.AssertNotCalled(t, "StartFulfillment", mock.Anything, mock.Anything)
	notifier.AssertNotCalled(t, "CompleteOrder", mock.Anything, mock.Anything)
	notifier.AssertNotCalled(t, "ReleaseOrder", mock.Anything, mock.Anything)
	notifier.AssertNotCalled(t, "NotifyFailure", mock.Anything, mock.Anything)
}
