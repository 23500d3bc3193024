package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/fulfillment/internal/core/domain"
	"github.com/rl1809/fulfillment/internal/port"
)

const reconciliationActor = "stock-release"

// ReconciliationHandler moves a PENDING order to CONFIRMED or FAILED once
// the stock release outcome is known.
type ReconciliationHandler struct {
	uow    port.UnitOfWork
	events port.EventPublisher
	logger *zap.Logger
	now    func() time.Time
}

func NewReconciliationHandler(uow port.UnitOfWork, events port.EventPublisher, logger *zap.Logger) *ReconciliationHandler {
	return &ReconciliationHandler{uow: uow, events: events, logger: logger, now: time.Now}
}

// Handle logs and swallows every failure.
func (h *ReconciliationHandler) Handle(ctx context.Context, event domain.StockReleaseProcessed) error {
	var before, after domain.Order
	err := h.uow.Execute(ctx, func(ctx context.Context, repos port.Repositories) error {
		order, err := repos.Orders().Get(ctx, event.OrderID)
		if err != nil {
			return err
		}

		var next domain.Order
		if event.Success {
			next, err = order.Confirm(h.now())
		} else {
			next, err = order.Fail(failureReason(event.Items), h.now())
		}
		if err != nil {
			return err
		}
		if err := repos.Orders().Update(ctx, next); err != nil {
			return err
		}

		before, after = order, next
		return nil
	})
	if err != nil {
		h.logger.Error("order reconciliation failed",
			zap.String("order_id", event.OrderID.String()),
			zap.Bool("release_success", event.Success),
			zap.Error(err),
		)
		return nil
	}

	h.logger.Info("order reconciled",
		zap.String("order_id", after.ID.String()),
		zap.String("status", string(after.Status)),
	)

	updated := domain.OrderUpdated{
		OrderID:   after.ID,
		OldStatus: before.Status,
		NewStatus: after.Status,
		UpdatedBy: reconciliationActor,
		Timestamp: after.UpdatedAt,
	}
	if err := h.events.Publish(ctx, updated); err != nil {
		h.logger.Error("failed to publish order update", zap.String("order_id", after.ID.String()), zap.Error(err))
	}
	return nil
}

func failureReason(items []domain.ReleaseItemResult) string {
	var msgs []string
	for _, it := range items {
		if !it.Success && it.Message != "" {
			msgs = append(msgs, it.ProductID+": "+it.Message)
		}
	}
	if len(msgs) == 0 {
		return "stock release failed"
	}
	return strings.Join(msgs, "; ")
}

// SideEffectHandler triggers downstream workflows after a status change.
type SideEffectHandler struct {
	notifier port.WorkflowNotifier
	logger   *zap.Logger
}

func NewSideEffectHandler(notifier port.WorkflowNotifier, logger *zap.Logger) *SideEffectHandler {
	return &SideEffectHandler{notifier: notifier, logger: logger}
}

func (h *SideEffectHandler) Handle(ctx context.Context, event domain.OrderUpdated) error {
	var trigger func(context.Context, domain.OrderUpdated) error
	switch event.NewStatus {
	case domain.OrderStatusConfirmed:
		trigger = h.notifier.StartFulfillment
	case domain.OrderStatusCompleted:
		trigger = h.notifier.CompleteOrder
	case domain.OrderStatusCancelled:
		trigger = h.notifier.ReleaseOrder
	case domain.OrderStatusFailed:
		trigger = h.notifier.NotifyFailure
	default:
		return nil
	}

	if err := trigger(ctx, event); err != nil {
		h.logger.Warn("side effect failed",
			zap.String("order_id", event.OrderID.String()),
			zap.String("status", string(event.NewStatus)),
			zap.Error(err),
		)
	}
	return nil
}
