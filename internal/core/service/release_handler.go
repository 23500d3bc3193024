package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/rl1809/fulfillment/internal/core/domain"
	"github.com/rl1809/fulfillment/internal/port"
)

const (
	productLockTTL   = 10 * time.Second
	productLockWait  = 2 * time.Second
	lockPollInterval = 25 * time.Millisecond
)

var errReleaseRejected = errors.New("stock release rejected")

// StockReleaseHandler debits inventory for a newly created order. Either
// every item is debited or none is.
type StockReleaseHandler struct {
	uow    port.UnitOfWork
	events port.EventPublisher
	locks  port.LockManager
	logger *zap.Logger
	tracer trace.Tracer
	now    func() time.Time
}

func NewStockReleaseHandler(uow port.UnitOfWork, events port.EventPublisher, logger *zap.Logger) *StockReleaseHandler {
	return &StockReleaseHandler{
		uow:    uow,
		events: events,
		logger: logger,
		tracer: otel.Tracer(tracerName),
		now:    time.Now,
	}
}

// WithLocks serializes releases per product across processes.
func (h *StockReleaseHandler) WithLocks(locks port.LockManager) *StockReleaseHandler {
	h.locks = locks
	return h
}

// Handle never returns an error; the outcome is reported as StockReleaseProcessed.
func (h *StockReleaseHandler) Handle(ctx context.Context, event domain.StockReleaseRequested) error {
	ctx, span := h.tracer.Start(ctx, "stock_release")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", event.OrderID.String()))

	results, err := h.release(ctx, event)
	success := err == nil
	if err != nil {
		span.RecordError(err)
		h.logger.Warn("stock release failed",
			zap.String("order_id", event.OrderID.String()),
			zap.Error(err),
		)
	}

	processed := domain.StockReleaseProcessed{
		OrderID:   event.OrderID,
		Success:   success,
		Items:     results,
		Timestamp: h.now().UTC(),
	}
	if err := h.events.Publish(ctx, processed); err != nil {
		h.logger.Error("failed to publish stock release outcome",
			zap.String("order_id", event.OrderID.String()),
			zap.Error(err),
		)
	}
	return nil
}

func (h *StockReleaseHandler) release(ctx context.Context, event domain.StockReleaseRequested) ([]domain.ReleaseItemResult, error) {
	results := make([]domain.ReleaseItemResult, len(event.Items))
	for i, it := range event.Items {
		results[i] = domain.ReleaseItemResult{ProductID: it.ProductID, Quantity: it.Quantity}
	}
	if len(event.Items) == 0 {
		return results, fmt.Errorf("%w: no items", errReleaseRejected)
	}

	unlock, err := h.lockProducts(ctx, event.Items)
	if err != nil {
		markAll(results, err.Error())
		return results, err
	}
	defer unlock()

	ref := event.OrderID.String()
	err = h.uow.Execute(ctx, func(ctx context.Context, repos port.Repositories) error {
		rejected := false
		now := h.now()
		for i, it := range event.Items {
			inv, err := repos.Inventory().GetByProductID(ctx, it.ProductID)
			if errors.Is(err, domain.ErrInventoryNotFound) {
				results[i].Message = err.Error()
				rejected = true
				continue
			}
			if err != nil {
				return err
			}

			next, movement, err := inv.Debit(it.Quantity, ref, now)
			if err != nil {
				results[i].Message = err.Error()
				rejected = true
				continue
			}
			if err := repos.Inventory().Update(ctx, next); err != nil {
				return fmt.Errorf("update inventory %s: %w", it.ProductID, err)
			}
			if err := repos.Movements().Add(ctx, movement); err != nil {
				return fmt.Errorf("record movement %s: %w", it.ProductID, err)
			}
			results[i].Success = true
		}
		if rejected {
			return errReleaseRejected
		}
		return nil
	})

	switch {
	case err == nil:
		return results, nil
	case errors.Is(err, errReleaseRejected):
		for i := range results {
			if results[i].Success {
				results[i].Message = "not applied, release rolled back"
			}
		}
		return results, err
	default:
		markAll(results, err.Error())
		return results, err
	}
}

// lockProducts takes the per-product locks in a stable order.
func (h *StockReleaseHandler) lockProducts(ctx context.Context, items []domain.ReleaseItem) (func(), error) {
	if h.locks == nil {
		return func() {}, nil
	}

	var products []string
	for _, it := range items {
		if !slices.Contains(products, it.ProductID) {
			products = append(products, it.ProductID)
		}
	}
	slices.Sort(products)

	held := make(map[string]string, len(products))
	unlock := func() {
		for product, token := range held {
			if err := h.locks.ReleaseLock(context.WithoutCancel(ctx), product, token); err != nil {
				h.logger.Warn("failed to release product lock", zap.String("product_id", product), zap.Error(err))
			}
		}
	}

	for _, product := range products {
		token, err := h.acquire(ctx, product)
		if err != nil {
			unlock()
			return nil, err
		}
		held[product] = token
	}
	return unlock, nil
}

func (h *StockReleaseHandler) acquire(ctx context.Context, product string) (string, error) {
	deadline := time.Now().Add(productLockWait)
	for {
		token, ok, err := h.locks.AcquireLock(ctx, product, productLockTTL)
		if err != nil {
			return "", fmt.Errorf("lock product %s: %w", product, err)
		}
		if ok {
			return token, nil
		}
		if time.Now().After(deadline) {
			return "", fmt.Errorf("lock product %s: still held after %s", product, productLockWait)
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(lockPollInterval):
		}
	}
}

func markAll(results []domain.ReleaseItemResult, message string) {
	for i := range results {
		results[i].Success = false
		results[i].Message = message
	}
}
