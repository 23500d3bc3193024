package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/rl1809/fulfillment/internal/core/domain"
	"github.com/rl1809/fulfillment/internal/port"
)

const tracerName = "github.com/rl1809/fulfillment/internal/core/service"

type CreateOrderCommand struct {
	// RequestID is optional; when set a repeated request is rejected with ErrDuplicateRequest.
	RequestID string
	UserID    string
	Items     []domain.OrderItem
	Notes     *string
}

type CreateOrderResult struct {
	Order        domain.Order
	Availability []domain.ItemAvailability
	ConsumerName *string
	FacilityName *string
}

type UpdateOrderStatusCommand struct {
	OrderID   uuid.UUID
	Status    *domain.OrderStatus
	Notes     *string
	UpdatedBy string
}

type OrderService struct {
	uow         port.UnitOfWork
	stock       port.StockChecker
	users       port.UserDirectory
	facilities  port.FacilityDirectory
	events      port.EventPublisher
	idempotency port.IdempotencyStore
	logger      *zap.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

func NewOrderService(
	uow port.UnitOfWork,
	stock port.StockChecker,
	users port.UserDirectory,
	facilities port.FacilityDirectory,
	events port.EventPublisher,
	logger *zap.Logger,
) *OrderService {
	return &OrderService{
		uow:        uow,
		stock:      stock,
		users:      users,
		facilities: facilities,
		events:     events,
		logger:     logger,
		tracer:     otel.Tracer(tracerName),
		now:        time.Now,
	}
}

// WithIdempotency enables request de-duplication on CreateOrder.
func (s *OrderService) WithIdempotency(store port.IdempotencyStore) *OrderService {
	s.idempotency = store
	return s
}

// CreateOrder checks stock for every item, persists the order as PENDING and
// then asks the inventory side to release stock. Nothing is written and
// nothing is published unless every item is available.
func (s *OrderService) CreateOrder(ctx context.Context, cmd CreateOrderCommand) (result *CreateOrderResult, err error) {
	ctx, span := s.tracer.Start(ctx, "create_order")
	defer span.End()
	span.SetAttributes(
		attribute.String("user.id", cmd.UserID),
		attribute.Int("order.items", len(cmd.Items)),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	order, err := domain.NewOrder(uuid.New(), cmd.UserID, cmd.Items, cmd.Notes, s.now())
	if err != nil {
		return nil, err
	}

	if cmd.RequestID != "" && s.idempotency != nil {
		key := fmt.Sprintf("order:%s", cmd.RequestID)
		ok, setErr := s.idempotency.SetIdempotency(ctx, key)
		if setErr != nil {
			return nil, fmt.Errorf("idempotency check failed: %w", setErr)
		}
		if !ok {
			return nil, ErrDuplicateRequest
		}
		defer func() {
			if err == nil {
				return
			}
			if clearErr := s.idempotency.ClearIdempotency(context.WithoutCancel(ctx), key); clearErr != nil {
				s.logger.Warn("failed to clear idempotency key", zap.String("key", key), zap.Error(clearErr))
			}
		}()
	}

	availability, err := s.checkStock(ctx, order.Items)
	if err != nil {
		return nil, err
	}

	err = s.uow.Execute(ctx, func(ctx context.Context, repos port.Repositories) error {
		return repos.Orders().Add(ctx, order)
	})
	if err != nil {
		return nil, &domain.OrderCreationError{Reason: "could not persist order", Err: err}
	}
	span.SetAttributes(attribute.String("order.id", order.ID.String()))

	s.logger.Info("order created",
		zap.String("order_id", order.ID.String()),
		zap.String("user_id", order.UserID),
		zap.String("total_amount", order.TotalAmount.String()),
	)

	// A crash or failed publish here leaves the order PENDING with no release in flight.
	if err := s.events.Publish(ctx, releaseRequest(order)); err != nil {
		s.logger.Error("failed to publish stock release request",
			zap.String("order_id", order.ID.String()),
			zap.Error(err),
		)
	}

	result = &CreateOrderResult{Order: order, Availability: availability}
	s.enrich(ctx, result)
	return result, nil
}

// checkStock issues one batched request with quantities summed per product.
func (s *OrderService) checkStock(ctx context.Context, items []domain.OrderItem) ([]domain.ItemAvailability, error) {
	var request []domain.StockCheckItem
	index := make(map[string]int)
	for _, it := range items {
		if i, ok := index[it.ProductID]; ok {
			request[i].Quantity += it.Quantity
			continue
		}
		index[it.ProductID] = len(request)
		request = append(request, domain.StockCheckItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	availability, err := s.stock.CheckStock(ctx, request)
	if err != nil {
		return nil, &domain.OrderCreationError{Reason: "stock check failed", Err: err}
	}

	answered := make(map[string]bool, len(availability))
	unavailable := false
	for _, a := range availability {
		answered[a.ProductID] = true
		if a.Error != "" || !a.Result.IsAvailable {
			unavailable = true
		}
	}
	for _, r := range request {
		if !answered[r.ProductID] {
			availability = append(availability, domain.ItemAvailability{
				ProductID: r.ProductID,
				Requested: r.Quantity,
				Error:     "no stock result returned",
			})
			unavailable = true
		}
	}

	if unavailable {
		return nil, &domain.OrderCreationError{Reason: "one or more items are not available", Items: availability}
	}
	return availability, nil
}

// enrich fills display fields. Lookup failures leave them nil.
func (s *OrderService) enrich(ctx context.Context, result *CreateOrderResult) {
	if s.users == nil {
		return
	}
	user, err := s.users.GetUserByID(ctx, result.Order.UserID)
	if err != nil {
		s.logger.Warn("consumer lookup failed", zap.String("user_id", result.Order.UserID), zap.Error(err))
		return
	}
	name := user.DisplayName
	result.ConsumerName = &name

	if user.HealthCareCenterID == nil || s.facilities == nil {
		return
	}
	center, err := s.facilities.GetHealthCareCenterByID(ctx, *user.HealthCareCenterID)
	if err != nil {
		s.logger.Warn("facility lookup failed", zap.String("center_id", *user.HealthCareCenterID), zap.Error(err))
		return
	}
	facility := center.Name
	result.FacilityName = &facility
}

func (s *OrderService) GetOrder(ctx context.Context, id uuid.UUID) (domain.Order, error) {
	var order domain.Order
	err := s.uow.Execute(ctx, func(ctx context.Context, repos port.Repositories) error {
		var err error
		order, err = repos.Orders().Get(ctx, id)
		return err
	})
	return order, err
}

// UpdateOrderStatus applies a status transition and/or a notes change to one order.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, cmd UpdateOrderStatusCommand) (domain.Order, error) {
	if cmd.Status == nil && cmd.Notes == nil {
		return domain.Order{}, ErrNothingToUpdate
	}

	var before, after domain.Order
	err := s.uow.Execute(ctx, func(ctx context.Context, repos port.Repositories) error {
		order, err := repos.Orders().Get(ctx, cmd.OrderID)
		if err != nil {
			return err
		}
		// Terminal orders have no exits, so a status change fails as a transition
		// error and a notes-only change as ErrOrderImmutable.
		next := order
		now := s.now()
		if cmd.Status != nil {
			if next, err = next.UpdateStatus(*cmd.Status, now); err != nil {
				return err
			}
		}
		if cmd.Notes != nil {
			if next, err = next.WithNotes(*cmd.Notes, now); err != nil {
				return err
			}
		}
		if err := repos.Orders().Update(ctx, next); err != nil {
			return fmt.Errorf("update order: %w", err)
		}

		before, after = order, next
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	if before.Status != after.Status {
		s.publishUpdated(ctx, before.Status, after, cmd.UpdatedBy)
	}
	return after, nil
}

func (s *OrderService) CancelOrder(ctx context.Context, id uuid.UUID, cancelledBy string) (domain.Order, error) {
	var before, after domain.Order
	err := s.uow.Execute(ctx, func(ctx context.Context, repos port.Repositories) error {
		order, err := repos.Orders().Get(ctx, id)
		if err != nil {
			return err
		}
		next, err := order.Cancel(s.now())
		if err != nil {
			return err
		}
		if err := repos.Orders().Update(ctx, next); err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		before, after = order, next
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.publishUpdated(ctx, before.Status, after, cancelledBy)
	return after, nil
}

func (s *OrderService) publishUpdated(ctx context.Context, old domain.OrderStatus, order domain.Order, updatedBy string) {
	event := domain.OrderUpdated{
		OrderID:   order.ID,
		OldStatus: old,
		NewStatus: order.Status,
		UpdatedBy: updatedBy,
		Timestamp: order.UpdatedAt,
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Error("failed to publish order update", zap.String("order_id", order.ID.String()), zap.Error(err))
	}
}

func releaseRequest(order domain.Order) domain.StockReleaseRequested {
	items := make([]domain.ReleaseItem, 0, len(order.Items))
	for _, it := range order.Items {
		items = append(items, domain.ReleaseItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return domain.StockReleaseRequested{OrderID: order.ID, Items: items}
}

// IsCreationRejected reports whether err is a stock rejection rather than a fault.
func IsCreationRejected(err error) bool {
	var creation *domain.OrderCreationError
	return errors.As(err, &creation) && len(creation.Items) > 0
}
