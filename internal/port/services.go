package port

import (
	"context"

	"github.com/rl1809/fulfillment/internal/core/domain"
)

// StockChecker validates a batch of items against the inventory side.
type StockChecker interface {
	CheckStock(ctx context.Context, items []domain.StockCheckItem) ([]domain.ItemAvailability, error)
}

type ProductCatalog interface {
	GetProduct(ctx context.Context, productID string) (domain.Product, error)
}

type UserDirectory interface {
	GetUserByID(ctx context.Context, userID string) (domain.User, error)
}

type FacilityDirectory interface {
	GetHealthCareCenterByID(ctx context.Context, centerID string) (domain.HealthCareCenter, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}

// WorkflowNotifier starts the downstream workflow that follows an order status change.
type WorkflowNotifier interface {
	StartFulfillment(ctx context.Context, event domain.OrderUpdated) error
	CompleteOrder(ctx context.Context, event domain.OrderUpdated) error
	ReleaseOrder(ctx context.Context, event domain.OrderUpdated) error
	NotifyFailure(ctx context.Context, event domain.OrderUpdated) error
}
