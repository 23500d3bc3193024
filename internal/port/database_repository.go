package port

import (
	"context"

	"github.com/google/uuid"

	"github.com/rl1809/fulfillment/internal/core/domain"
)

type OrderRepository interface {
	// Add persists a new order together with its items
	Add(ctx context.Context, order domain.Order) error

	// Get returns domain.ErrOrderNotFound when the order does not exist
	Get(ctx context.Context, id uuid.UUID) (domain.Order, error)

	// Update writes the order with a version check for optimistic locking
	Update(ctx context.Context, order domain.Order) error
}

type InventoryRepository interface {
	// GetByProductID returns domain.ErrInventoryNotFound when no record exists
	GetByProductID(ctx context.Context, productID string) (domain.InventoryRecord, error)

	// Update writes the record with a version check for optimistic locking
	Update(ctx context.Context, record domain.InventoryRecord) error
}

type StockMovementRepository interface {
	Add(ctx context.Context, movement domain.StockMovement) error
}

// Repositories are bound to the transaction of the enclosing unit of work.
type Repositories interface {
	Orders() OrderRepository
	Inventory() InventoryRepository
	Movements() StockMovementRepository
}

type UnitOfWork interface {
	// Execute commits when fn returns nil and rolls back otherwise
	Execute(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}

type ProductRepository interface {
	GetProduct(ctx context.Context, productID string) (domain.Product, error)
}

type DirectoryRepository interface {
	GetUser(ctx context.Context, userID string) (domain.User, error)
	GetHealthCareCenter(ctx context.Context, centerID string) (domain.HealthCareCenter, error)
}
