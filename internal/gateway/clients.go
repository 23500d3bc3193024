package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/rl1809/fulfillment/internal/core/domain"
)

var ErrCallFailed = errors.New("service call failed")

// InventoryClient implements port.StockChecker and port.ProductCatalog over the gateway.
type InventoryClient struct {
	gw *Gateway
}

func NewInventoryClient(gw *Gateway) *InventoryClient {
	return &InventoryClient{gw: gw}
}

func (c *InventoryClient) CheckStock(ctx context.Context, items []domain.StockCheckItem) ([]domain.ItemAvailability, error) {
	return call[[]domain.ItemAvailability](ctx, c.gw, ServiceInventory, OpStockCheck, items)
}

func (c *InventoryClient) GetProduct(ctx context.Context, productID string) (domain.Product, error) {
	return call[domain.Product](ctx, c.gw, ServiceInventory, OpGetProduct, productID)
}

// DirectoryClient implements port.UserDirectory and port.FacilityDirectory over the gateway.
type DirectoryClient struct {
	gw *Gateway
}

func NewDirectoryClient(gw *Gateway) *DirectoryClient {
	return &DirectoryClient{gw: gw}
}

func (c *DirectoryClient) GetUserByID(ctx context.Context, userID string) (domain.User, error) {
	return call[domain.User](ctx, c.gw, ServiceDirectory, OpGetUserByID, userID)
}

func (c *DirectoryClient) GetHealthCareCenterByID(ctx context.Context, centerID string) (domain.HealthCareCenter, error) {
	return call[domain.HealthCareCenter](ctx, c.gw, ServiceDirectory, OpGetHealthCareCenterByID, centerID)
}

func call[T any](ctx context.Context, gw *Gateway, serviceType ServiceType, op Operation, data any) (T, error) {
	var zero T
	resp := gw.Execute(ctx, ServiceContext{ServiceType: serviceType, Operation: op, Data: data})
	if !resp.Success {
		return zero, fmt.Errorf("%w: %s %s: %s", ErrCallFailed, serviceType, op, resp.Error)
	}
	out, ok := resp.Data.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s returned %T", ErrCallFailed, op, resp.Data)
	}
	return out, nil
}
