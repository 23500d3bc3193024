package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rl1809/fulfillment/internal/core/domain"
	"github.com/rl1809/fulfillment/internal/port"
)

// LocalInventory serves the inventory operations from in-process components.
type LocalInventory struct {
	stock   port.StockChecker
	catalog port.ProductCatalog
}

func NewLocalInventory(stock port.StockChecker, catalog port.ProductCatalog) *LocalInventory {
	return &LocalInventory{stock: stock, catalog: catalog}
}

func (s *LocalInventory) Call(ctx context.Context, op Operation, payload []byte) ([]byte, error) {
	switch op {
	case OpStockCheck:
		var req StockCheckRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		items := make([]domain.StockCheckItem, 0, len(req.Items))
		for _, it := range req.Items {
			items = append(items, domain.StockCheckItem{ProductID: it.ProductID, Quantity: it.Quantity})
		}
		result, err := s.stock.CheckStock(ctx, items)
		if err != nil {
			return nil, err
		}
		return json.Marshal(toStockCheckResponse(result))

	case OpGetProduct:
		var req ProductRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		p, err := s.catalog.GetProduct(ctx, req.ProductID)
		if err != nil {
			return nil, err
		}
		return json.Marshal(ProductResponse{ID: p.ID, Name: p.Name, Status: string(p.Status)})
	}
	return nil, fmt.Errorf("%w: %s on %s", ErrUnknownOperation, op, ServiceInventory)
}

// LocalDirectory serves user and facility lookups from a directory repository.
type LocalDirectory struct {
	directory port.DirectoryRepository
}

func NewLocalDirectory(directory port.DirectoryRepository) *LocalDirectory {
	return &LocalDirectory{directory: directory}
}

func (s *LocalDirectory) Call(ctx context.Context, op Operation, payload []byte) ([]byte, error) {
	switch op {
	case OpGetUserByID:
		var req UserRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		u, err := s.directory.GetUser(ctx, req.UserID)
		if err != nil {
			return nil, err
		}
		return json.Marshal(UserResponse{ID: u.ID, DisplayName: u.DisplayName, HealthCareCenterID: u.HealthCareCenterID})

	case OpGetHealthCareCenterByID:
		var req HealthCareCenterRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		c, err := s.directory.GetHealthCareCenter(ctx, req.CenterID)
		if err != nil {
			return nil, err
		}
		return json.Marshal(HealthCareCenterResponse{ID: c.ID, Name: c.Name})
	}
	return nil, fmt.Errorf("%w: %s on %s", ErrUnknownOperation, op, ServiceDirectory)
}

// Operations lists what each local service type answers.
var Operations = map[ServiceType][]Operation{
	ServiceInventory: {OpStockCheck, OpGetProduct},
	ServiceDirectory: {OpGetUserByID, OpGetHealthCareCenterByID},
}
