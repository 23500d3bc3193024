package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/fulfillment/internal/core/domain"
	"github.com/rl1809/fulfillment/internal/port"
)

type AdjustStockCommand struct {
	ProductID string
	Delta     int
	Kind      domain.MovementKind
	Reason    string
}

// InventoryService answers stock checks and applies manual adjustments.
type InventoryService struct {
	uow      port.UnitOfWork
	products port.ProductRepository
	logger   *zap.Logger
	now      func() time.Time
}

func NewInventoryService(uow port.UnitOfWork, products port.ProductRepository, logger *zap.Logger) *InventoryService {
	return &InventoryService{
		uow:      uow,
		products: products,
		logger:   logger,
		now:      time.Now,
	}
}

// CheckStock validates every item against its inventory record. Unknown
// products are reported per item rather than failing the whole batch.
func (s *InventoryService) CheckStock(ctx context.Context, items []domain.StockCheckItem) ([]domain.ItemAvailability, error) {
	statuses := make(map[string]domain.ProductStatus, len(items))
	for _, it := range items {
		if _, seen := statuses[it.ProductID]; seen {
			continue
		}
		p, err := s.products.GetProduct(ctx, it.ProductID)
		if errors.Is(err, domain.ErrProductNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load product %s: %w", it.ProductID, err)
		}
		statuses[it.ProductID] = p.Status
	}

	now := s.now()
	results := make([]domain.ItemAvailability, 0, len(items))
	err := s.uow.Execute(ctx, func(ctx context.Context, repos port.Repositories) error {
		for _, it := range items {
			availability := domain.ItemAvailability{ProductID: it.ProductID, Requested: it.Quantity}

			status, known := statuses[it.ProductID]
			if !known {
				availability.Error = domain.ErrProductNotFound.Error()
				results = append(results, availability)
				continue
			}

			inv, err := repos.Inventory().GetByProductID(ctx, it.ProductID)
			if errors.Is(err, domain.ErrInventoryNotFound) {
				availability.Error = err.Error()
				results = append(results, availability)
				continue
			}
			if err != nil {
				return fmt.Errorf("load inventory %s: %w", it.ProductID, err)
			}

			availability.Result = inv.Validate(it.Quantity, status, now)
			results = append(results, availability)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// ValidateStock is the single-product read path; quantity <= 0 only reports status.
func (s *InventoryService) ValidateStock(ctx context.Context, productID string, quantity int) (domain.StockValidationResult, error) {
	p, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return domain.StockValidationResult{}, err
	}

	var result domain.StockValidationResult
	err = s.uow.Execute(ctx, func(ctx context.Context, repos port.Repositories) error {
		inv, err := repos.Inventory().GetByProductID(ctx, productID)
		if err != nil {
			return err
		}
		result = inv.Validate(quantity, p.Status, s.now())
		return nil
	})
	return result, err
}

func (s *InventoryService) AdjustStock(ctx context.Context, cmd AdjustStockCommand) (domain.InventoryRecord, error) {
	var updated domain.InventoryRecord
	err := s.uow.Execute(ctx, func(ctx context.Context, repos port.Repositories) error {
		inv, err := repos.Inventory().GetByProductID(ctx, cmd.ProductID)
		if err != nil {
			return err
		}

		next, movement, err := inv.Adjust(cmd.Delta, cmd.Reason, cmd.Kind, s.now())
		if err != nil {
			return err
		}

		if err := repos.Inventory().Update(ctx, next); err != nil {
			return fmt.Errorf("update inventory: %w", err)
		}
		if err := repos.Movements().Add(ctx, movement); err != nil {
			return fmt.Errorf("record movement: %w", err)
		}

		updated = next
		return nil
	})
	if err != nil {
		return domain.InventoryRecord{}, err
	}

	s.logger.Info("stock adjusted",
		zap.String("product_id", updated.ProductID),
		zap.String("kind", string(cmd.Kind)),
		zap.Int("delta", cmd.Delta),
		zap.Int("quantity", updated.Quantity),
	)
	return updated, nil
}
