package service

import (
	"context"
	"math"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/rl1809/fulfillment/internal/core/domain"
)

type BulkUpdateItem struct {
	OrderID string
	Status  *string
	Notes   *string
}

type BulkUpdateCommand struct {
	Updates   []BulkUpdateItem
	UpdatedBy string
}

type BulkItemResult struct {
	OrderID   string
	Success   bool
	Status    domain.OrderStatus
	ErrorCode string
	Error     string
}

type BulkUpdateResult struct {
	Results         []BulkItemResult
	TotalAttempted  int
	TotalSuccessful int
	TotalFailed     int
	SuccessRate     float64
}

// BulkUpdateOrders updates each order in its own unit of work. It only fails
// as a whole when the batch is empty or too large.
func (s *OrderService) BulkUpdateOrders(ctx context.Context, cmd BulkUpdateCommand) (*BulkUpdateResult, error) {
	switch {
	case len(cmd.Updates) == 0:
		return nil, ErrBulkEmpty
	case len(cmd.Updates) > MaxBulkUpdates:
		return nil, ErrBulkTooLarge
	}

	ctx, span := s.tracer.Start(ctx, "bulk_update_orders")
	defer span.End()

	result := &BulkUpdateResult{Results: make([]BulkItemResult, 0, len(cmd.Updates))}
	for _, item := range cmd.Updates {
		r := s.bulkUpdateOne(ctx, item, cmd.UpdatedBy)
		result.Results = append(result.Results, r)
		result.TotalAttempted++
		if r.Success {
			result.TotalSuccessful++
		} else {
			result.TotalFailed++
		}
	}
	result.SuccessRate = successRate(result.TotalSuccessful, result.TotalAttempted)

	span.SetAttributes(
		attribute.Int("bulk.attempted", result.TotalAttempted),
		attribute.Int("bulk.failed", result.TotalFailed),
	)
	s.logger.Info("bulk order update finished",
		zap.Int("attempted", result.TotalAttempted),
		zap.Int("successful", result.TotalSuccessful),
		zap.Int("failed", result.TotalFailed),
	)
	return result, nil
}

func (s *OrderService) bulkUpdateOne(ctx context.Context, item BulkUpdateItem, updatedBy string) BulkItemResult {
	res := BulkItemResult{OrderID: item.OrderID}

	id, err := uuid.Parse(item.OrderID)
	if err != nil {
		return failed(res, &domain.OrderValidationError{Field: "order_id", Message: "not a valid order id"})
	}

	cmd := UpdateOrderStatusCommand{OrderID: id, Notes: item.Notes, UpdatedBy: updatedBy}
	if item.Status != nil {
		status, ok := domain.ParseOrderStatus(*item.Status)
		if !ok {
			return failed(res, &domain.OrderValidationError{Field: "status", Message: "unknown status " + *item.Status})
		}
		cmd.Status = &status
	}

	order, err := s.UpdateOrderStatus(ctx, cmd)
	if err != nil {
		return failed(res, err)
	}

	res.Success = true
	res.Status = order.Status
	return res
}

func failed(res BulkItemResult, err error) BulkItemResult {
	res.Success = false
	res.ErrorCode = errorCode(err)
	res.Error = err.Error()
	return res
}

// successRate is a percentage rounded to two decimals.
func successRate(successful, attempted int) float64 {
	if attempted == 0 {
		return 0
	}
	return math.Round(float64(successful)/float64(attempted)*10000) / 100
}
