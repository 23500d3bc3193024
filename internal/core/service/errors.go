package service

import (
	"errors"

	"github.com/rl1809/fulfillment/internal/core/domain"
)

const MaxBulkUpdates = 100

var (
	ErrDuplicateRequest = errors.New("duplicate request")
	ErrBulkEmpty        = errors.New("bulk update requires at least one order")
	ErrBulkTooLarge     = errors.New("bulk update exceeds the maximum batch size")
	ErrNothingToUpdate  = errors.New("status or notes must be provided")
)

// Per-item error codes reported by BulkUpdateOrders.
const (
	CodeOrderNotFound           = "ORDER_NOT_FOUND"
	CodeInvalidStatusTransition = "INVALID_STATUS_TRANSITION"
	CodeValidationError         = "VALIDATION_ERROR"
	CodeOrderImmutable          = "ORDER_IMMUTABLE"
	CodeInternalError           = "INTERNAL_ERROR"
)

func errorCode(err error) string {
	var validation *domain.OrderValidationError
	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		return CodeOrderNotFound
	case errors.Is(err, domain.ErrOrderImmutable):
		return CodeOrderImmutable
	case errors.Is(err, domain.ErrInvalidStatusTransition):
		return CodeInvalidStatusTransition
	case errors.As(err, &validation), errors.Is(err, ErrNothingToUpdate):
		return CodeValidationError
	}
	return CodeInternalError
}
