package handler

import (
	"errors"

	"github.com/rl1809/fulfillment/internal/core/domain"
	"github.com/rl1809/fulfillment/internal/core/service"
	apperrors "github.com/rl1809/fulfillment/pkg/errors"
)

// toStandardError maps core errors onto the API error body.
func toStandardError(err error) *apperrors.StandardError {
	var (
		std        *apperrors.StandardError
		validation *domain.OrderValidationError
		creation   *domain.OrderCreationError
	)

	switch {
	case errors.As(err, &std):
		return std
	case errors.As(err, &validation):
		return apperrors.NewValidationError(validation.Error(), validation.Field)
	case errors.Is(err, service.ErrNothingToUpdate),
		errors.Is(err, service.ErrBulkEmpty),
		errors.Is(err, service.ErrBulkTooLarge),
		errors.Is(err, domain.ErrInvalidAdjustment):
		return apperrors.New(apperrors.CodeValidationError, err.Error(), nil)
	case errors.As(err, &creation) && len(creation.Items) > 0:
		return apperrors.New(apperrors.CodeStockUnavailable, creation.Reason, toAvailability(creation.Items))
	case errors.Is(err, service.ErrDuplicateRequest):
		return apperrors.New(apperrors.CodeDuplicateRequest, err.Error(), nil)
	case errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrProductNotFound),
		errors.Is(err, domain.ErrInventoryNotFound):
		return apperrors.New(apperrors.CodeNotFound, err.Error(), nil)
	case errors.Is(err, domain.ErrOrderImmutable):
		return apperrors.New(apperrors.CodeOrderImmutable, err.Error(), nil)
	case errors.Is(err, domain.ErrInvalidStatusTransition):
		return apperrors.New(apperrors.CodeInvalidStatusTransition, err.Error(), nil)
	}
	return apperrors.NewInternalError("internal error", nil)
}
