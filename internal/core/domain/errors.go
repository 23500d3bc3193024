package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrOrderNotFound           = errors.New("order not found")
	ErrInventoryNotFound       = errors.New("inventory record not found")
	ErrProductNotFound         = errors.New("product not found")
	ErrUserNotFound            = errors.New("user not found")
	ErrFacilityNotFound        = errors.New("health care center not found")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrOrderImmutable          = errors.New("order is in a terminal state and cannot be modified")
	ErrInsufficientStock       = errors.New("insufficient stock")
	ErrInvalidAdjustment       = errors.New("invalid stock adjustment")
	ErrOrderCreation           = errors.New("order creation failed")
)

type InvalidStatusTransitionError struct {
	OrderID uuid.UUID
	From    OrderStatus
	To      OrderStatus
}

func (e *InvalidStatusTransitionError) Error() string {
	return fmt.Sprintf("order %s: cannot transition from %s to %s", e.OrderID, e.From, e.To)
}

func (e *InvalidStatusTransitionError) Is(target error) bool {
	return target == ErrInvalidStatusTransition
}

// OrderValidationError reports an item-level input problem. Index is only meaningful for Field "items".
type OrderValidationError struct {
	Field   string
	Index   int
	Message string
}

func (e *OrderValidationError) Error() string {
	if e.Field == "items" {
		return fmt.Sprintf("invalid %s[%d]: %s", e.Field, e.Index, e.Message)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// ItemAvailability is the per-item payload carried by a failed stock check.
type ItemAvailability struct {
	ProductID string
	Requested int
	Result    StockValidationResult
	Error     string
}

// OrderCreationError wraps a failed stock check or an unexpected fault during order creation.
type OrderCreationError struct {
	Reason string
	Items  []ItemAvailability
	Err    error
}

func (e *OrderCreationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("order creation failed: %s: %v", e.Reason, e.Err)
	}
	return "order creation failed: " + e.Reason
}

func (e *OrderCreationError) Unwrap() error { return e.Err }

func (e *OrderCreationError) Is(target error) bool {
	return target == ErrOrderCreation
}
