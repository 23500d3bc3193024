package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	expiringSoonDays = 30
	expiryNoticeDays = 90
)

type ProductStatus string

const (
	ProductStatusActive       ProductStatus = "ACTIVE"
	ProductStatusInactive     ProductStatus = "INACTIVE"
	ProductStatusDiscontinued ProductStatus = "DISCONTINUED"
)

type Product struct {
	ID     string
	Name   string
	Status ProductStatus
}

type StockStatusCode string

const (
	StockAvailable    StockStatusCode = "AVAILABLE"
	StockLow          StockStatusCode = "LOW_STOCK"
	StockOutOfStock   StockStatusCode = "OUT_OF_STOCK"
	StockInsufficient StockStatusCode = "INSUFFICIENT_STOCK"
	StockExpired      StockStatusCode = "EXPIRED"
	StockExpiringSoon StockStatusCode = "EXPIRING_SOON"
	StockInactive     StockStatusCode = "INACTIVE"
)

// StockValidationResult is produced fresh on every validation and never persisted.
type StockValidationResult struct {
	IsAvailable     bool
	RemainingStock  int
	Warnings        []string
	StatusCodes     []StockStatusCode
	DaysUntilExpiry *int
}

func (r StockValidationResult) Has(code StockStatusCode) bool {
	for _, c := range r.StatusCodes {
		if c == code {
			return true
		}
	}
	return false
}

func (r *StockValidationResult) tag(code StockStatusCode, warning string) {
	if warning != "" {
		r.Warnings = append(r.Warnings, warning)
	}
	if !r.Has(code) {
		r.StatusCodes = append(r.StatusCodes, code)
	}
}

func (r *StockValidationResult) block(code StockStatusCode, warning string) {
	r.IsAvailable = false
	r.tag(code, warning)
}

// StockCheckItem is one line of a batched stock check.
type StockCheckItem struct {
	ProductID string
	Quantity  int
}

type InventoryRecord struct {
	ProductID  string
	Quantity   int
	MinStock   int
	MaxStock   int
	UnitPrice  decimal.Decimal
	ExpiryDate *time.Time
	Version    int // optimistic locking
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Validate classifies a request for requestedQty units. A requestedQty <= 0 is a status probe.
func (r InventoryRecord) Validate(requestedQty int, productStatus ProductStatus, now time.Time) StockValidationResult {
	res := StockValidationResult{IsAvailable: true, RemainingStock: r.Quantity}

	if productStatus != ProductStatusActive {
		res.block(StockInactive, fmt.Sprintf("product %s is %s", r.ProductID, strings.ToLower(string(productStatus))))
	}

	if r.ExpiryDate != nil {
		days := daysUntil(*r.ExpiryDate, now)
		res.DaysUntilExpiry = &days
		switch {
		case days <= 0:
			res.block(StockExpired, fmt.Sprintf("product %s expired on %s", r.ProductID, r.ExpiryDate.Format("2006-01-02")))
		case days <= expiringSoonDays:
			res.tag(StockExpiringSoon, fmt.Sprintf("product %s expires in %d days", r.ProductID, days))
		case days <= expiryNoticeDays:
			res.Warnings = append(res.Warnings, fmt.Sprintf("product %s expires in %d days", r.ProductID, days))
		}
	}

	switch {
	case r.Quantity <= 0:
		res.RemainingStock = 0
		res.block(StockOutOfStock, fmt.Sprintf("product %s is out of stock", r.ProductID))
	case requestedQty <= 0:
		if r.Quantity < r.MinStock {
			res.tag(StockLow, fmt.Sprintf("stock for product %s is below minimum (%d < %d)", r.ProductID, r.Quantity, r.MinStock))
		}
	default:
		remaining := r.Quantity - requestedQty
		if remaining < 0 {
			res.RemainingStock = 0
			res.block(StockInsufficient, fmt.Sprintf("requested %d of product %s but only %d available", requestedQty, r.ProductID, r.Quantity))
			break
		}
		res.RemainingStock = remaining
		if remaining < r.MinStock {
			res.tag(StockLow, fmt.Sprintf("stock for product %s will fall below minimum (%d < %d)", r.ProductID, remaining, r.MinStock))
		}
	}

	if res.IsAvailable {
		res.tag(StockAvailable, "")
	}
	return res
}

type MovementKind string

const (
	MovementIncrease MovementKind = "INCREASE"
	MovementDecrease MovementKind = "DECREASE"
	MovementRelease  MovementKind = "RELEASE"
)

// StockMovement is the audit row written for every quantity change.
type StockMovement struct {
	ID            uuid.UUID
	ProductID     string
	Kind          MovementKind
	Delta         int
	QuantityAfter int
	Reason        string
	Reference     string
	CreatedAt     time.Time
}

// Adjust returns a copy of r with quantityDelta applied, plus the movement to audit it.
func (r InventoryRecord) Adjust(quantityDelta int, reason string, kind MovementKind, now time.Time) (InventoryRecord, StockMovement, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return r, StockMovement{}, fmt.Errorf("%w: reason is required", ErrInvalidAdjustment)
	}
	switch kind {
	case MovementIncrease:
		if quantityDelta <= 0 {
			return r, StockMovement{}, fmt.Errorf("%w: increase requires a positive quantity", ErrInvalidAdjustment)
		}
	case MovementDecrease:
		if quantityDelta >= 0 {
			return r, StockMovement{}, fmt.Errorf("%w: decrease requires a negative quantity", ErrInvalidAdjustment)
		}
	default:
		return r, StockMovement{}, fmt.Errorf("%w: unknown movement kind %q", ErrInvalidAdjustment, kind)
	}

	next, err := r.apply(quantityDelta, now)
	if err != nil {
		return r, StockMovement{}, err
	}
	return next, newMovement(next, kind, quantityDelta, reason, "", now), nil
}

// Debit removes quantity units reserved by an order.
func (r InventoryRecord) Debit(quantity int, orderRef string, now time.Time) (InventoryRecord, StockMovement, error) {
	if quantity <= 0 {
		return r, StockMovement{}, fmt.Errorf("%w: debit quantity must be positive", ErrInvalidAdjustment)
	}
	if r.Quantity < quantity {
		return r, StockMovement{}, fmt.Errorf("%w: product %s has %d, requested %d", ErrInsufficientStock, r.ProductID, r.Quantity, quantity)
	}
	next, err := r.apply(-quantity, now)
	if err != nil {
		return r, StockMovement{}, err
	}
	return next, newMovement(next, MovementRelease, -quantity, "stock release for order", orderRef, now), nil
}

func (r InventoryRecord) apply(delta int, now time.Time) (InventoryRecord, error) {
	quantity := r.Quantity + delta
	if quantity < 0 {
		return r, fmt.Errorf("%w: quantity would become negative (%d)", ErrInvalidAdjustment, quantity)
	}
	if quantity > r.MaxStock {
		return r, fmt.Errorf("%w: quantity %d exceeds max stock %d", ErrInvalidAdjustment, quantity, r.MaxStock)
	}
	next := r
	next.Quantity = quantity
	next.UpdatedAt = now.UTC()
	return next, nil
}

func newMovement(r InventoryRecord, kind MovementKind, delta int, reason, ref string, now time.Time) StockMovement {
	return StockMovement{
		ID:            uuid.New(),
		ProductID:     r.ProductID,
		Kind:          kind,
		Delta:         delta,
		QuantityAfter: r.Quantity,
		Reason:        reason,
		Reference:     ref,
		CreatedAt:     now.UTC(),
	}
}

func daysUntil(expiry, now time.Time) int {
	e := expiry.UTC()
	n := now.UTC()
	expiryDay := time.Date(e.Year(), e.Month(), e.Day(), 0, 0, 0, 0, time.UTC)
	today := time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)
	return int(expiryDay.Sub(today).Hours() / 24)
}
