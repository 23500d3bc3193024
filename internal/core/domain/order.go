package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusConfirmed  OrderStatus = "CONFIRMED"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusCompleted  OrderStatus = "COMPLETED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
	OrderStatusFailed     OrderStatus = "FAILED"
)

// AllOrderStatuses lists every lifecycle state in declaration order.
var AllOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusCompleted,
	OrderStatusCancelled,
	OrderStatusFailed,
}

// orderTransitions is the only source of truth for UpdateStatus.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusConfirmed:  {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCompleted, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusCompleted, OrderStatusFailed, OrderStatusCancelled},
}

// reconcileTransitions are driven only by the stock release outcome.
var reconcileTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending: {OrderStatusConfirmed, OrderStatusFailed},
}

var cancellableStatuses = []OrderStatus{OrderStatusPending, OrderStatusConfirmed}

func ParseOrderStatus(s string) (OrderStatus, bool) {
	status := OrderStatus(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range AllOrderStatuses {
		if status == known {
			return status, true
		}
	}
	return "", false
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled || s == OrderStatusFailed
}

// CanTransitionTo reports whether the transition table allows s -> to.
func (s OrderStatus) CanTransitionTo(to OrderStatus) bool {
	return contains(orderTransitions[s], to)
}

// AllowedTransitions returns a copy of the outgoing edges of s.
func (s OrderStatus) AllowedTransitions() []OrderStatus {
	return append([]OrderStatus(nil), orderTransitions[s]...)
}

type OrderItem struct {
	ProductID string
	Quantity  int
	UnitPrice decimal.Decimal
}

func (i OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Order struct {
	ID            uuid.UUID
	UserID        string
	Items         []OrderItem
	Status        OrderStatus
	TotalAmount   decimal.Decimal
	Notes         *string
	FailureReason *string
	Version       int // optimistic locking
	CreatedAt     time.Time
	UpdatedAt     time.Time
	CompletedAt   *time.Time
}

// NewOrder validates the items and returns a PENDING order with its total computed.
func NewOrder(id uuid.UUID, userID string, items []OrderItem, notes *string, now time.Time) (Order, error) {
	if strings.TrimSpace(userID) == "" {
		return Order{}, &OrderValidationError{Field: "user_id", Message: "user reference is required"}
	}
	if len(items) == 0 {
		return Order{}, &OrderValidationError{Field: "items", Message: "order must contain at least one item"}
	}
	for i, item := range items {
		if item.ProductID == "" {
			return Order{}, &OrderValidationError{Field: "items", Index: i, Message: "product reference is required"}
		}
		if item.Quantity <= 0 {
			return Order{}, &OrderValidationError{Field: "items", Index: i, Message: "quantity must be greater than zero"}
		}
		if item.UnitPrice.IsNegative() {
			return Order{}, &OrderValidationError{Field: "items", Index: i, Message: "price cannot be negative"}
		}
	}

	now = now.UTC()
	return Order{
		ID:          id,
		UserID:      userID,
		Items:       copyItems(items),
		Status:      OrderStatusPending,
		TotalAmount: CalculateTotal(items),
		Notes:       copyString(notes),
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// CalculateTotal sums quantity x price over items without rounding.
func CalculateTotal(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// UpdateStatus returns a copy of o moved to the given status. The receiver is never modified.
func (o Order) UpdateStatus(to OrderStatus, now time.Time) (Order, error) {
	if !o.Status.CanTransitionTo(to) {
		return o, &InvalidStatusTransitionError{OrderID: o.ID, From: o.Status, To: to}
	}
	return o.moveTo(to, now), nil
}

// Cancel is allowed only before the order has entered fulfillment.
func (o Order) Cancel(now time.Time) (Order, error) {
	if !contains(cancellableStatuses, o.Status) {
		return o, &InvalidStatusTransitionError{OrderID: o.ID, From: o.Status, To: OrderStatusCancelled}
	}
	return o.UpdateStatus(OrderStatusCancelled, now)
}

// Confirm applies a successful stock release.
func (o Order) Confirm(now time.Time) (Order, error) {
	return o.reconcile(OrderStatusConfirmed, nil, now)
}

// Fail applies a failed stock release and records why.
func (o Order) Fail(reason string, now time.Time) (Order, error) {
	return o.reconcile(OrderStatusFailed, &reason, now)
}

// WithNotes replaces the notes of a non-terminal order.
func (o Order) WithNotes(notes string, now time.Time) (Order, error) {
	if o.Status.IsTerminal() {
		return o, ErrOrderImmutable
	}
	next := o.clone()
	next.Notes = &notes
	next.UpdatedAt = now.UTC()
	return next, nil
}

// Validate checks the entity invariants.
func (o Order) Validate() error {
	if len(o.Items) == 0 {
		return &OrderValidationError{Field: "items", Message: "order must contain at least one item"}
	}
	for i, item := range o.Items {
		if item.Quantity <= 0 {
			return &OrderValidationError{Field: "items", Index: i, Message: "quantity must be greater than zero"}
		}
	}
	if !o.TotalAmount.Equal(CalculateTotal(o.Items)) {
		return &OrderValidationError{Field: "total_amount", Message: "total does not match item subtotals"}
	}
	return nil
}

func (o Order) reconcile(to OrderStatus, reason *string, now time.Time) (Order, error) {
	if !contains(reconcileTransitions[o.Status], to) {
		return o, &InvalidStatusTransitionError{OrderID: o.ID, From: o.Status, To: to}
	}
	next := o.moveTo(to, now)
	next.FailureReason = copyString(reason)
	return next, nil
}

func (o Order) moveTo(to OrderStatus, now time.Time) Order {
	now = now.UTC()
	next := o.clone()
	next.Status = to
	next.UpdatedAt = now
	if to == OrderStatusCompleted {
		next.CompletedAt = &now
	}
	return next
}

func (o Order) clone() Order {
	c := o
	c.Items = copyItems(o.Items)
	c.Notes = copyString(o.Notes)
	c.FailureReason = copyString(o.FailureReason)
	if o.CompletedAt != nil {
		t := *o.CompletedAt
		c.CompletedAt = &t
	}
	return c
}

func copyItems(items []OrderItem) []OrderItem {
	return append([]OrderItem(nil), items...)
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func contains(list []OrderStatus, s OrderStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
