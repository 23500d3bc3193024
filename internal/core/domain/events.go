package domain

import (
	"time"

	"github.com/google/uuid"
)

// Event is any value published on the event bus.
type Event interface {
	Type() string
}

const (
	EventStockReleaseRequested = "StockReleaseRequested"
	EventStockReleaseProcessed = "StockReleaseProcessed"
	EventOrderUpdated          = "OrderUpdated"
)

type ReleaseItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type StockReleaseRequested struct {
	OrderID uuid.UUID     `json:"order_id"`
	Items   []ReleaseItem `json:"items"`
}

func (e StockReleaseRequested) Type() string { return EventStockReleaseRequested }

type ReleaseItemResult struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
}

type StockReleaseProcessed struct {
	OrderID   uuid.UUID           `json:"order_id"`
	Success   bool                `json:"success"`
	Items     []ReleaseItemResult `json:"items"`
	Timestamp time.Time           `json:"timestamp"`
}

func (e StockReleaseProcessed) Type() string { return EventStockReleaseProcessed }

type OrderUpdated struct {
	OrderID   uuid.UUID   `json:"order_id"`
	OldStatus OrderStatus `json:"old_status"`
	NewStatus OrderStatus `json:"new_status"`
	UpdatedBy string      `json:"updated_by"`
	Timestamp time.Time   `json:"timestamp"`
}

func (e OrderUpdated) Type() string { return EventOrderUpdated }
