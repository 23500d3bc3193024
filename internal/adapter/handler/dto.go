package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/fulfillment/internal/core/domain"
	"github.com/rl1809/fulfillment/internal/core/service"
)

type OrderItemRequest struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type CreateOrderRequest struct {
	RequestID string             `json:"request_id"`
	UserID    string             `json:"user_id"`
	Items     []OrderItemRequest `json:"items"`
	Notes     *string            `json:"notes"`
}

func (r CreateOrderRequest) command() service.CreateOrderCommand {
	items := make([]domain.OrderItem, 0, len(r.Items))
	for _, it := range r.Items {
		items = append(items, domain.OrderItem{ProductID: it.ProductID, Quantity: it.Quantity, UnitPrice: it.UnitPrice})
	}
	return service.CreateOrderCommand{RequestID: r.RequestID, UserID: r.UserID, Items: items, Notes: r.Notes}
}

type UpdateStatusRequest struct {
	Status    *string `json:"status"`
	Notes     *string `json:"notes"`
	UpdatedBy string  `json:"updated_by"`
}

type CancelOrderRequest struct {
	CancelledBy string `json:"cancelled_by"`
}

type BulkUpdateEntry struct {
	OrderID string  `json:"order_id"`
	Status  *string `json:"status"`
	Notes   *string `json:"notes"`
}

type BulkUpdateRequest struct {
	Updates   []BulkUpdateEntry `json:"updates"`
	UpdatedBy string            `json:"updated_by"`
}

func (r BulkUpdateRequest) command() service.BulkUpdateCommand {
	items := make([]service.BulkUpdateItem, 0, len(r.Updates))
	for _, u := range r.Updates {
		items = append(items, service.BulkUpdateItem{OrderID: u.OrderID, Status: u.Status, Notes: u.Notes})
	}
	return service.BulkUpdateCommand{Updates: items, UpdatedBy: r.UpdatedBy}
}

type AdjustStockRequest struct {
	Delta  int    `json:"delta"`
	Kind   string `json:"kind"`
	Reason string `json:"reason"`
}

type OrderItemResponse struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type OrderResponse struct {
	ID            string              `json:"id"`
	UserID        string              `json:"user_id"`
	Status        string              `json:"status"`
	Items         []OrderItemResponse `json:"items"`
	TotalAmount   decimal.Decimal     `json:"total_amount"`
	Notes         *string             `json:"notes,omitempty"`
	FailureReason *string             `json:"failure_reason,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
	CompletedAt   *time.Time          `json:"completed_at,omitempty"`
}

func toOrderResponse(o domain.Order) OrderResponse {
	items := make([]OrderItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItemResponse{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Subtotal:  it.Subtotal(),
		})
	}
	return OrderResponse{
		ID:            o.ID.String(),
		UserID:        o.UserID,
		Status:        string(o.Status),
		Items:         items,
		TotalAmount:   o.TotalAmount,
		Notes:         o.Notes,
		FailureReason: o.FailureReason,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
		CompletedAt:   o.CompletedAt,
	}
}

type StockResultResponse struct {
	IsAvailable     bool     `json:"is_available"`
	RemainingStock  int      `json:"remaining_stock"`
	Warnings        []string `json:"warnings"`
	StatusCodes     []string `json:"status_codes"`
	DaysUntilExpiry *int     `json:"days_until_expiry,omitempty"`
}

func toStockResult(r domain.StockValidationResult) StockResultResponse {
	codes := make([]string, 0, len(r.StatusCodes))
	for _, c := range r.StatusCodes {
		codes = append(codes, string(c))
	}
	warnings := r.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	return StockResultResponse{
		IsAvailable:     r.IsAvailable,
		RemainingStock:  r.RemainingStock,
		Warnings:        warnings,
		StatusCodes:     codes,
		DaysUntilExpiry: r.DaysUntilExpiry,
	}
}

type ItemAvailabilityResponse struct {
	ProductID string              `json:"product_id"`
	Requested int                 `json:"requested"`
	Result    StockResultResponse `json:"result"`
	Error     string              `json:"error,omitempty"`
}

func toAvailability(items []domain.ItemAvailability) []ItemAvailabilityResponse {
	out := make([]ItemAvailabilityResponse, 0, len(items))
	for _, a := range items {
		out = append(out, ItemAvailabilityResponse{
			ProductID: a.ProductID,
			Requested: a.Requested,
			Result:    toStockResult(a.Result),
			Error:     a.Error,
		})
	}
	return out
}

type CreateOrderResponse struct {
	Order        OrderResponse              `json:"order"`
	Availability []ItemAvailabilityResponse `json:"availability"`
	ConsumerName *string                    `json:"consumer_name,omitempty"`
	FacilityName *string                    `json:"facility_name,omitempty"`
}

type BulkItemResponse struct {
	OrderID   string `json:"order_id"`
	Success   bool   `json:"success"`
	Status    string `json:"status,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
	Error     string `json:"error,omitempty"`
}

type BulkUpdateResponse struct {
	Results         []BulkItemResponse `json:"results"`
	TotalAttempted  int                `json:"total_attempted"`
	TotalSuccessful int                `json:"total_successful"`
	TotalFailed     int                `json:"total_failed"`
	SuccessRate     float64            `json:"success_rate"`
}

func toBulkResponse(r *service.BulkUpdateResult) BulkUpdateResponse {
	results := make([]BulkItemResponse, 0, len(r.Results))
	for _, it := range r.Results {
		results = append(results, BulkItemResponse{
			OrderID:   it.OrderID,
			Success:   it.Success,
			Status:    string(it.Status),
			ErrorCode: it.ErrorCode,
			Error:     it.Error,
		})
	}
	return BulkUpdateResponse{
		Results:         results,
		TotalAttempted:  r.TotalAttempted,
		TotalSuccessful: r.TotalSuccessful,
		TotalFailed:     r.TotalFailed,
		SuccessRate:     r.SuccessRate,
	}
}

type InventoryResponse struct {
	ProductID  string          `json:"product_id"`
	Quantity   int             `json:"quantity"`
	MinStock   int             `json:"min_stock"`
	MaxStock   int             `json:"max_stock"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	ExpiryDate *time.Time      `json:"expiry_date,omitempty"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func toInventoryResponse(r domain.InventoryRecord) InventoryResponse {
	return InventoryResponse{
		ProductID:  r.ProductID,
		Quantity:   r.Quantity,
		MinStock:   r.MinStock,
		MaxStock:   r.MaxStock,
		UnitPrice:  r.UnitPrice,
		ExpiryDate: r.ExpiryDate,
		UpdatedAt:  r.UpdatedAt,
	}
}
