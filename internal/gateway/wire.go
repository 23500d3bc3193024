package gateway

import (
	"github.com/rl1809/fulfillment/internal/core/domain"
)

type StockCheckLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type StockCheckRequest struct {
	Items []StockCheckLine `json:"items"`
}

type StockCheckResult struct {
	ProductID       string   `json:"product_id"`
	Requested       int      `json:"requested"`
	IsAvailable     bool     `json:"is_available"`
	RemainingStock  int      `json:"remaining_stock"`
	Warnings        []string `json:"warnings,omitempty"`
	StatusCodes     []string `json:"status_codes"`
	DaysUntilExpiry *int     `json:"days_until_expiry,omitempty"`
	Error           string   `json:"error,omitempty"`
}

type StockCheckResponse struct {
	Items []StockCheckResult `json:"items"`
}

type ProductRequest struct {
	ProductID string `json:"product_id"`
}

type ProductResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

type UserRequest struct {
	UserID string `json:"user_id"`
}

type UserResponse struct {
	ID                 string  `json:"id"`
	DisplayName        string  `json:"display_name"`
	HealthCareCenterID *string `json:"health_care_center_id,omitempty"`
}

type HealthCareCenterRequest struct {
	CenterID string `json:"center_id"`
}

type HealthCareCenterResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func toStockCheckResponse(items []domain.ItemAvailability) StockCheckResponse {
	out := StockCheckResponse{Items: make([]StockCheckResult, 0, len(items))}
	for _, it := range items {
		codes := make([]string, 0, len(it.Result.StatusCodes))
		for _, c := range it.Result.StatusCodes {
			codes = append(codes, string(c))
		}
		out.Items = append(out.Items, StockCheckResult{
			ProductID:       it.ProductID,
			Requested:       it.Requested,
			IsAvailable:     it.Result.IsAvailable,
			RemainingStock:  it.Result.RemainingStock,
			Warnings:        it.Result.Warnings,
			StatusCodes:     codes,
			DaysUntilExpiry: it.Result.DaysUntilExpiry,
			Error:           it.Error,
		})
	}
	return out
}

func fromStockCheckResponse(resp StockCheckResponse) []domain.ItemAvailability {
	out := make([]domain.ItemAvailability, 0, len(resp.Items))
	for _, it := range resp.Items {
		codes := make([]domain.StockStatusCode, 0, len(it.StatusCodes))
		for _, c := range it.StatusCodes {
			codes = append(codes, domain.StockStatusCode(c))
		}
		out = append(out, domain.ItemAvailability{
			ProductID: it.ProductID,
			Requested: it.Requested,
			Result: domain.StockValidationResult{
				IsAvailable:     it.IsAvailable,
				RemainingStock:  it.RemainingStock,
				Warnings:        it.Warnings,
				StatusCodes:     codes,
				DaysUntilExpiry: it.DaysUntilExpiry,
			},
			Error: it.Error,
		})
	}
	return out
}
