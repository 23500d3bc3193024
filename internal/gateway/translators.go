package gateway

import (
	"encoding/json"
	"fmt"

	"github.com/rl1809/fulfillment/internal/core/domain"
)

func defaultTranslators() map[Operation]Translator {
	return map[Operation]Translator{
		OpStockCheck: {
			Request: func(data any) ([]byte, error) {
				items, ok := data.([]domain.StockCheckItem)
				if !ok {
					return nil, fmt.Errorf("%w: expected []domain.StockCheckItem, got %T", ErrInvalidRequest, data)
				}
				req := StockCheckRequest{Items: make([]StockCheckLine, 0, len(items))}
				for _, it := range items {
					req.Items = append(req.Items, StockCheckLine{ProductID: it.ProductID, Quantity: it.Quantity})
				}
				return json.Marshal(req)
			},
			Response: func(payload []byte) (any, error) {
				var resp StockCheckResponse
				if err := json.Unmarshal(payload, &resp); err != nil {
					return nil, err
				}
				return fromStockCheckResponse(resp), nil
			},
		},
		OpGetProduct: {
			Request: idRequest(func(id string) any { return ProductRequest{ProductID: id} }),
			Response: func(payload []byte) (any, error) {
				var resp ProductResponse
				if err := json.Unmarshal(payload, &resp); err != nil {
					return nil, err
				}
				return domain.Product{ID: resp.ID, Name: resp.Name, Status: domain.ProductStatus(resp.Status)}, nil
			},
		},
		OpGetUserByID: {
			Request: idRequest(func(id string) any { return UserRequest{UserID: id} }),
			Response: func(payload []byte) (any, error) {
				var resp UserResponse
				if err := json.Unmarshal(payload, &resp); err != nil {
					return nil, err
				}
				return domain.User{ID: resp.ID, DisplayName: resp.DisplayName, HealthCareCenterID: resp.HealthCareCenterID}, nil
			},
		},
		OpGetHealthCareCenterByID: {
			Request: idRequest(func(id string) any { return HealthCareCenterRequest{CenterID: id} }),
			Response: func(payload []byte) (any, error) {
				var resp HealthCareCenterResponse
				if err := json.Unmarshal(payload, &resp); err != nil {
					return nil, err
				}
				return domain.HealthCareCenter{ID: resp.ID, Name: resp.Name}, nil
			},
		},
	}
}

// idRequest builds a request translator for operations keyed by a single id.
func idRequest(build func(id string) any) func(data any) ([]byte, error) {
	return func(data any) ([]byte, error) {
		id, ok := data.(string)
		if !ok || id == "" {
			return nil, fmt.Errorf("%w: expected non-empty id, got %v", ErrInvalidRequest, data)
		}
		return json.Marshal(build(id))
	}
}
