package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/fulfillment/internal/core/domain"
)

// Seed is the JSON catalog a memory store can be started with.
type Seed struct {
	Products []SeedProduct `json:"products"`
	Centers  []SeedCenter  `json:"health_care_centers"`
	Users    []SeedUser    `json:"users"`
}

type SeedProduct struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Status     string          `json:"status"`
	Quantity   int             `json:"quantity"`
	MinStock   int             `json:"min_stock"`
	MaxStock   int             `json:"max_stock"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	ExpiryDate *time.Time      `json:"expiry_date,omitempty"`
}

type SeedCenter struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type SeedUser struct {
	ID                 string  `json:"id"`
	DisplayName        string  `json:"display_name"`
	HealthCareCenterID *string `json:"health_care_center_id,omitempty"`
}

// LoadSeed reads a seed file.
func LoadSeed(path string) (Seed, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, fmt.Errorf("read seed: %w", err)
	}
	var seed Seed
	if err := json.Unmarshal(raw, &seed); err != nil {
		return Seed{}, fmt.Errorf("decode seed %s: %w", path, err)
	}
	return seed, nil
}

// Apply registers the seed's catalog. A product without a status is ACTIVE.
func (s *MemoryStore) Apply(seed Seed) error {
	for _, p := range seed.Products {
		if p.ID == "" {
			return fmt.Errorf("seed product without id")
		}
		if p.Quantity < 0 || p.Quantity > p.MaxStock {
			return fmt.Errorf("seed product %s: quantity %d outside [0, %d]", p.ID, p.Quantity, p.MaxStock)
		}
		status := domain.ProductStatus(p.Status)
		if status == "" {
			status = domain.ProductStatusActive
		}
		s.RegisterProduct(
			domain.Product{ID: p.ID, Name: p.Name, Status: status},
			domain.InventoryRecord{
				Quantity:   p.Quantity,
				MinStock:   p.MinStock,
				MaxStock:   p.MaxStock,
				UnitPrice:  p.UnitPrice,
				ExpiryDate: p.ExpiryDate,
			},
		)
	}
	for _, c := range seed.Centers {
		s.AddHealthCareCenter(domain.HealthCareCenter{ID: c.ID, Name: c.Name})
	}
	for _, u := range seed.Users {
		s.AddUser(domain.User{ID: u.ID, DisplayName: u.DisplayName, HealthCareCenterID: u.HealthCareCenterID})
	}
	return nil
}
