package main

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/fulfillment/internal/app"
	"github.com/rl1809/fulfillment/internal/config"
	"github.com/rl1809/fulfillment/internal/core/domain"
	"github.com/rl1809/fulfillment/internal/core/service"
)

const (
	productID     = "stress-item"
	initialStock  = 20
	totalRequests = 50
)

func main() {
	ctx := context.Background()

	container, err := app.NewContainer(ctx, &config.Config{Storage: config.StorageMemory}, zap.NewNop())
	if err != nil {
		log.Fatalf("failed to build container: %v", err)
	}
	defer container.Close()

	store, _ := container.Memory()
	price := decimal.RequireFromString("9.99")
	store.RegisterProduct(
		domain.Product{ID: productID, Name: "Stress item", Status: domain.ProductStatusActive},
		domain.InventoryRecord{Quantity: initialStock, MaxStock: 1000, UnitPrice: price},
	)

	var (
		accepted atomic.Int32
		rejected atomic.Int32
		mu       sync.Mutex
		orderIDs []uuid.UUID
		wg       sync.WaitGroup
	)
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func(userID int) {
			defer wg.Done()

			res, err := container.Orders.CreateOrder(ctx, service.CreateOrderCommand{
				UserID: fmt.Sprintf("user-%d", userID),
				Items:  []domain.OrderItem{{ProductID: productID, Quantity: 1, UnitPrice: price}},
			})
			if err != nil {
				rejected.Add(1)
				return
			}
			accepted.Add(1)
			mu.Lock()
			orderIDs = append(orderIDs, res.Order.ID)
			mu.Unlock()
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	confirmed, failed := 0, 0
	for _, id := range orderIDs {
		o, _ := store.Order(id)
		switch o.Status {
		case domain.OrderStatusConfirmed:
			confirmed++
		case domain.OrderStatusFailed:
			failed++
		}
	}
	inv, _ := store.Inventory(productID)

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Initial Stock:    %d\n", initialStock)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Accepted:         %d\n", accepted.Load())
	fmt.Printf("Rejected:         %d\n", rejected.Load())
	fmt.Printf("Confirmed:        %d\n", confirmed)
	fmt.Printf("Failed release:   %d\n", failed)
	fmt.Printf("Final Stock:      %d\n", inv.Quantity)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	if confirmed == initialStock {
		fmt.Printf("PASS: exactly %d orders confirmed\n", initialStock)
	} else {
		fmt.Printf("FAIL: expected %d confirmed orders, got %d\n", initialStock, confirmed)
	}

	if inv.Quantity == 0 {
		fmt.Println("PASS: stock depleted to 0")
	} else {
		fmt.Printf("FAIL: expected stock 0, got %d\n", inv.Quantity)
	}
}
