package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/fulfillment/internal/adapter/storage"
	"github.com/rl1809/fulfillment/internal/core/domain"
	"github.com/rl1809/fulfillment/internal/eventbus"
	"github.com/rl1809/fulfillment/internal/port"
)

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

// directory adapts the memory store to the user and facility ports.
type directory struct {
	store *storage.MemoryStore
}

func (d directory) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return d.store.GetUser(ctx, id)
}

func (d directory) GetHealthCareCenterByID(ctx context.Context, id string) (domain.HealthCareCenter, error) {
	return d.store.GetHealthCareCenter(ctx, id)
}

// recordingNotifier records which workflow was triggered for which order.
type recordingNotifier struct {
	mu    sync.Mutex
	calls []string
}

func (n *recordingNotifier) record(name string, e domain.OrderUpdated) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, name+":"+e.OrderID.String())
	return nil
}

func (n *recordingNotifier) StartFulfillment(ctx context.Context, e domain.OrderUpdated) error {
	return n.record("start", e)
}

func (n *recordingNotifier) CompleteOrder(ctx context.Context, e domain.OrderUpdated) error {
	return n.record("complete", e)
}

func (n *recordingNotifier) ReleaseOrder(ctx context.Context, e domain.OrderUpdated) error {
	return n.record("release", e)
}

func (n *recordingNotifier) NotifyFailure(ctx context.Context, e domain.OrderUpdated) error {
	return n.record("failure", e)
}

func (n *recordingNotifier) Calls() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.calls...)
}

// eventLog captures every event of the given types published on a bus.
type eventLog struct {
	mu     sync.Mutex
	events []domain.Event
}

func captureEvents(bus *eventbus.Bus, types ...string) *eventLog {
	log := &eventLog{}
	for _, t := range types {
		bus.Subscribe(t, func(ctx context.Context, e domain.Event) error {
			log.mu.Lock()
			defer log.mu.Unlock()
			log.events = append(log.events, e)
			return nil
		})
	}
	return log
}

func (l *eventLog) OfType(eventType string) []domain.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []domain.Event
	for _, e := range l.events {
		if e.Type() == eventType {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	store     *storage.MemoryStore
	bus       *eventbus.Bus
	inventory *InventoryService
	orders    *OrderService
	release   *StockReleaseHandler
	reconcile *ReconciliationHandler
	notifier  *recordingNotifier
	events    *eventLog
}

// newFixture wires the full choreography on an in-memory store.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zap.NewNop()
	store := storage.NewMemoryStore()
	bus := eventbus.New(logger)
	events := captureEvents(bus, domain.EventStockReleaseRequested, domain.EventStockReleaseProcessed, domain.EventOrderUpdated)

	inventory := NewInventoryService(store, store, logger)
	inventory.now = clock

	orders := NewOrderService(store, inventory, directory{store}, directory{store}, bus, logger)
	orders.now = clock

	release := NewStockReleaseHandler(store, bus, logger)
	release.now = clock

	reconcile := NewReconciliationHandler(store, bus, logger)
	reconcile.now = clock

	notifier := &recordingNotifier{}
	Subscribe(bus, release, reconcile, NewSideEffectHandler(notifier, logger))

	return &fixture{
		store:     store,
		bus:       bus,
		inventory: inventory,
		orders:    orders,
		release:   release,
		reconcile: reconcile,
		notifier:  notifier,
		events:    events,
	}
}

func (f *fixture) addProduct(id string, quantity, minStock int, price string) {
	f.store.RegisterProduct(
		domain.Product{ID: id, Name: "Product " + id, Status: domain.ProductStatusActive},
		domain.InventoryRecord{
			Quantity:  quantity,
			MinStock:  minStock,
			MaxStock:  1000,
			UnitPrice: decimal.RequireFromString(price),
			CreatedAt: fixedNow,
			UpdatedAt: fixedNow,
		},
	)
}

func (f *fixture) quantity(productID string) int {
	inv, _ := f.store.Inventory(productID)
	return inv.Quantity
}

func item(productID string, quantity int, price string) domain.OrderItem {
	return domain.OrderItem{ProductID: productID, Quantity: quantity, UnitPrice: decimal.RequireFromString(price)}
}

// seedOrder stores an order directly in the given status, bypassing the choreography.
func (f *fixture) seedOrder(t *testing.T, status domain.OrderStatus) domain.Order {
	t.Helper()
	order, err := domain.NewOrder(newID(), "user-1", []domain.OrderItem{item("p-1", 1, "5.00")}, nil, fixedNow)
	if err != nil {
		t.Fatalf("new order: %v", err)
	}
	order.Status = status
	if err := f.store.Execute(context.Background(), addOrder(order)); err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return order
}

func newID() uuid.UUID { return uuid.New() }

func addOrder(order domain.Order) func(ctx context.Context, repos port.Repositories) error {
	return func(ctx context.Context, repos port.Repositories) error {
		return repos.Orders().Add(ctx, order)
	}
}
