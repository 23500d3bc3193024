package storage

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/google/uuid"

	"github.com/rl1809/fulfillment/internal/core/domain"
	"github.com/rl1809/fulfillment/internal/port"
)

// MemoryStore keeps orders and inventory in process. Units of work are
// serialized by a single mutex and applied atomically on commit.
type MemoryStore struct {
	mu        sync.Mutex
	orders    map[uuid.UUID]domain.Order
	inventory map[string]domain.InventoryRecord
	movements []domain.StockMovement

	catalogMu sync.RWMutex
	products  map[string]domain.Product
	users     map[string]domain.User
	centers   map[string]domain.HealthCareCenter
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders:    make(map[uuid.UUID]domain.Order),
		inventory: make(map[string]domain.InventoryRecord),
		products:  make(map[string]domain.Product),
		users:     make(map[string]domain.User),
		centers:   make(map[string]domain.HealthCareCenter),
	}
}

func (s *MemoryStore) Execute(ctx context.Context, fn func(ctx context.Context, repos port.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memoryTx{
		orders:    maps.Clone(s.orders),
		inventory: maps.Clone(s.inventory),
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	s.orders = tx.orders
	s.inventory = tx.inventory
	s.movements = append(s.movements, tx.movements...)
	return nil
}

func (s *MemoryStore) GetProduct(ctx context.Context, productID string) (domain.Product, error) {
	s.catalogMu.RLock()
	defer s.catalogMu.RUnlock()

	p, ok := s.products[productID]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return p, nil
}

func (s *MemoryStore) GetUser(ctx context.Context, userID string) (domain.User, error) {
	s.catalogMu.RLock()
	defer s.catalogMu.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return u, nil
}

func (s *MemoryStore) GetHealthCareCenter(ctx context.Context, centerID string) (domain.HealthCareCenter, error) {
	s.catalogMu.RLock()
	defer s.catalogMu.RUnlock()

	c, ok := s.centers[centerID]
	if !ok {
		return domain.HealthCareCenter{}, domain.ErrFacilityNotFound
	}
	return c, nil
}

// RegisterProduct creates the product and its inventory record.
func (s *MemoryStore) RegisterProduct(p domain.Product, inv domain.InventoryRecord) {
	s.catalogMu.Lock()
	s.products[p.ID] = p
	s.catalogMu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	inv.ProductID = p.ID
	if inv.Version == 0 {
		inv.Version = 1
	}
	s.inventory[p.ID] = inv
}

func (s *MemoryStore) SetProductStatus(productID string, status domain.ProductStatus) {
	s.catalogMu.Lock()
	defer s.catalogMu.Unlock()
	if p, ok := s.products[productID]; ok {
		p.Status = status
		s.products[productID] = p
	}
}

func (s *MemoryStore) AddUser(u domain.User) {
	s.catalogMu.Lock()
	defer s.catalogMu.Unlock()
	s.users[u.ID] = u
}

func (s *MemoryStore) AddHealthCareCenter(c domain.HealthCareCenter) {
	s.catalogMu.Lock()
	defer s.catalogMu.Unlock()
	s.centers[c.ID] = c
}

// Order returns the committed order and whether it exists.
func (s *MemoryStore) Order(id uuid.UUID) (domain.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	return cloneOrder(o), ok
}

func (s *MemoryStore) OrderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

func (s *MemoryStore) Inventory(productID string) (domain.InventoryRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.inventory[productID]
	return inv, ok
}

func (s *MemoryStore) Movements() []domain.StockMovement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.StockMovement(nil), s.movements...)
}

type memoryTx struct {
	orders    map[uuid.UUID]domain.Order
	inventory map[string]domain.InventoryRecord
	movements []domain.StockMovement
}

func (tx *memoryTx) Orders() port.OrderRepository            { return memoryOrders{tx} }
func (tx *memoryTx) Inventory() port.InventoryRepository     { return memoryInventory{tx} }
func (tx *memoryTx) Movements() port.StockMovementRepository { return memoryMovements{tx} }

type memoryOrders struct{ tx *memoryTx }

func (r memoryOrders) Add(ctx context.Context, order domain.Order) error {
	if _, exists := r.tx.orders[order.ID]; exists {
		return fmt.Errorf("order %s already exists", order.ID)
	}
	if order.Version == 0 {
		order.Version = 1
	}
	r.tx.orders[order.ID] = cloneOrder(order)
	return nil
}

func (r memoryOrders) Get(ctx context.Context, id uuid.UUID) (domain.Order, error) {
	o, ok := r.tx.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (r memoryOrders) Update(ctx context.Context, order domain.Order) error {
	existing, ok := r.tx.orders[order.ID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if existing.Version != order.Version {
		return ErrOptimisticLock
	}
	order.Version++
	r.tx.orders[order.ID] = cloneOrder(order)
	return nil
}

type memoryInventory struct{ tx *memoryTx }

func (r memoryInventory) GetByProductID(ctx context.Context, productID string) (domain.InventoryRecord, error) {
	inv, ok := r.tx.inventory[productID]
	if !ok {
		return domain.InventoryRecord{}, domain.ErrInventoryNotFound
	}
	return inv, nil
}

func (r memoryInventory) Update(ctx context.Context, record domain.InventoryRecord) error {
	existing, ok := r.tx.inventory[record.ProductID]
	if !ok {
		return domain.ErrInventoryNotFound
	}
	if existing.Version != record.Version {
		return ErrOptimisticLock
	}
	record.Version++
	r.tx.inventory[record.ProductID] = record
	return nil
}

type memoryMovements struct{ tx *memoryTx }

func (r memoryMovements) Add(ctx context.Context, movement domain.StockMovement) error {
	r.tx.movements = append(r.tx.movements, movement)
	return nil
}

func cloneOrder(o domain.Order) domain.Order {
	c := o
	c.Items = append([]domain.OrderItem(nil), o.Items...)
	if o.Notes != nil {
		n := *o.Notes
		c.Notes = &n
	}
	if o.FailureReason != nil {
		f := *o.FailureReason
		c.FailureReason = &f
	}
	if o.CompletedAt != nil {
		t := *o.CompletedAt
		c.CompletedAt = &t
	}
	return c
}
