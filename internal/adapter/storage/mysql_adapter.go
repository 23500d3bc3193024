package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/rl1809/fulfillment/internal/core/domain"
	"github.com/rl1809/fulfillment/internal/port"
)

var ErrOptimisticLock = errors.New("optimistic lock conflict")

// MySQLAdapter implements the unit of work and the read-only catalog on MySQL.
type MySQLAdapter struct {
	db *sqlx.DB
}

func NewMySQLAdapter(db *sqlx.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

func (m *MySQLAdapter) Execute(ctx context.Context, fn func(ctx context.Context, repos port.Repositories) error) error {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(ctx, &mysqlTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) GetProduct(ctx context.Context, productID string) (domain.Product, error) {
	var row struct {
		ID     string `db:"id"`
		Name   string `db:"name"`
		Status string `db:"status"`
	}
	err := m.db.GetContext(ctx, &row, `SELECT id, name, status FROM products WHERE id = ?`, productID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, domain.ErrProductNotFound
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("query product: %w", err)
	}
	return domain.Product{ID: row.ID, Name: row.Name, Status: domain.ProductStatus(row.Status)}, nil
}

func (m *MySQLAdapter) GetUser(ctx context.Context, userID string) (domain.User, error) {
	var row struct {
		ID                 string         `db:"id"`
		DisplayName        string         `db:"display_name"`
		HealthCareCenterID sql.NullString `db:"health_care_center_id"`
	}
	err := m.db.GetContext(ctx, &row, `SELECT id, display_name, health_care_center_id FROM users WHERE id = ?`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("query user: %w", err)
	}
	return domain.User{ID: row.ID, DisplayName: row.DisplayName, HealthCareCenterID: nullStringPtr(row.HealthCareCenterID)}, nil
}

func (m *MySQLAdapter) GetHealthCareCenter(ctx context.Context, centerID string) (domain.HealthCareCenter, error) {
	var c domain.HealthCareCenter
	err := m.db.QueryRowContext(ctx, `SELECT id, name FROM health_care_centers WHERE id = ?`, centerID).Scan(&c.ID, &c.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.HealthCareCenter{}, domain.ErrFacilityNotFound
	}
	if err != nil {
		return domain.HealthCareCenter{}, fmt.Errorf("query health care center: %w", err)
	}
	return c, nil
}

type mysqlTx struct {
	tx *sqlx.Tx
}

func (t *mysqlTx) Orders() port.OrderRepository            { return &mysqlOrderRepository{tx: t.tx} }
func (t *mysqlTx) Inventory() port.InventoryRepository     { return &mysqlInventoryRepository{tx: t.tx} }
func (t *mysqlTx) Movements() port.StockMovementRepository { return &mysqlMovementRepository{tx: t.tx} }

type orderRow struct {
	ID            string          `db:"id"`
	UserID        string          `db:"user_id"`
	Status        string          `db:"status"`
	TotalAmount   decimal.Decimal `db:"total_amount"`
	Notes         sql.NullString  `db:"notes"`
	FailureReason sql.NullString  `db:"failure_reason"`
	Version       int             `db:"version"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
	CompletedAt   sql.NullTime    `db:"completed_at"`
}

type orderItemRow struct {
	OrderID   string          `db:"order_id"`
	LineNo    int             `db:"line_no"`
	ProductID string          `db:"product_id"`
	Quantity  int             `db:"quantity"`
	UnitPrice decimal.Decimal `db:"unit_price"`
}

type mysqlOrderRepository struct {
	tx *sqlx.Tx
}

func (r *mysqlOrderRepository) Add(ctx context.Context, order domain.Order) error {
	row := toOrderRow(order)
	_, err := r.tx.NamedExecContext(ctx, `
		INSERT INTO orders (id, user_id, status, total_amount, notes, failure_reason, version, created_at, updated_at, completed_at)
		VALUES (:id, :user_id, :status, :total_amount, :notes, :failure_reason, :version, :created_at, :updated_at, :completed_at)`,
		row,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for i, item := range order.Items {
		_, err := r.tx.NamedExecContext(ctx, `
			INSERT INTO order_items (order_id, line_no, product_id, quantity, unit_price)
			VALUES (:order_id, :line_no, :product_id, :quantity, :unit_price)`,
			orderItemRow{OrderID: row.ID, LineNo: i, ProductID: item.ProductID, Quantity: item.Quantity, UnitPrice: item.UnitPrice},
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	return nil
}

func (r *mysqlOrderRepository) Get(ctx context.Context, id uuid.UUID) (domain.Order, error) {
	var row orderRow
	err := r.tx.GetContext(ctx, &row, `
		SELECT id, user_id, status, total_amount, notes, failure_reason, version, created_at, updated_at, completed_at
		FROM orders WHERE id = ? FOR UPDATE`, id.String(),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("query order: %w", err)
	}

	var items []orderItemRow
	err = r.tx.SelectContext(ctx, &items, `
		SELECT order_id, line_no, product_id, quantity, unit_price
		FROM order_items WHERE order_id = ? ORDER BY line_no`, row.ID,
	)
	if err != nil {
		return domain.Order{}, fmt.Errorf("query order items: %w", err)
	}

	return fromOrderRow(row, items)
}

func (r *mysqlOrderRepository) Update(ctx context.Context, order domain.Order) error {
	row := toOrderRow(order)
	result, err := r.tx.ExecContext(ctx, `
		UPDATE orders
		SET status = ?, notes = ?, failure_reason = ?, updated_at = ?, completed_at = ?, version = version + 1
		WHERE id = ? AND version = ?`,
		row.Status, row.Notes, row.FailureReason, row.UpdatedAt, row.CompletedAt, row.ID, row.Version,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrOptimisticLock
	}
	return nil
}

type inventoryRow struct {
	ProductID  string          `db:"product_id"`
	Quantity   int             `db:"quantity"`
	MinStock   int             `db:"min_stock"`
	MaxStock   int             `db:"max_stock"`
	UnitPrice  decimal.Decimal `db:"unit_price"`
	ExpiryDate sql.NullTime    `db:"expiry_date"`
	Version    int             `db:"version"`
	CreatedAt  time.Time       `db:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at"`
}

type mysqlInventoryRepository struct {
	tx *sqlx.Tx
}

// GetByProductID locks the row until the enclosing transaction ends.
func (r *mysqlInventoryRepository) GetByProductID(ctx context.Context, productID string) (domain.InventoryRecord, error) {
	var row inventoryRow
	err := r.tx.GetContext(ctx, &row, `
		SELECT product_id, quantity, min_stock, max_stock, unit_price, expiry_date, version, created_at, updated_at
		FROM inventory WHERE product_id = ? FOR UPDATE`, productID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.InventoryRecord{}, domain.ErrInventoryNotFound
	}
	if err != nil {
		return domain.InventoryRecord{}, fmt.Errorf("query inventory: %w", err)
	}

	inv := domain.InventoryRecord{
		ProductID: row.ProductID,
		Quantity:  row.Quantity,
		MinStock:  row.MinStock,
		MaxStock:  row.MaxStock,
		UnitPrice: row.UnitPrice,
		Version:   row.Version,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
	if row.ExpiryDate.Valid {
		t := row.ExpiryDate.Time
		inv.ExpiryDate = &t
	}
	return inv, nil
}

func (r *mysqlInventoryRepository) Update(ctx context.Context, record domain.InventoryRecord) error {
	result, err := r.tx.ExecContext(ctx, `
		UPDATE inventory
		SET quantity = ?, updated_at = ?, version = version + 1
		WHERE product_id = ? AND version = ? AND ? BETWEEN 0 AND max_stock`,
		record.Quantity, record.UpdatedAt, record.ProductID, record.Version, record.Quantity,
	)
	if err != nil {
		return fmt.Errorf("update inventory: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrOptimisticLock
	}
	return nil
}

type mysqlMovementRepository struct {
	tx *sqlx.Tx
}

func (r *mysqlMovementRepository) Add(ctx context.Context, m domain.StockMovement) error {
	_, err := r.tx.ExecContext(ctx, `
		INSERT INTO stock_movements (id, product_id, kind, delta, quantity_after, reason, reference, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID.String(), m.ProductID, string(m.Kind), m.Delta, m.QuantityAfter, m.Reason, m.Reference, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert stock movement: %w", err)
	}
	return nil
}

func toOrderRow(o domain.Order) orderRow {
	row := orderRow{
		ID:          o.ID.String(),
		UserID:      o.UserID,
		Status:      string(o.Status),
		TotalAmount: o.TotalAmount,
		Version:     o.Version,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
	if o.Notes != nil {
		row.Notes = sql.NullString{String: *o.Notes, Valid: true}
	}
	if o.FailureReason != nil {
		row.FailureReason = sql.NullString{String: *o.FailureReason, Valid: true}
	}
	if o.CompletedAt != nil {
		row.CompletedAt = sql.NullTime{Time: *o.CompletedAt, Valid: true}
	}
	return row
}

func fromOrderRow(row orderRow, items []orderItemRow) (domain.Order, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("parse order id: %w", err)
	}

	o := domain.Order{
		ID:            id,
		UserID:        row.UserID,
		Status:        domain.OrderStatus(row.Status),
		TotalAmount:   row.TotalAmount,
		Notes:         nullStringPtr(row.Notes),
		FailureReason: nullStringPtr(row.FailureReason),
		Version:       row.Version,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
	if row.CompletedAt.Valid {
		t := row.CompletedAt.Time
		o.CompletedAt = &t
	}
	for _, it := range items {
		o.Items = append(o.Items, domain.OrderItem{ProductID: it.ProductID, Quantity: it.Quantity, UnitPrice: it.UnitPrice})
	}
	return o, nil
}

func nullStringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
