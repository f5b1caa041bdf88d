package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	domainErrors "github.com/tvoloshin/orderdesk/internal/domain/errors"
	"github.com/tvoloshin/orderdesk/internal/domain/model"
)

// Pool is the subset of pgxpool.Pool the storage uses. Tests substitute a
// pgxmock pool.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// Storage is the durable order store backed by PostgreSQL. It exclusively
// owns persisted state; the in-memory index only mirrors what the storage
// has confirmed. Optimistic concurrency rides on the version column: every
// update is guarded by the version the caller read.
type Storage struct {
	pool   Pool
	logger *slog.Logger
}

// New creates storage with schema initialization.
func New(ctx context.Context, dsn string, logger *slog.Logger) (*Storage, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	storage := &Storage{pool: pool, logger: logger}
	if err := storage.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return storage, nil
}

// Close releases database resources.
func (s *Storage) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Storage) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS orders (
            id BIGSERIAL PRIMARY KEY,
            due_date DATE NOT NULL,
            state TEXT NOT NULL,
            customer_id BIGINT NOT NULL,
            customer_name TEXT NOT NULL DEFAULT '',
            items JSONB NOT NULL DEFAULT '[]',
            total_price NUMERIC(10,2) NOT NULL DEFAULT 0,
            discount NUMERIC(10,2) NOT NULL DEFAULT 0,
            paid BOOLEAN NOT NULL DEFAULT FALSE,
            pickup_location TEXT NOT NULL,
            notes TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            state_changed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            version BIGINT NOT NULL DEFAULT 0
        )`,
		`CREATE INDEX IF NOT EXISTS idx_orders_state ON orders(state)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_due_date ON orders(due_date)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_customer ON orders(customer_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}

	return nil
}

const orderColumns = `id, due_date, state, customer_id, customer_name, items,
        total_price::text, discount::text, paid, pickup_location, notes,
        created_at, state_changed_at, version`

// Save inserts a new order (assigning id and version 0) or updates an
// existing one guarded by its version. A stale version fails with
// ErrOptimisticConflict instead of silently overwriting.
func (s *Storage) Save(ctx context.Context, order *model.Order) (*model.Order, error) {
	if order.ID == 0 {
		return s.insert(ctx, order)
	}
	return s.update(ctx, order)
}

func (s *Storage) insert(ctx context.Context, order *model.Order) (*model.Order, error) {
	items, err := encodeItems(order.Items)
	if err != nil {
		return nil, err
	}

	const query = `INSERT INTO orders
            (due_date, state, customer_id, customer_name, items, total_price, discount, paid, pickup_location, notes)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING id, created_at, state_changed_at, version`

	saved := *order
	err = s.pool.QueryRow(ctx, query,
		order.DueDate, order.State, order.CustomerID, order.CustomerName, items,
		order.TotalPrice.StringFixed(2), order.Discount.StringFixed(2),
		order.Paid, order.PickupLocation, order.Notes,
	).Scan(&saved.ID, &saved.CreatedAt, &saved.StateChangedAt, &saved.Version)
	if err != nil {
		return nil, persistenceError("insert order", err)
	}
	return &saved, nil
}

func (s *Storage) update(ctx context.Context, order *model.Order) (*model.Order, error) {
	items, err := encodeItems(order.Items)
	if err != nil {
		return nil, err
	}

	const query = `UPDATE orders
        SET due_date=$1, state=$2, customer_id=$3, customer_name=$4, items=$5,
            total_price=$6, discount=$7, paid=$8, pickup_location=$9, notes=$10,
            state_changed_at=$11, version = version + 1
        WHERE id=$12 AND version=$13
        RETURNING version`

	saved := *order
	err = s.pool.QueryRow(ctx, query,
		order.DueDate, order.State, order.CustomerID, order.CustomerName, items,
		order.TotalPrice.StringFixed(2), order.Discount.StringFixed(2),
		order.Paid, order.PickupLocation, order.Notes,
		order.StateChangedAt, order.ID, order.Version,
	).Scan(&saved.Version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			exists, existsErr := s.ExistsByID(ctx, order.ID)
			if existsErr != nil {
				return nil, existsErr
			}
			if exists {
				return nil, fmt.Errorf("%w: order %d version %d is stale", domainErrors.ErrOptimisticConflict, order.ID, order.Version)
			}
			return nil, fmt.Errorf("%w: order %d", domainErrors.ErrNotFound, order.ID)
		}
		return nil, persistenceError("update order", err)
	}
	return &saved, nil
}

// FindByID loads a single order.
func (s *Storage) FindByID(ctx context.Context, id int64) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id=$1`
	order, err := scanOrder(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: order %d", domainErrors.ErrNotFound, id)
		}
		return nil, persistenceError("find order", err)
	}
	return order, nil
}

// ExistsByID reports whether an order with the given id is persisted.
func (s *Storage) ExistsByID(ctx context.Context, id int64) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM orders WHERE id=$1)`
	var exists bool
	if err := s.pool.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return false, persistenceError("check order exists", err)
	}
	return exists, nil
}

// DeleteByID removes an order.
func (s *Storage) DeleteByID(ctx context.Context, id int64) error {
	const query = `DELETE FROM orders WHERE id=$1`
	if _, err := s.pool.Exec(ctx, query, id); err != nil {
		return persistenceError("delete order", err)
	}
	return nil
}

// FindAll returns every persisted order, oldest first.
func (s *Storage) FindAll(ctx context.Context) ([]model.Order, error) {
	return s.findMany(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY id`)
}

// FindByState returns orders in the given lifecycle state.
func (s *Storage) FindByState(ctx context.Context, state model.OrderState) ([]model.Order, error) {
	return s.findMany(ctx, `SELECT `+orderColumns+` FROM orders WHERE state=$1 ORDER BY id`, state)
}

// FindByDueDate returns orders due on the given calendar date.
func (s *Storage) FindByDueDate(ctx context.Context, date time.Time) ([]model.Order, error) {
	return s.findMany(ctx, `SELECT `+orderColumns+` FROM orders WHERE due_date=$1 ORDER BY created_at DESC`, date)
}

// FindByDueDateBetween returns orders due within [from, to].
func (s *Storage) FindByDueDateBetween(ctx context.Context, from, to time.Time) ([]model.Order, error) {
	return s.findMany(ctx, `SELECT `+orderColumns+` FROM orders WHERE due_date BETWEEN $1 AND $2 ORDER BY due_date, id`, from, to)
}

// FindByCustomerID returns orders placed for the given customer.
func (s *Storage) FindByCustomerID(ctx context.Context, customerID int64) ([]model.Order, error) {
	return s.findMany(ctx, `SELECT `+orderColumns+` FROM orders WHERE customer_id=$1 ORDER BY id`, customerID)
}

// FindByCustomerName returns orders whose customer name contains the fragment.
func (s *Storage) FindByCustomerName(ctx context.Context, name string) ([]model.Order, error) {
	return s.findMany(ctx, `SELECT `+orderColumns+` FROM orders WHERE customer_name ILIKE '%' || $1 || '%' ORDER BY id`, name)
}

// Count returns the total number of persisted orders.
func (s *Storage) Count(ctx context.Context) (int64, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM orders`)
}

// CountByState returns the number of orders in the given state.
func (s *Storage) CountByState(ctx context.Context, state model.OrderState) (int64, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM orders WHERE state=$1`, state)
}

// CountByDueDate returns the number of orders due on the given date.
func (s *Storage) CountByDueDate(ctx context.Context, date time.Time) (int64, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM orders WHERE due_date=$1`, date)
}

func (s *Storage) findMany(ctx context.Context, query string, args ...any) ([]model.Order, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, persistenceError("query orders", err)
	}
	defer rows.Close()

	var result []model.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, persistenceError("scan order", err)
		}
		result = append(result, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceError("iterate orders", err)
	}
	return result, nil
}

func (s *Storage) count(ctx context.Context, query string, args ...any) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, persistenceError("count orders", err)
	}
	return n, nil
}

// HealthCheck verifies database connectivity.
func (s *Storage) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(row scanner) (*model.Order, error) {
	var (
		o        model.Order
		items    []byte
		total    string
		discount string
	)
	err := row.Scan(
		&o.ID, &o.DueDate, &o.State, &o.CustomerID, &o.CustomerName, &items,
		&total, &discount, &o.Paid, &o.PickupLocation, &o.Notes,
		&o.CreatedAt, &o.StateChangedAt, &o.Version,
	)
	if err != nil {
		return nil, err
	}

	if o.TotalPrice, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("parse total price: %w", err)
	}
	if o.Discount, err = decimal.NewFromString(discount); err != nil {
		return nil, fmt.Errorf("parse discount: %w", err)
	}
	if o.Items, err = decodeItems(items); err != nil {
		return nil, err
	}
	return &o, nil
}

// itemRecord is the JSONB shape of a line item. Prices travel as strings to
// keep decimal precision exact.
type itemRecord struct {
	ProductID     int64  `json:"product_id"`
	ProductName   string `json:"product_name"`
	Quantity      int    `json:"quantity"`
	PricePerUnit  string `json:"price_per_unit"`
	Customization string `json:"customization,omitempty"`
}

func encodeItems(items []model.OrderItem) ([]byte, error) {
	records := make([]itemRecord, 0, len(items))
	for _, item := range items {
		records = append(records, itemRecord{
			ProductID:     item.ProductID,
			ProductName:   item.ProductName,
			Quantity:      item.Quantity,
			PricePerUnit:  item.PricePerUnit.String(),
			Customization: item.Customization,
		})
	}
	data, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("encode items: %w", err)
	}
	return data, nil
}

func decodeItems(data []byte) ([]model.OrderItem, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var records []itemRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}
	items := make([]model.OrderItem, 0, len(records))
	for _, r := range records {
		price, err := decimal.NewFromString(r.PricePerUnit)
		if err != nil {
			return nil, fmt.Errorf("parse item price: %w", err)
		}
		items = append(items, model.OrderItem{
			ProductID:     r.ProductID,
			ProductName:   r.ProductName,
			Quantity:      r.Quantity,
			PricePerUnit:  price,
			Customization: r.Customization,
		})
	}
	return items, nil
}

func persistenceError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", domainErrors.ErrPersistence, op, err)
}
