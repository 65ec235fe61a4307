package storage

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/linemk/orders-admin/internal/domain/models"
	"github.com/pkg/errors"
)

var ErrOrderNotFound = errors.New("order not found")

// OrderStorage описывает методы для работы с таблицей orders.
type OrderStorage interface {
	// ListOrders возвращает все заказы, новые первыми.
	ListOrders(ctx context.Context) ([]*models.Order, error)
	// CreateOrder вставляет заказ и возвращает сохранённую строку.
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	// UpdateOrderStatus меняет статус и обновляет updated_at.
	UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error)
}

const orderColumns = `id, items, total_amount, status, created_at, updated_at, customer_id, profiles`

// orderRepository - реализация OrderStorage поверх database/sql.
type orderRepository struct {
	db    *sql.DB
	newID func() string
}

// NewOrderRepository создаёт новый репозиторий заказов.
func NewOrderRepository(db *sql.DB) OrderStorage {
	return &orderRepository{db: db, newID: uuid.NewString}
}

func (r *orderRepository) ListOrders(ctx context.Context) ([]*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query orders")
	}
	defer rows.Close()

	orders := make([]*models.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan order")
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read orders")
	}
	return orders, nil
}

func (r *orderRepository) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	items, err := json.Marshal(order.Items)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode items")
	}

	var customerID sql.NullString
	if order.CustomerID != nil {
		customerID = sql.NullString{String: *order.CustomerID, Valid: true}
	}

	query := `INSERT INTO orders (id, items, total_amount, status, customer_id)
	          VALUES ($1, $2, $3, $4, $5)
	          RETURNING ` + orderColumns
	// lib/pq отправляет []byte как bytea, поэтому jsonb передаём строкой
	row := r.db.QueryRowContext(ctx, query, r.newID(), string(items), order.TotalAmount, string(order.Status), customerID)
	created, err := scanOrder(row)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create order")
	}
	return created, nil
}

// UpdateOrderStatus гарантирует, что новый updated_at строго больше прежнего,
// даже если часы БД совпали с предыдущей записью.
func (r *orderRepository) UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error) {
	query := `UPDATE orders
	          SET status = $1, updated_at = GREATEST(NOW(), updated_at + INTERVAL '1 microsecond')
	          WHERE id = $2
	          RETURNING ` + orderColumns
	row := r.db.QueryRowContext(ctx, query, string(status), id)
	updated, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, errors.Wrap(err, "failed to update order status")
	}
	return updated, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*models.Order, error) {
	var (
		order      models.Order
		items      []byte
		status     string
		customerID sql.NullString
		profile    []byte
	)
	if err := row.Scan(&order.ID, &items, &order.TotalAmount, &status, &order.CreatedAt, &order.UpdatedAt, &customerID, &profile); err != nil {
		return nil, err
	}
	order.Status = models.OrderStatus(status)

	if len(items) > 0 {
		if err := json.Unmarshal(items, &order.Items); err != nil {
			return nil, errors.Wrapf(err, "failed to decode items of order %s", order.ID)
		}
	}
	if customerID.Valid {
		order.CustomerID = &customerID.String
	}
	if len(profile) > 0 && string(profile) != "null" {
		order.Profile = &models.Profile{}
		if err := json.Unmarshal(profile, order.Profile); err != nil {
			return nil, errors.Wrapf(err, "failed to decode profile of order %s", order.ID)
		}
	}
	return &order, nil
}
