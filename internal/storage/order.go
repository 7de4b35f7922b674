package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/curecom/curecom/internal/domain/models"
)

var ErrOrderNotFound = errors.New("order not found")

// OrderStorage describes order snapshots and their items. Creation happens
// only inside a checkout transaction; the monetary columns are written once
// and never updated.
type OrderStorage interface {
	// CreateOrderTx inserts the order row and returns its id.
	CreateOrderTx(ctx context.Context, tx *sql.Tx, order *models.Order) (int64, error)
	// CreateOrderItemTx inserts one snapshot line with price-at-purchase.
	CreateOrderItemTx(ctx context.Context, tx *sql.Tx, item *models.OrderItem) error
	GetOrdersByUserID(ctx context.Context, userID int64) ([]*models.Order, error)
	// GetOrderByID loads the order with its items; the userID guards
	// ownership.
	GetOrderByID(ctx context.Context, orderID, userID int64) (*models.Order, error)
	// MarkOrderPaidTx flips paid and advances the status, used by payment
	// reconciliation and by cash checkout.
	MarkOrderPaidTx(ctx context.Context, tx *sql.Tx, orderID int64, status string) error
}

type orderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) OrderStorage {
	return &orderRepository{db: db}
}

const orderColumns = `id, user_id, first_name, last_name, email, phone, address, postal_code,
		city, country, payment_method, subtotal, discount, shipping_cost, total, status, paid,
		created_at, updated_at`

func (r *orderRepository) CreateOrderTx(ctx context.Context, tx *sql.Tx, order *models.Order) (int64, error) {
	query := `INSERT INTO orders
		(user_id, first_name, last_name, email, phone, address, postal_code, city, country,
		 payment_method, subtotal, discount, shipping_cost, total, status, paid, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, NOW(), NOW())
		RETURNING id`
	var id int64
	err := tx.QueryRowContext(ctx, query,
		order.UserID, order.FirstName, order.LastName, order.Email, order.Phone,
		order.Address, order.PostalCode, order.City, order.Country, order.PaymentMethod,
		order.Subtotal, order.Discount, order.ShippingCost, order.Total,
		order.Status, order.Paid,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create order: %w", err)
	}
	return id, nil
}

func (r *orderRepository) CreateOrderItemTx(ctx context.Context, tx *sql.Tx, item *models.OrderItem) error {
	query := `INSERT INTO order_items (order_id, product_id, price, quantity)
	          VALUES ($1, $2, $3, $4)`
	_, err := tx.ExecContext(ctx, query, item.OrderID, item.ProductID, item.Price, item.Quantity)
	if err != nil {
		return fmt.Errorf("failed to create order item: %w", err)
	}
	return nil
}

func (r *orderRepository) GetOrdersByUserID(ctx context.Context, userID int64) ([]*models.Order, error) {
	query := "SELECT " + orderColumns + " FROM orders WHERE user_id = $1 ORDER BY created_at DESC"
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		order := &models.Order{}
		if err := scanOrder(rows, order); err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner, order *models.Order) error {
	return row.Scan(&order.ID, &order.UserID, &order.FirstName, &order.LastName,
		&order.Email, &order.Phone, &order.Address, &order.PostalCode,
		&order.City, &order.Country, &order.PaymentMethod,
		&order.Subtotal, &order.Discount, &order.ShippingCost, &order.Total,
		&order.Status, &order.Paid, &order.CreatedAt, &order.UpdatedAt)
}

func (r *orderRepository) GetOrderByID(ctx context.Context, orderID, userID int64) (*models.Order, error) {
	order := &models.Order{}
	query := "SELECT " + orderColumns + " FROM orders WHERE id = $1 AND user_id = $2"
	if err := scanOrder(r.db.QueryRowContext(ctx, query, orderID, userID), order); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	itemRows, err := r.db.QueryContext(ctx, `
		SELECT oi.id, oi.order_id, oi.product_id, p.name, oi.price, oi.quantity
		FROM order_items oi
		JOIN products p ON oi.product_id = p.id
		WHERE oi.order_id = $1
		ORDER BY oi.id ASC`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		item := &models.OrderItem{}
		if err := itemRows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Name, &item.Price, &item.Quantity); err != nil {
			return nil, err
		}
		order.Items = append(order.Items, item)
	}
	if err := itemRows.Err(); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) MarkOrderPaidTx(ctx context.Context, tx *sql.Tx, orderID int64, status string) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE orders SET paid = TRUE, status = $1, updated_at = NOW() WHERE id = $2",
		status, orderID)
	if err != nil {
		return fmt.Errorf("failed to mark order paid: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrOrderNotFound
	}
	return nil
}
