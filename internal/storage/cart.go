package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/curecom/curecom/internal/domain/models"
)

var ErrCartNotFound = errors.New("cart not found")
var ErrCartItemNotFound = errors.New("cart item not found")

// CartStorage describes the persisted-cart rows and their items.
type CartStorage interface {
	// GetOrCreateCartByUserID returns the user's cart, creating the row on
	// first use. Items and coupon are loaded.
	GetOrCreateCartByUserID(ctx context.Context, userID int64) (*models.Cart, error)
	// LockCartByUserIDTx locks the user's cart row for the duration of the
	// transaction and loads its items through it.
	LockCartByUserIDTx(ctx context.Context, tx *sql.Tx, userID int64) (*models.Cart, error)
	// GetItemByProductID finds the cart line for a product, if any.
	GetItemByProductID(ctx context.Context, cartID, productID int64) (*models.CartItem, error)
	CreateItem(ctx context.Context, cartID, productID int64, quantity int) error
	// UpdateItemQuantity changes a line's quantity; the cartID guards cart
	// ownership.
	UpdateItemQuantity(ctx context.Context, cartID, itemID int64, quantity int) error
	DeleteItem(ctx context.Context, cartID, itemID int64) error
	DeleteAllItems(ctx context.Context, cartID int64) error
	// ClearTx deletes all items and detaches the coupon inside a checkout
	// transaction.
	ClearTx(ctx context.Context, tx *sql.Tx, cartID int64) error
	// SetCoupon attaches (or, with nil, detaches) a coupon.
	SetCoupon(ctx context.Context, cartID int64, couponID *int64) error
}

type cartRepository struct {
	db *sql.DB
}

func NewCartRepository(db *sql.DB) CartStorage {
	return &cartRepository{db: db}
}

func (r *cartRepository) GetOrCreateCartByUserID(ctx context.Context, userID int64) (*models.Cart, error) {
	cart := &models.Cart{}
	var couponID sql.NullInt64
	row := r.db.QueryRowContext(ctx,
		"SELECT id, user_id, coupon_id, created_at, updated_at FROM carts WHERE user_id = $1", userID)
	err := row.Scan(&cart.ID, &cart.UserID, &couponID, &cart.CreatedAt, &cart.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		// DO NOTHING loses the ON CONFLICT race silently; the re-select
		// below then finds the row the concurrent request created.
		row = r.db.QueryRowContext(ctx,
			`INSERT INTO carts (user_id, created_at, updated_at) VALUES ($1, NOW(), NOW())
			 ON CONFLICT (user_id) DO NOTHING
			 RETURNING id, user_id, coupon_id, created_at, updated_at`, userID)
		err = row.Scan(&cart.ID, &cart.UserID, &couponID, &cart.CreatedAt, &cart.UpdatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			row = r.db.QueryRowContext(ctx,
				"SELECT id, user_id, coupon_id, created_at, updated_at FROM carts WHERE user_id = $1", userID)
			err = row.Scan(&cart.ID, &cart.UserID, &couponID, &cart.CreatedAt, &cart.UpdatedAt)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get or create cart: %w", err)
	}

	if couponID.Valid {
		coupon, err := r.getCouponByID(ctx, couponID.Int64)
		if err != nil {
			return nil, err
		}
		cart.Coupon = coupon
	}

	items, err := r.loadItems(ctx, r.db.QueryContext, cart.ID)
	if err != nil {
		return nil, err
	}
	cart.Items = items
	return cart, nil
}

// LockCartByUserIDTx takes the cart row lock that serializes concurrent
// checkouts of the same cart. NOWAIT surfaces the conflict instead of
// queueing behind it.
func (r *cartRepository) LockCartByUserIDTx(ctx context.Context, tx *sql.Tx, userID int64) (*models.Cart, error) {
	cart := &models.Cart{}
	var couponID sql.NullInt64
	row := tx.QueryRowContext(ctx,
		"SELECT id, user_id, coupon_id, created_at, updated_at FROM carts WHERE user_id = $1 FOR UPDATE NOWAIT", userID)
	if err := row.Scan(&cart.ID, &cart.UserID, &couponID, &cart.CreatedAt, &cart.UpdatedAt); err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "55P03" { // lock
				return nil, fmt.Errorf("cart is locked, please try again: %w", err)
			}
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCartNotFound
		}
		return nil, err
	}

	if couponID.Valid {
		coupon := &models.Coupon{}
		row := tx.QueryRowContext(ctx,
			"SELECT id, code, discount, valid_from, valid_to, active FROM coupons WHERE id = $1", couponID.Int64)
		if err := row.Scan(&coupon.ID, &coupon.Code, &coupon.Discount,
			&coupon.ValidFrom, &coupon.ValidTo, &coupon.Active); err != nil {
			return nil, err
		}
		cart.Coupon = coupon
	}

	items, err := r.loadItems(ctx, tx.QueryContext, cart.ID)
	if err != nil {
		return nil, err
	}
	cart.Items = items
	return cart, nil
}

type queryFunc func(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)

func (r *cartRepository) loadItems(ctx context.Context, query queryFunc, cartID int64) ([]*models.CartItem, error) {
	rows, err := query(ctx, `
		SELECT ci.id, ci.cart_id, ci.product_id, p.name, p.price, ci.quantity
		FROM cart_items ci
		JOIN products p ON ci.product_id = p.id
		WHERE ci.cart_id = $1
		ORDER BY ci.id ASC`, cartID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cart items: %w", err)
	}
	defer rows.Close()

	var items []*models.CartItem
	for rows.Next() {
		item := &models.CartItem{}
		if err := rows.Scan(&item.ID, &item.CartID, &item.ProductID, &item.Name, &item.Price, &item.Quantity); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *cartRepository) getCouponByID(ctx context.Context, id int64) (*models.Coupon, error) {
	coupon := &models.Coupon{}
	row := r.db.QueryRowContext(ctx,
		"SELECT id, code, discount, valid_from, valid_to, active FROM coupons WHERE id = $1", id)
	if err := row.Scan(&coupon.ID, &coupon.Code, &coupon.Discount,
		&coupon.ValidFrom, &coupon.ValidTo, &coupon.Active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCouponNotFound
		}
		return nil, err
	}
	return coupon, nil
}

func (r *cartRepository) GetItemByProductID(ctx context.Context, cartID, productID int64) (*models.CartItem, error) {
	item := &models.CartItem{}
	row := r.db.QueryRowContext(ctx, `
		SELECT ci.id, ci.cart_id, ci.product_id, p.name, p.price, ci.quantity
		FROM cart_items ci
		JOIN products p ON ci.product_id = p.id
		WHERE ci.cart_id = $1 AND ci.product_id = $2`, cartID, productID)
	if err := row.Scan(&item.ID, &item.CartID, &item.ProductID, &item.Name, &item.Price, &item.Quantity); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCartItemNotFound
		}
		return nil, err
	}
	return item, nil
}

func (r *cartRepository) CreateItem(ctx context.Context, cartID, productID int64, quantity int) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO cart_items (cart_id, product_id, quantity) VALUES ($1, $2, $3)",
		cartID, productID, quantity)
	if err != nil {
		return fmt.Errorf("failed to create cart item: %w", err)
	}
	return nil
}

func (r *cartRepository) UpdateItemQuantity(ctx context.Context, cartID, itemID int64, quantity int) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE cart_items SET quantity = $1 WHERE id = $2 AND cart_id = $3",
		quantity, itemID, cartID)
	if err != nil {
		return fmt.Errorf("failed to update cart item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

func (r *cartRepository) DeleteItem(ctx context.Context, cartID, itemID int64) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM cart_items WHERE id = $1 AND cart_id = $2", itemID, cartID)
	if err != nil {
		return fmt.Errorf("failed to delete cart item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

func (r *cartRepository) DeleteAllItems(ctx context.Context, cartID int64) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM cart_items WHERE cart_id = $1", cartID)
	if err != nil {
		return fmt.Errorf("failed to clear cart items: %w", err)
	}
	return nil
}

func (r *cartRepository) ClearTx(ctx context.Context, tx *sql.Tx, cartID int64) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM cart_items WHERE cart_id = $1", cartID); err != nil {
		return fmt.Errorf("failed to clear cart items: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE carts SET coupon_id = NULL, updated_at = NOW() WHERE id = $1", cartID); err != nil {
		return fmt.Errorf("failed to detach coupon: %w", err)
	}
	return nil
}

func (r *cartRepository) SetCoupon(ctx context.Context, cartID int64, couponID *int64) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE carts SET coupon_id = $1, updated_at = NOW() WHERE id = $2", couponID, cartID)
	if err != nil {
		return fmt.Errorf("failed to set coupon: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrCartNotFound
	}
	return nil
}
