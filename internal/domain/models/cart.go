package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart is the persisted cart of one user. At most one cart row exists per
// user; it survives checkout (only its items are deleted).
type Cart struct {
	ID        int64       `json:"id"`
	UserID    int64       `json:"user_id"`
	Coupon    *Coupon     `json:"coupon,omitempty"`
	Items     []*CartItem `json:"items"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// CartItem is one (product, quantity) line. No two items in the same cart
// reference the same product.
type CartItem struct {
	ID        int64           `json:"id"`
	CartID    int64           `json:"cart_id"`
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`  // joined from products
	Price     decimal.Decimal `json:"price"` // live product price
	Quantity  int             `json:"quantity"`
}

// Cost returns price × quantity for the line.
func (i *CartItem) Cost() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Subtotal is the sum of line costs.
func (c *Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Cost())
	}
	return total
}

// Discount is subtotal × coupon.discount / 100, rounded to 2 decimal places
// half away from zero. Zero when no coupon is attached or the attached
// coupon is not currently valid.
func (c *Cart) Discount() decimal.Decimal {
	return c.DiscountAt(time.Now())
}

// DiscountAt is Discount evaluated against an explicit clock.
func (c *Cart) DiscountAt(now time.Time) decimal.Decimal {
	if c.Coupon == nil || !c.Coupon.ValidAt(now) {
		return decimal.Zero
	}
	return ApplyPercentage(c.Subtotal(), c.Coupon.Discount)
}

// Total is subtotal − discount.
func (c *Cart) Total() decimal.Decimal {
	return c.Subtotal().Sub(c.Discount())
}

// Count returns the number of lines in the cart.
func (c *Cart) Count() int {
	return len(c.Items)
}

// ApplyPercentage computes pct% of amount with the cart rounding rule:
// 2 decimal places, half away from zero (99.98 at 10% → 10.00).
func ApplyPercentage(amount decimal.Decimal, pct int) decimal.Decimal {
	return amount.Mul(decimal.NewFromInt(int64(pct))).
		Div(decimal.NewFromInt(100)).
		Round(2)
}
