package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order statuses. Cancelled is terminal; the rest advance in sequence.
const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

// Payment methods accepted at checkout.
const (
	PaymentMethodCash     = "cash"
	PaymentMethodTelebirr = "telebirr"
	PaymentMethodPayPal   = "paypal"
)

// Order is an immutable snapshot of a cart taken at checkout. The monetary
// fields are frozen at creation and never recomputed from live state.
type Order struct {
	ID            int64           `json:"id"`
	UserID        int64           `json:"user_id"`
	FirstName     string          `json:"first_name"`
	LastName      string          `json:"last_name"`
	Email         string          `json:"email"`
	Phone         string          `json:"phone"`
	Address       string          `json:"address"`
	PostalCode    string          `json:"postal_code"`
	City          string          `json:"city"`
	Country       string          `json:"country"`
	PaymentMethod string          `json:"payment_method"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Discount      decimal.Decimal `json:"discount"`
	ShippingCost  decimal.Decimal `json:"shipping_cost"`
	Total         decimal.Decimal `json:"total"`
	Status        string          `json:"status"`
	Paid          bool            `json:"paid"`
	Items         []*OrderItem    `json:"items,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// OrderItem captures product, price-at-purchase and quantity. Price is
// decoupled from the product's live price from the moment of creation.
type OrderItem struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"order_id"`
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"` // joined from products
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

// Cost returns price-at-purchase × quantity for the line.
func (i *OrderItem) Cost() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
