package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Listing is a peer-to-peer marketplace item offered by one seller.
type Listing struct {
	ID          int64           `json:"id"`
	SellerID    int64           `json:"seller_id"`
	CategoryID  *int64          `json:"category_id,omitempty"`
	Name        string          `json:"name"`
	Slug        string          `json:"slug"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Active      bool            `json:"active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
