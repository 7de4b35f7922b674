package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment statuses. Completed, failed and cancelled are terminal; once a
// payment reaches one of them it never transitions again.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
	PaymentStatusCancelled = "cancelled"
)

// PaymentStatusTerminal reports whether a status admits no further
// transitions.
func PaymentStatusTerminal(status string) bool {
	switch status {
	case PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusCancelled:
		return true
	}
	return false
}

// Payment is the local ledger entry for one payment attempt against an
// order. An order may accumulate several attempts; rows are never deleted
// and only the reconciliation step mutates them.
type Payment struct {
	ID            int64           `json:"id"`
	OrderID       int64           `json:"order_id"`
	TransactionID string          `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	Provider      string          `json:"provider"` // telebirr or paypal
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
