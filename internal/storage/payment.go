package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/curecom/curecom/internal/domain/models"
)

var ErrPaymentNotFound = errors.New("payment not found")

// PaymentStorage describes the payment ledger. Rows are created pending,
// mutated only by reconciliation, and never deleted.
type PaymentStorage interface {
	// UpsertPending creates the payment record for a transaction id, or
	// resets an existing one back to pending with the given amount.
	// Repeated initiation of the same order therefore reuses the row
	// instead of duplicating it, and reopens a failed or cancelled
	// attempt. A completed row is never touched; it is returned as-is so
	// the caller can refuse re-initiation.
	UpsertPending(ctx context.Context, orderID int64, transactionID, provider string, amount decimal.Decimal) (*models.Payment, error)
	GetByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error)
	// LockByTransactionIDTx locks the payment row; callback and return
	// verification paths serialize on this lock.
	LockByTransactionIDTx(ctx context.Context, tx *sql.Tx, transactionID string) (*models.Payment, error)
	UpdateStatusTx(ctx context.Context, tx *sql.Tx, paymentID int64, status string) error
}

type paymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(db *sql.DB) PaymentStorage {
	return &paymentRepository{db: db}
}

const paymentColumns = "id, order_id, transaction_id, amount, provider, status, created_at, updated_at"

func (r *paymentRepository) UpsertPending(ctx context.Context, orderID int64, transactionID, provider string, amount decimal.Decimal) (*models.Payment, error) {
	query := `INSERT INTO payments (order_id, transaction_id, amount, provider, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 'pending', NOW(), NOW())
		ON CONFLICT (transaction_id) DO UPDATE
			SET amount = EXCLUDED.amount, provider = EXCLUDED.provider, status = 'pending', updated_at = NOW()
			WHERE payments.status <> 'completed'
		RETURNING ` + paymentColumns
	payment := &models.Payment{}
	row := r.db.QueryRowContext(ctx, query, orderID, transactionID, amount, provider)
	if err := scanPayment(row, payment); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// the existing row is completed; hand it back untouched
			return r.GetByTransactionID(ctx, transactionID)
		}
		return nil, fmt.Errorf("failed to upsert payment: %w", err)
	}
	return payment, nil
}

func scanPayment(row rowScanner, p *models.Payment) error {
	return row.Scan(&p.ID, &p.OrderID, &p.TransactionID, &p.Amount, &p.Provider,
		&p.Status, &p.CreatedAt, &p.UpdatedAt)
}

func (r *paymentRepository) GetByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error) {
	payment := &models.Payment{}
	query := "SELECT " + paymentColumns + " FROM payments WHERE transaction_id = $1"
	if err := scanPayment(r.db.QueryRowContext(ctx, query, transactionID), payment); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return payment, nil
}

func (r *paymentRepository) LockByTransactionIDTx(ctx context.Context, tx *sql.Tx, transactionID string) (*models.Payment, error) {
	payment := &models.Payment{}
	query := "SELECT " + paymentColumns + " FROM payments WHERE transaction_id = $1 FOR UPDATE"
	if err := scanPayment(tx.QueryRowContext(ctx, query, transactionID), payment); err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "55P03" { // lock
				return nil, fmt.Errorf("payment is locked, please try again: %w", err)
			}
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return payment, nil
}

func (r *paymentRepository) UpdateStatusTx(ctx context.Context, tx *sql.Tx, paymentID int64, status string) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE payments SET status = $1, updated_at = NOW() WHERE id = $2",
		status, paymentID)
	if err != nil {
		return fmt.Errorf("failed to update payment status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrPaymentNotFound
	}
	return nil
}
