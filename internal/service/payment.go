package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/curecom/curecom/internal/domain/models"
	"github.com/curecom/curecom/internal/storage"
)

var (
	ErrOrderAlreadyPaid = errors.New("order has already been paid")
	// ErrProviderFailure marks any failure of the external gateway:
	// unreachable, rejected, or a malformed response. The local payment
	// record stays pending so the user can retry.
	ErrProviderFailure = errors.New("payment provider failure")
)

// PaymentRequest is the provider-neutral initiation payload.
type PaymentRequest struct {
	TransactionID string
	Amount        decimal.Decimal
	Subject       string
	Description   string
}

// PaymentProvider abstracts one external gateway behind a request/response
// contract. Implementations must convert every transport failure into an
// error value, never a panic.
type PaymentProvider interface {
	Name() string
	// CreatePayment registers the charge with the provider and returns the
	// URL the buyer should be redirected to.
	CreatePayment(ctx context.Context, req PaymentRequest) (string, error)
	// VerifyPayment resolves the provider-side final status for a
	// transaction: one of the payment status constants.
	VerifyPayment(ctx context.Context, transactionID string) (string, error)
}

// PaymentService initiates payments and reconciles provider callbacks onto
// the local ledger and the owning order.
type PaymentService interface {
	// Initiate builds the provider request for an order and returns the
	// redirect URL. transaction id = order id, so re-initiation reuses the
	// ledger row, reopening it when a previous attempt failed or was
	// cancelled.
	Initiate(ctx context.Context, userID, orderID int64) (string, error)
	// Verify resolves a transaction's status with the provider and mirrors
	// completion onto the order. Idempotent: a payment already in a
	// terminal state is returned as-is with no side effects.
	Verify(ctx context.Context, transactionID string) (*models.Payment, error)
}

type paymentService struct {
	log         *slog.Logger
	db          *sql.DB
	orderRepo   storage.OrderStorage
	paymentRepo storage.PaymentStorage
	providers   map[string]PaymentProvider
}

func NewPaymentService(log *slog.Logger, db *sql.DB, orderRepo storage.OrderStorage, paymentRepo storage.PaymentStorage, providers ...PaymentProvider) PaymentService {
	byName := make(map[string]PaymentProvider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}
	return &paymentService{
		log:         log,
		db:          db,
		orderRepo:   orderRepo,
		paymentRepo: paymentRepo,
		providers:   byName,
	}
}

func (s *paymentService) Initiate(ctx context.Context, userID, orderID int64) (string, error) {
	const op = "service.PaymentService.Initiate"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.Int64("orderID", orderID))

	order, err := s.orderRepo.GetOrderByID(ctx, orderID, userID)
	if err != nil {
		logger.Error("failed to get order", slog.Any("error", err))
		return "", fmt.Errorf("%s: failed to get order: %w", op, err)
	}
	if order.Paid {
		return "", fmt.Errorf("%s: %w", op, ErrOrderAlreadyPaid)
	}

	provider, ok := s.providers[order.PaymentMethod]
	if !ok {
		return "", fmt.Errorf("%s: %w: %s", op, ErrInvalidPaymentMethod, order.PaymentMethod)
	}

	transactionID := strconv.FormatInt(order.ID, 10)
	payment, err := s.paymentRepo.UpsertPending(ctx, order.ID, transactionID, provider.Name(), order.Total)
	if err != nil {
		logger.Error("failed to record payment", slog.Any("error", err))
		return "", fmt.Errorf("%s: failed to record payment: %w", op, err)
	}
	// Re-initiation reopens a failed or cancelled attempt; a completed
	// payment stays untouched, so the buyer is never sent to pay into a
	// row reconciliation will not update.
	if models.PaymentStatusTerminal(payment.Status) {
		return "", fmt.Errorf("%s: %w", op, ErrOrderAlreadyPaid)
	}

	req := PaymentRequest{
		TransactionID: transactionID,
		Amount:        order.Total,
		Subject:       fmt.Sprintf("Order #%d", order.ID),
		Description:   fmt.Sprintf("Payment for order #%d", order.ID),
	}
	redirectURL, err := provider.CreatePayment(ctx, req)
	if err != nil {
		logger.Error("provider rejected payment", slog.Any("error", err))
		return "", fmt.Errorf("%s: %w: %v", op, ErrProviderFailure, err)
	}

	logger.Info("payment initiated", slog.String("provider", provider.Name()))
	return redirectURL, nil
}

func (s *paymentService) Verify(ctx context.Context, transactionID string) (*models.Payment, error) {
	const op = "service.PaymentService.Verify"
	logger := s.log.With(slog.String("op", op), slog.String("transactionID", transactionID))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	payment, err := s.paymentRepo.LockByTransactionIDTx(ctx, tx, transactionID)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		if errors.Is(err, storage.ErrPaymentNotFound) {
			logger.Info("unknown transaction")
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		logger.Error("failed to lock payment", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to lock payment: %w", op, err)
	}

	// Terminal states never transition: the first terminal outcome wins and
	// any later verification just re-confirms it.
	if models.PaymentStatusTerminal(payment.Status) {
		if err := tx.Commit(); err != nil {
			logger.Error("failed to commit transaction", slog.Any("error", err))
			return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
		}
		logger.Info("payment already terminal", slog.String("status", payment.Status))
		return payment, nil
	}

	provider, ok := s.providers[payment.Provider]
	if !ok {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		return nil, fmt.Errorf("%s: %w: %s", op, ErrInvalidPaymentMethod, payment.Provider)
	}

	status, err := provider.VerifyPayment(ctx, transactionID)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		logger.Error("provider verification failed", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w: %v", op, ErrProviderFailure, err)
	}

	if status == models.PaymentStatusPending {
		// nothing to reconcile yet
		if err := tx.Commit(); err != nil {
			logger.Error("failed to commit transaction", slog.Any("error", err))
			return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
		}
		return payment, nil
	}

	if err := s.paymentRepo.UpdateStatusTx(ctx, tx, payment.ID, status); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		logger.Error("failed to update payment status", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to update payment status: %w", op, err)
	}

	if status == models.PaymentStatusCompleted {
		if err := s.orderRepo.MarkOrderPaidTx(ctx, tx, payment.OrderID, models.OrderStatusProcessing); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Error("transaction rollback failed", slog.Any("error", rbErr))
			}
			logger.Error("failed to mark order paid", slog.Any("error", err))
			return nil, fmt.Errorf("%s: failed to mark order paid: %w", op, err)
		}
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	payment.Status = status
	logger.Info("payment reconciled", slog.String("status", status))
	return payment, nil
}
