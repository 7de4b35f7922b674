package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/curecom/curecom/internal/domain/models"
	"github.com/curecom/curecom/internal/storage"
)

// ErrEmptyCart refuses checkout of a cart with no items. A double-submitted
// checkout hits this after the first one cleared the cart, so no second
// order is ever created.
var ErrEmptyCart = errors.New("cart is empty")

var ErrInvalidPaymentMethod = errors.New("unknown payment method")

// CheckoutInput carries the shipping/contact form. Fields are opaque
// strings here; the transport layer validates them.
type CheckoutInput struct {
	FirstName     string
	LastName      string
	Email         string
	Phone         string
	Address       string
	PostalCode    string
	City          string
	Country       string
	PaymentMethod string
}

// CheckoutService turns a cart into an immutable order snapshot.
type CheckoutService interface {
	Checkout(ctx context.Context, userID int64, in CheckoutInput) (*models.Order, error)
}

type checkoutService struct {
	log          *slog.Logger
	db           *sql.DB
	cartRepo     storage.CartStorage
	orderRepo    storage.OrderStorage
	shippingCost decimal.Decimal
	now          func() time.Time
}

func NewCheckoutService(log *slog.Logger, db *sql.DB, cartRepo storage.CartStorage, orderRepo storage.OrderStorage, shippingCost decimal.Decimal) CheckoutService {
	return &checkoutService{
		log:          log,
		db:           db,
		cartRepo:     cartRepo,
		orderRepo:    orderRepo,
		shippingCost: shippingCost,
		now:          time.Now,
	}
}

// Checkout runs the whole pipeline in one transaction: lock the cart,
// freeze the money fields, snapshot every line with its price-at-purchase,
// clear the cart. Any failure rolls everything back and the cart is left
// untouched for retry. Cash orders are marked paid inside the same
// transaction; provider orders stay pending until reconciliation.
func (s *checkoutService) Checkout(ctx context.Context, userID int64, in CheckoutInput) (*models.Order, error) {
	const op = "service.CheckoutService.Checkout"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID))
	logger.Info("starting checkout transaction")

	switch in.PaymentMethod {
	case models.PaymentMethodCash, models.PaymentMethodTelebirr, models.PaymentMethodPayPal:
	default:
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidPaymentMethod)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	cart, err := s.cartRepo.LockCartByUserIDTx(ctx, tx, userID)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		if errors.Is(err, storage.ErrCartNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrEmptyCart)
		}
		logger.Error("failed to lock cart", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to lock cart: %w", op, err)
	}

	if cart.Count() == 0 {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		logger.Info("refusing checkout of empty cart")
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyCart)
	}

	subtotal := cart.Subtotal()
	discount := cart.DiscountAt(s.now())
	total := subtotal.Sub(discount).Add(s.shippingCost)

	order := &models.Order{
		UserID:        userID,
		FirstName:     in.FirstName,
		LastName:      in.LastName,
		Email:         in.Email,
		Phone:         in.Phone,
		Address:       in.Address,
		PostalCode:    in.PostalCode,
		City:          in.City,
		Country:       in.Country,
		PaymentMethod: in.PaymentMethod,
		Subtotal:      subtotal,
		Discount:      discount,
		ShippingCost:  s.shippingCost,
		Total:         total,
		Status:        models.OrderStatusPending,
		Paid:          false,
	}

	orderID, err := s.orderRepo.CreateOrderTx(ctx, tx, order)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		logger.Error("failed to create order", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to create order: %w", op, err)
	}
	order.ID = orderID

	for _, item := range cart.Items {
		orderItem := &models.OrderItem{
			OrderID:   orderID,
			ProductID: item.ProductID,
			Name:      item.Name,
			Price:     item.Price, // frozen price-at-purchase
			Quantity:  item.Quantity,
		}
		if err := s.orderRepo.CreateOrderItemTx(ctx, tx, orderItem); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Error("transaction rollback failed", slog.Any("error", rbErr))
			}
			logger.Error("failed to create order item", slog.Any("error", err))
			return nil, fmt.Errorf("%s: failed to create order item: %w", op, err)
		}
		order.Items = append(order.Items, orderItem)
	}

	if err := s.cartRepo.ClearTx(ctx, tx, cart.ID); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		logger.Error("failed to clear cart", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to clear cart: %w", op, err)
	}

	if in.PaymentMethod == models.PaymentMethodCash {
		if err := s.orderRepo.MarkOrderPaidTx(ctx, tx, orderID, models.OrderStatusProcessing); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Error("transaction rollback failed", slog.Any("error", rbErr))
			}
			logger.Error("failed to mark cash order paid", slog.Any("error", err))
			return nil, fmt.Errorf("%s: failed to mark cash order paid: %w", op, err)
		}
		order.Paid = true
		order.Status = models.OrderStatusProcessing
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	logger.Info("checkout completed",
		slog.Int64("orderID", orderID),
		slog.String("total", total.StringFixed(2)),
		slog.String("paymentMethod", in.PaymentMethod),
	)
	return order, nil
}
