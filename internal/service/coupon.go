package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/curecom/curecom/internal/domain/models"
	"github.com/curecom/curecom/internal/storage"
)

var (
	ErrCouponInactive    = errors.New("coupon is no longer active")
	ErrCouponNotYetValid = errors.New("coupon is not valid yet")
	ErrCouponExpired     = errors.New("coupon has expired")
	// ErrCouponInvalidDiscount rejects coupons whose stored percentage is
	// outside [0,100]; the issuing side does not enforce the upper bound.
	ErrCouponInvalidDiscount = errors.New("coupon discount is out of range")
)

// CouponService applies coupon codes to persisted carts.
type CouponService interface {
	// Apply validates the code and attaches the coupon to the user's cart,
	// replacing any previously attached one. Failures leave the cart
	// untouched.
	Apply(ctx context.Context, userID int64, code string) (*models.Cart, error)
}

type couponService struct {
	log        *slog.Logger
	couponRepo storage.CouponStorage
	cartRepo   storage.CartStorage
	now        func() time.Time
}

func NewCouponService(log *slog.Logger, couponRepo storage.CouponStorage, cartRepo storage.CartStorage) CouponService {
	return &couponService{
		log:        log,
		couponRepo: couponRepo,
		cartRepo:   cartRepo,
		now:        time.Now,
	}
}

func (s *couponService) Apply(ctx context.Context, userID int64, code string) (*models.Cart, error) {
	const op = "service.CouponService.Apply"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.String("code", code))

	coupon, err := s.couponRepo.GetCouponByCode(ctx, code)
	if err != nil {
		if errors.Is(err, storage.ErrCouponNotFound) {
			logger.Info("coupon not found")
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		logger.Error("failed to get coupon", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get coupon: %w", op, err)
	}

	if !coupon.Active {
		return nil, fmt.Errorf("%s: %w", op, ErrCouponInactive)
	}
	now := s.now()
	if now.Before(coupon.ValidFrom) {
		return nil, fmt.Errorf("%s: %w", op, ErrCouponNotYetValid)
	}
	if now.After(coupon.ValidTo) {
		return nil, fmt.Errorf("%s: %w", op, ErrCouponExpired)
	}
	if coupon.Discount < 0 || coupon.Discount > 100 {
		logger.Warn("coupon with out-of-range discount", slog.Int("discount", coupon.Discount))
		return nil, fmt.Errorf("%s: %w", op, ErrCouponInvalidDiscount)
	}

	cart, err := s.cartRepo.GetOrCreateCartByUserID(ctx, userID)
	if err != nil {
		logger.Error("failed to load cart", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to load cart: %w", op, err)
	}

	if err := s.cartRepo.SetCoupon(ctx, cart.ID, &coupon.ID); err != nil {
		logger.Error("failed to attach coupon", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to attach coupon: %w", op, err)
	}
	cart.Coupon = coupon

	logger.Info("coupon applied", slog.Int("discount", coupon.Discount))
	return cart, nil
}
