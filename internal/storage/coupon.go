package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/curecom/curecom/internal/domain/models"
)

var ErrCouponNotFound = errors.New("coupon not found")

// CouponStorage describes coupon lookups. Coupons are issued elsewhere;
// this side only reads them.
type CouponStorage interface {
	GetCouponByCode(ctx context.Context, code string) (*models.Coupon, error)
}

type couponRepository struct {
	db *sql.DB
}

func NewCouponRepository(db *sql.DB) CouponStorage {
	return &couponRepository{db: db}
}

// GetCouponByCode looks a coupon up by exact code match.
func (r *couponRepository) GetCouponByCode(ctx context.Context, code string) (*models.Coupon, error) {
	coupon := &models.Coupon{}
	row := r.db.QueryRowContext(ctx,
		"SELECT id, code, discount, valid_from, valid_to, active FROM coupons WHERE code = $1", code)
	if err := row.Scan(&coupon.ID, &coupon.Code, &coupon.Discount,
		&coupon.ValidFrom, &coupon.ValidTo, &coupon.Active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCouponNotFound
		}
		return nil, err
	}
	return coupon, nil
}
