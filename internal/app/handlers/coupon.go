package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/curecom/curecom/internal/auth/jwtmiddleware"
	"github.com/curecom/curecom/internal/service"
	"github.com/curecom/curecom/internal/storage"
)

// CouponRequest carries the coupon code being applied.
type CouponRequest struct {
	Code string `json:"code" validate:"required"`
}

// ApplyCouponHandler handles POST /api/coupon/apply. Coupons attach to the
// persisted cart only, so the route sits behind the JWT middleware.
func ApplyCouponHandler(log *slog.Logger, coupons service.CouponService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ApplyCouponHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			writeError(logger, w, http.StatusUnauthorized, "unauthorized")
			return
		}

		var req CouponRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("invalid request: decoding error", slog.Any("error", err))
			writeError(logger, w, http.StatusBadRequest, "invalid request")
			return
		}
		if err := validate.Struct(req); err != nil {
			logger.Error("invalid request: validation error", slog.Any("error", err))
			writeError(logger, w, http.StatusBadRequest, "coupon code is required")
			return
		}

		cart, err := coupons.Apply(r.Context(), userID, req.Code)
		if err != nil {
			switch {
			case errors.Is(err, storage.ErrCouponNotFound):
				writeError(logger, w, http.StatusNotFound, "coupon not found")
			case errors.Is(err, service.ErrCouponInactive):
				writeError(logger, w, http.StatusBadRequest, "coupon is no longer active")
			case errors.Is(err, service.ErrCouponNotYetValid):
				writeError(logger, w, http.StatusBadRequest, "coupon is not valid yet")
			case errors.Is(err, service.ErrCouponExpired):
				writeError(logger, w, http.StatusBadRequest, "coupon has expired")
			case errors.Is(err, service.ErrCouponInvalidDiscount):
				writeError(logger, w, http.StatusBadRequest, "coupon cannot be applied")
			default:
				logger.Error("failed to apply coupon", slog.Any("error", err))
				writeError(logger, w, http.StatusInternalServerError, "internal server error")
			}
			return
		}

		writeJSON(logger, w, http.StatusOK, cartResponse(StatusSuccess, "coupon applied", cart))
	}
}
