package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/curecom/curecom/internal/auth/jwtmiddleware"
	"github.com/curecom/curecom/internal/domain/models"
	"github.com/curecom/curecom/internal/service"
)

// CheckoutRequest is the shipping/contact form posted at checkout.
type CheckoutRequest struct {
	FirstName     string `json:"first_name" validate:"required"`
	LastName      string `json:"last_name" validate:"required"`
	Email         string `json:"email" validate:"required,email"`
	Phone         string `json:"phone" validate:"required"`
	Address       string `json:"address" validate:"required"`
	PostalCode    string `json:"postal_code" validate:"required"`
	City          string `json:"city" validate:"required"`
	Country       string `json:"country" validate:"required"`
	PaymentMethod string `json:"payment_method" validate:"required,oneof=cash telebirr paypal"`
}

// CheckoutResponse reports the created order. RedirectURL is set only for
// gateway payment methods; the caller sends the buyer there to pay.
type CheckoutResponse struct {
	Status      string          `json:"status"`
	Message     string          `json:"message"`
	OrderID     int64           `json:"order_id"`
	Total       string          `json:"total"`
	RedirectURL string          `json:"redirect_url,omitempty"`
	Order       *models.Order   `json:"order,omitempty"`
}

// CheckoutHandler handles POST /api/checkout. The order is created first;
// if the gateway then refuses to start the payment, the order survives
// with a pending payment and can be retried via the pay endpoint.
func CheckoutHandler(log *slog.Logger, checkout service.CheckoutService, payments service.PaymentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CheckoutHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			writeError(logger, w, http.StatusUnauthorized, "unauthorized")
			return
		}

		var req CheckoutRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("invalid request: decoding error", slog.Any("error", err))
			writeError(logger, w, http.StatusBadRequest, "invalid request")
			return
		}
		if err := validate.Struct(req); err != nil {
			logger.Error("invalid request: validation error", slog.Any("error", err))
			writeError(logger, w, http.StatusBadRequest, "validation error")
			return
		}

		order, err := checkout.Checkout(r.Context(), userID, service.CheckoutInput{
			FirstName:     req.FirstName,
			LastName:      req.LastName,
			Email:         req.Email,
			Phone:         req.Phone,
			Address:       req.Address,
			PostalCode:    req.PostalCode,
			City:          req.City,
			Country:       req.Country,
			PaymentMethod: req.PaymentMethod,
		})
		if err != nil {
			switch {
			case errors.Is(err, service.ErrEmptyCart):
				writeError(logger, w, http.StatusBadRequest, "cart is empty")
			case errors.Is(err, service.ErrInvalidPaymentMethod):
				writeError(logger, w, http.StatusBadRequest, "unknown payment method")
			default:
				logger.Error("checkout failed", slog.Any("error", err))
				writeError(logger, w, http.StatusInternalServerError, "internal server error")
			}
			return
		}

		resp := CheckoutResponse{
			Status:  StatusSuccess,
			Message: "order placed",
			OrderID: order.ID,
			Total:   order.Total.StringFixed(2),
			Order:   order,
		}

		if order.PaymentMethod != models.PaymentMethodCash {
			redirectURL, err := payments.Initiate(r.Context(), userID, order.ID)
			if err != nil {
				// the order is placed; the payment just has not started
				logger.Error("failed to initiate payment", slog.Any("error", err))
				resp.Status = StatusInfo
				resp.Message = "order placed, payment could not be started"
				writeJSON(logger, w, http.StatusOK, resp)
				return
			}
			resp.RedirectURL = redirectURL
		}

		writeJSON(logger, w, http.StatusOK, resp)
	}
}
