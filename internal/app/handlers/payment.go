package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/curecom/curecom/internal/auth/jwtmiddleware"
	"github.com/curecom/curecom/internal/domain/models"
	"github.com/curecom/curecom/internal/service"
	"github.com/curecom/curecom/internal/storage"
)

// PaymentStatusResponse reports the reconciled state of one payment.
type PaymentStatusResponse struct {
	Status        string `json:"status"`
	Message       string `json:"message"`
	TransactionID string `json:"transaction_id"`
	PaymentStatus string `json:"payment_status"`
	OrderID       int64  `json:"order_id"`
}

func paymentStatusResponse(payment *models.Payment) PaymentStatusResponse {
	resp := PaymentStatusResponse{
		TransactionID: payment.TransactionID,
		PaymentStatus: payment.Status,
		OrderID:       payment.OrderID,
	}
	switch payment.Status {
	case models.PaymentStatusCompleted:
		resp.Status = StatusSuccess
		resp.Message = "payment completed"
	case models.PaymentStatusPending:
		resp.Status = StatusInfo
		resp.Message = "payment is still pending"
	default:
		resp.Status = StatusError
		resp.Message = "payment " + payment.Status
	}
	return resp
}

// NotifyRequest is the gateway's server-to-server callback body.
type NotifyRequest struct {
	OutTradeNo string `json:"outTradeNo" validate:"required"`
}

// PaymentNotifyHandler handles POST /api/payment/notify, the asynchronous
// gateway callback. The reported status is never trusted; the transaction
// is re-verified against the provider before anything is recorded.
func PaymentNotifyHandler(log *slog.Logger, payments service.PaymentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.PaymentNotifyHandler"
		logger := log.With(slog.String("op", op))

		var req NotifyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("invalid request: decoding error", slog.Any("error", err))
			writeError(logger, w, http.StatusBadRequest, "invalid request")
			return
		}
		if err := validate.Struct(req); err != nil {
			logger.Error("invalid request: validation error", slog.Any("error", err))
			writeError(logger, w, http.StatusBadRequest, "outTradeNo is required")
			return
		}

		payment, err := payments.Verify(r.Context(), req.OutTradeNo)
		if err != nil {
			writeVerifyError(logger, w, err)
			return
		}

		writeJSON(logger, w, http.StatusOK, paymentStatusResponse(payment))
	}
}

// PaymentReturnHandler handles GET /api/payment/return, where the gateway
// redirects the buyer after paying. Same verification as the callback.
func PaymentReturnHandler(log *slog.Logger, payments service.PaymentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.PaymentReturnHandler"
		logger := log.With(slog.String("op", op))

		transactionID := r.URL.Query().Get("outTradeNo")
		if transactionID == "" {
			writeError(logger, w, http.StatusBadRequest, "outTradeNo is required")
			return
		}

		payment, err := payments.Verify(r.Context(), transactionID)
		if err != nil {
			writeVerifyError(logger, w, err)
			return
		}

		writeJSON(logger, w, http.StatusOK, paymentStatusResponse(payment))
	}
}

// PayOrderResponse carries the gateway redirect for a retried payment.
type PayOrderResponse struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	OrderID     int64  `json:"order_id"`
	RedirectURL string `json:"redirect_url"`
}

// PayOrderHandler handles POST /api/orders/{orderID}/pay: re-initiating
// payment for an unpaid order, reusing its pending payment record.
func PayOrderHandler(log *slog.Logger, payments service.PaymentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.PayOrderHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			writeError(logger, w, http.StatusUnauthorized, "unauthorized")
			return
		}

		orderID, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
		if err != nil {
			writeError(logger, w, http.StatusBadRequest, "invalid order id")
			return
		}

		redirectURL, err := payments.Initiate(r.Context(), userID, orderID)
		if err != nil {
			switch {
			case errors.Is(err, storage.ErrOrderNotFound):
				writeError(logger, w, http.StatusNotFound, "order not found")
			case errors.Is(err, service.ErrOrderAlreadyPaid):
				writeError(logger, w, http.StatusBadRequest, "order has already been paid")
			case errors.Is(err, service.ErrInvalidPaymentMethod):
				writeError(logger, w, http.StatusBadRequest, "order payment method is not payable online")
			case errors.Is(err, service.ErrProviderFailure):
				writeError(logger, w, http.StatusBadGateway, "payment provider is unavailable")
			default:
				logger.Error("failed to initiate payment", slog.Any("error", err))
				writeError(logger, w, http.StatusInternalServerError, "internal server error")
			}
			return
		}

		writeJSON(logger, w, http.StatusOK, PayOrderResponse{
			Status:      StatusSuccess,
			Message:     "payment initiated",
			OrderID:     orderID,
			RedirectURL: redirectURL,
		})
	}
}

func writeVerifyError(logger *slog.Logger, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrPaymentNotFound):
		writeError(logger, w, http.StatusNotFound, "unknown transaction")
	case errors.Is(err, service.ErrProviderFailure):
		writeError(logger, w, http.StatusBadGateway, "payment provider is unavailable")
	default:
		logger.Error("payment verification failed", slog.Any("error", err))
		writeError(logger, w, http.StatusInternalServerError, "internal server error")
	}
}
