package handlers

import (
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

// OrderListResponse wraps the user's order history.
type OrderListResponse struct {
	Status string          `json:"status"`
	Orders []*models.Order `json:"orders"`
}

// ListOrdersHandler handles GET /api/orders.
func ListOrdersHandler(log *slog.Logger, orders service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListOrdersHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			writeError(logger, w, http.StatusUnauthorized, "unauthorized")
			return
		}

		list, err := orders.List(r.Context(), userID)
		if err != nil {
			logger.Error("failed to list orders", slog.Any("error", err))
			writeError(logger, w, http.StatusInternalServerError, "internal server error")
			return
		}

		writeJSON(logger, w, http.StatusOK, OrderListResponse{
			Status: StatusSuccess,
			Orders: list,
		})
	}
}

// OrderDetailResponse wraps one order with its lines.
type OrderDetailResponse struct {
	Status string        `json:"status"`
	Order  *models.Order `json:"order"`
}

// GetOrderHandler handles GET /api/orders/{orderID}. Orders belong to
// their buyer; anyone else gets a not-found, never someone else's order.
func GetOrderHandler(log *slog.Logger, orders service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetOrderHandler"
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

		order, err := orders.Get(r.Context(), userID, orderID)
		if err != nil {
			if errors.Is(err, storage.ErrOrderNotFound) {
				writeError(logger, w, http.StatusNotFound, "order not found")
				return
			}
			logger.Error("failed to get order", slog.Any("error", err))
			writeError(logger, w, http.StatusInternalServerError, "internal server error")
			return
		}

		writeJSON(logger, w, http.StatusOK, OrderDetailResponse{
			Status: StatusSuccess,
			Order:  order,
		})
	}
}
