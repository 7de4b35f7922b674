package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/curecom/curecom/internal/service"
)

var validate = validator.New()

// Response statuses understood by the storefront frontend.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusExists  = "exists"
	StatusInfo    = "info"
)

// CartState is the money summary attached to every cart response. Amounts
// are fixed-point strings, never floats.
type CartState struct {
	CartCount int    `json:"cart_count"`
	Subtotal  string `json:"subtotal"`
	Discount  string `json:"discount"`
	Total     string `json:"total"`
}

func cartState(cart service.Cart) CartState {
	return CartState{
		CartCount: cart.Count(),
		Subtotal:  cart.Subtotal().StringFixed(2),
		Discount:  cart.Discount().StringFixed(2),
		Total:     cart.Total().StringFixed(2),
	}
}

func writeJSON(log *slog.Logger, w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("failed to encode response", slog.Any("error", err))
	}
}

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func writeStatus(log *slog.Logger, w http.ResponseWriter, httpStatus int, status, message string) {
	writeJSON(log, w, httpStatus, statusResponse{Status: status, Message: message})
}

func writeError(log *slog.Logger, w http.ResponseWriter, httpStatus int, message string) {
	writeStatus(log, w, httpStatus, StatusError, message)
}
