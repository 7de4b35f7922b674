package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/curecom/curecom/internal/service"
)

// SubscribeRequest carries the email being subscribed.
type SubscribeRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// SubscribeHandler handles POST /api/newsletter/subscribe. Subscribing an
// address twice reports "info" instead of an error.
func SubscribeHandler(log *slog.Logger, newsletter service.NewsletterService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.SubscribeHandler"
		logger := log.With(slog.String("op", op))

		var req SubscribeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("invalid request: decoding error", slog.Any("error", err))
			writeError(logger, w, http.StatusBadRequest, "invalid request")
			return
		}
		if err := validate.Struct(req); err != nil {
			logger.Error("invalid request: validation error", slog.Any("error", err))
			writeError(logger, w, http.StatusBadRequest, "a valid email is required")
			return
		}

		if _, err := newsletter.Subscribe(r.Context(), req.Email); err != nil {
			if errors.Is(err, service.ErrAlreadySubscribed) {
				writeStatus(logger, w, http.StatusOK, StatusInfo, "already subscribed to the newsletter")
				return
			}
			logger.Error("failed to subscribe", slog.Any("error", err))
			writeError(logger, w, http.StatusInternalServerError, "internal server error")
			return
		}

		writeStatus(logger, w, http.StatusOK, StatusSuccess, "subscribed to the newsletter")
	}
}
