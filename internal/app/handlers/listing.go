package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/curecom/curecom/internal/auth/jwtmiddleware"
	"github.com/curecom/curecom/internal/domain/models"
	"github.com/curecom/curecom/internal/service"
	"github.com/curecom/curecom/internal/storage"
)

// ListingRequest carries the seller-editable listing fields.
type ListingRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	Price       string `json:"price" validate:"required"`
	CategoryID  *int64 `json:"category_id"`
	Active      *bool  `json:"active"`
}

func (req *ListingRequest) toInput() (service.ListingInput, error) {
	price, err := decimal.NewFromString(req.Price)
	if err != nil || price.IsNegative() {
		return service.ListingInput{}, errors.New("invalid price")
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	return service.ListingInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       price,
		CategoryID:  req.CategoryID,
		Active:      active,
	}, nil
}

// ListingResponse wraps one listing.
type ListingResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message,omitempty"`
	Listing *models.Listing `json:"listing"`
}

// ListingListResponse wraps the seller's own listings.
type ListingListResponse struct {
	Status   string            `json:"status"`
	Listings []*models.Listing `json:"listings"`
}

// CreateListingHandler handles POST /api/listings.
func CreateListingHandler(log *slog.Logger, listings service.ListingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CreateListingHandler"
		logger := log.With(slog.String("op", op))

		sellerID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			writeError(logger, w, http.StatusUnauthorized, "unauthorized")
			return
		}

		req, ok := decodeListingRequest(logger, w, r)
		if !ok {
			return
		}
		in, err := req.toInput()
		if err != nil {
			writeError(logger, w, http.StatusBadRequest, err.Error())
			return
		}

		listing, err := listings.Create(r.Context(), sellerID, in)
		if err != nil {
			logger.Error("failed to create listing", slog.Any("error", err))
			writeError(logger, w, http.StatusInternalServerError, "internal server error")
			return
		}

		writeJSON(logger, w, http.StatusCreated, ListingResponse{
			Status:  StatusSuccess,
			Message: "listing created",
			Listing: listing,
		})
	}
}

// ListMyListingsHandler handles GET /api/listings.
func ListMyListingsHandler(log *slog.Logger, listings service.ListingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListMyListingsHandler"
		logger := log.With(slog.String("op", op))

		sellerID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			writeError(logger, w, http.StatusUnauthorized, "unauthorized")
			return
		}

		list, err := listings.ListMine(r.Context(), sellerID)
		if err != nil {
			logger.Error("failed to list listings", slog.Any("error", err))
			writeError(logger, w, http.StatusInternalServerError, "internal server error")
			return
		}

		writeJSON(logger, w, http.StatusOK, ListingListResponse{
			Status:   StatusSuccess,
			Listings: list,
		})
	}
}

// UpdateListingHandler handles PUT /api/listings/{listingID}.
func UpdateListingHandler(log *slog.Logger, listings service.ListingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.UpdateListingHandler"
		logger := log.With(slog.String("op", op))

		sellerID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			writeError(logger, w, http.StatusUnauthorized, "unauthorized")
			return
		}
		listingID, err := strconv.ParseInt(chi.URLParam(r, "listingID"), 10, 64)
		if err != nil {
			writeError(logger, w, http.StatusBadRequest, "invalid listing id")
			return
		}

		req, ok := decodeListingRequest(logger, w, r)
		if !ok {
			return
		}
		in, err := req.toInput()
		if err != nil {
			writeError(logger, w, http.StatusBadRequest, err.Error())
			return
		}

		listing, err := listings.Update(r.Context(), sellerID, listingID, in)
		if err != nil {
			if errors.Is(err, storage.ErrListingNotFound) {
				writeError(logger, w, http.StatusNotFound, "listing not found")
				return
			}
			logger.Error("failed to update listing", slog.Any("error", err))
			writeError(logger, w, http.StatusInternalServerError, "internal server error")
			return
		}

		writeJSON(logger, w, http.StatusOK, ListingResponse{
			Status:  StatusSuccess,
			Message: "listing updated",
			Listing: listing,
		})
	}
}

// DeleteListingHandler handles DELETE /api/listings/{listingID}.
func DeleteListingHandler(log *slog.Logger, listings service.ListingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.DeleteListingHandler"
		logger := log.With(slog.String("op", op))

		sellerID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			writeError(logger, w, http.StatusUnauthorized, "unauthorized")
			return
		}
		listingID, err := strconv.ParseInt(chi.URLParam(r, "listingID"), 10, 64)
		if err != nil {
			writeError(logger, w, http.StatusBadRequest, "invalid listing id")
			return
		}

		if err := listings.Delete(r.Context(), sellerID, listingID); err != nil {
			if errors.Is(err, storage.ErrListingNotFound) {
				writeError(logger, w, http.StatusNotFound, "listing not found")
				return
			}
			logger.Error("failed to delete listing", slog.Any("error", err))
			writeError(logger, w, http.StatusInternalServerError, "internal server error")
			return
		}

		writeStatus(logger, w, http.StatusOK, StatusSuccess, "listing deleted")
	}
}

func decodeListingRequest(logger *slog.Logger, w http.ResponseWriter, r *http.Request) (*ListingRequest, bool) {
	var req ListingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Error("invalid request: decoding error", slog.Any("error", err))
		writeError(logger, w, http.StatusBadRequest, "invalid request")
		return nil, false
	}
	if err := validate.Struct(&req); err != nil {
		logger.Error("invalid request: validation error", slog.Any("error", err))
		writeError(logger, w, http.StatusBadRequest, "validation error")
		return nil, false
	}
	return &req, true
}
