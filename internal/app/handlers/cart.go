package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/curecom/curecom/internal/auth/jwtmiddleware"
	"github.com/curecom/curecom/internal/domain/models"
	"github.com/curecom/curecom/internal/service"
	"github.com/curecom/curecom/internal/session"
	"github.com/curecom/curecom/internal/storage"
)

// ProductGetter is the slice of the catalog the anonymous cart path needs:
// price snapshots for products being added.
type ProductGetter interface {
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
}

// CartHandlers serves both cart representations. A request with a valid
// JWT works against the user's persisted cart; without one it works
// against the session-cookie cart. The response shape is identical for
// both, so the frontend never knows which it is talking to.
type CartHandlers struct {
	log      *slog.Logger
	carts    service.CartService
	products ProductGetter
	sessions *session.Store
}

func NewCartHandlers(log *slog.Logger, carts service.CartService, products ProductGetter, sessions *session.Store) *CartHandlers {
	return &CartHandlers{
		log:      log,
		carts:    carts,
		products: products,
		sessions: sessions,
	}
}

// CartResponse is the full cart payload: status line plus money summary.
// Items are present only for the persisted cart; the anonymous cart keeps
// its lines inside the session cookie.
type CartResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	CartState
	Items []*models.CartItem `json:"items,omitempty"`
}

func cartResponse(status, message string, cart service.Cart) CartResponse {
	resp := CartResponse{
		Status:    status,
		Message:   message,
		CartState: cartState(cart),
	}
	if persisted, ok := cart.(*models.Cart); ok {
		resp.Items = persisted.Items
	}
	return resp
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

// decodeQuantity reads an optional {"quantity": n} body, defaulting to 1.
func decodeQuantity(r *http.Request) (int, error) {
	if r.Body == nil || r.ContentLength == 0 {
		return 1, nil
	}
	var req quantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return 0, err
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	return req.Quantity, nil
}

// Get handles GET /api/cart.
func (h *CartHandlers) Get(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.CartHandlers.Get"
	logger := h.log.With(slog.String("op", op))

	if userID, ok := jwtmiddleware.FromContext(r.Context()); ok {
		cart, err := h.carts.GetCart(r.Context(), userID)
		if err != nil {
			logger.Error("failed to load cart", slog.Any("error", err))
			writeError(logger, w, http.StatusInternalServerError, "internal server error")
			return
		}
		writeJSON(logger, w, http.StatusOK, cartResponse(StatusSuccess, "", cart))
		return
	}

	cart := h.sessions.GetCart(r)
	writeJSON(logger, w, http.StatusOK, cartResponse(StatusSuccess, "", cart))
}

// Add handles POST /api/cart/add/{productID}. Adding a product that is
// already in the cart reports "exists" and changes nothing.
func (h *CartHandlers) Add(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.CartHandlers.Add"
	logger := h.log.With(slog.String("op", op))

	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil {
		writeError(logger, w, http.StatusBadRequest, "invalid product id")
		return
	}
	quantity, err := decodeQuantity(r)
	if err != nil {
		writeError(logger, w, http.StatusBadRequest, "invalid request")
		return
	}

	if userID, ok := jwtmiddleware.FromContext(r.Context()); ok {
		cart, err := h.carts.AddItem(r.Context(), userID, productID, quantity)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrAlreadyInCart):
				existing, getErr := h.carts.GetCart(r.Context(), userID)
				if getErr != nil {
					logger.Error("failed to load cart", slog.Any("error", getErr))
					writeError(logger, w, http.StatusInternalServerError, "internal server error")
					return
				}
				writeJSON(logger, w, http.StatusOK, cartResponse(StatusExists, "product is already in the cart", existing))
			case errors.Is(err, service.ErrInvalidQuantity):
				writeError(logger, w, http.StatusBadRequest, "quantity must be at least 1")
			case errors.Is(err, storage.ErrProductNotFound):
				writeError(logger, w, http.StatusNotFound, "product not found")
			default:
				logger.Error("failed to add item", slog.Any("error", err))
				writeError(logger, w, http.StatusInternalServerError, "internal server error")
			}
			return
		}
		writeJSON(logger, w, http.StatusOK, cartResponse(StatusSuccess, "product added to cart", cart))
		return
	}

	if quantity < 1 {
		writeError(logger, w, http.StatusBadRequest, "quantity must be at least 1")
		return
	}
	product, err := h.products.GetProductByID(r.Context(), productID)
	if err != nil {
		if errors.Is(err, storage.ErrProductNotFound) {
			writeError(logger, w, http.StatusNotFound, "product not found")
			return
		}
		logger.Error("failed to get product", slog.Any("error", err))
		writeError(logger, w, http.StatusInternalServerError, "internal server error")
		return
	}
	if !product.Available {
		writeError(logger, w, http.StatusNotFound, "product not found")
		return
	}

	cart := h.sessions.GetCart(r)
	if cart.Has(productID) {
		writeJSON(logger, w, http.StatusOK, cartResponse(StatusExists, "product is already in the cart", cart))
		return
	}
	cart.Set(productID, quantity, product.Price)
	if err := h.sessions.SaveCart(w, r, cart); err != nil {
		logger.Error("failed to save session cart", slog.Any("error", err))
		writeError(logger, w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(logger, w, http.StatusOK, cartResponse(StatusSuccess, "product added to cart", cart))
}

// Update handles POST /api/cart/update/{itemID}. For the persisted cart
// itemID is the cart item id; for the session cart it is the product id.
func (h *CartHandlers) Update(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.CartHandlers.Update"
	logger := h.log.With(slog.String("op", op))

	itemID, err := strconv.ParseInt(chi.URLParam(r, "itemID"), 10, 64)
	if err != nil {
		writeError(logger, w, http.StatusBadRequest, "invalid item id")
		return
	}
	quantity, err := decodeQuantity(r)
	if err != nil {
		writeError(logger, w, http.StatusBadRequest, "invalid request")
		return
	}

	if userID, ok := jwtmiddleware.FromContext(r.Context()); ok {
		cart, err := h.carts.UpdateItem(r.Context(), userID, itemID, quantity)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrInvalidQuantity):
				writeError(logger, w, http.StatusBadRequest, "quantity must be at least 1")
			case errors.Is(err, storage.ErrCartItemNotFound):
				writeError(logger, w, http.StatusNotFound, "cart item not found")
			default:
				logger.Error("failed to update item", slog.Any("error", err))
				writeError(logger, w, http.StatusInternalServerError, "internal server error")
			}
			return
		}
		writeJSON(logger, w, http.StatusOK, cartResponse(StatusSuccess, "cart updated", cart))
		return
	}

	if quantity < 1 {
		writeError(logger, w, http.StatusBadRequest, "quantity must be at least 1")
		return
	}
	cart := h.sessions.GetCart(r)
	if !cart.Has(itemID) {
		writeError(logger, w, http.StatusNotFound, "cart item not found")
		return
	}
	product, err := h.products.GetProductByID(r.Context(), itemID)
	if err != nil {
		logger.Error("failed to get product", slog.Any("error", err))
		writeError(logger, w, http.StatusInternalServerError, "internal server error")
		return
	}
	cart.Set(itemID, quantity, product.Price)
	if err := h.sessions.SaveCart(w, r, cart); err != nil {
		logger.Error("failed to save session cart", slog.Any("error", err))
		writeError(logger, w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(logger, w, http.StatusOK, cartResponse(StatusSuccess, "cart updated", cart))
}

// Remove handles POST /api/cart/remove/{itemID}.
func (h *CartHandlers) Remove(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.CartHandlers.Remove"
	logger := h.log.With(slog.String("op", op))

	itemID, err := strconv.ParseInt(chi.URLParam(r, "itemID"), 10, 64)
	if err != nil {
		writeError(logger, w, http.StatusBadRequest, "invalid item id")
		return
	}

	if userID, ok := jwtmiddleware.FromContext(r.Context()); ok {
		cart, err := h.carts.RemoveItem(r.Context(), userID, itemID)
		if err != nil {
			if errors.Is(err, storage.ErrCartItemNotFound) {
				writeError(logger, w, http.StatusNotFound, "cart item not found")
				return
			}
			logger.Error("failed to remove item", slog.Any("error", err))
			writeError(logger, w, http.StatusInternalServerError, "internal server error")
			return
		}
		writeJSON(logger, w, http.StatusOK, cartResponse(StatusSuccess, "product removed from cart", cart))
		return
	}

	cart := h.sessions.GetCart(r)
	if !cart.Remove(itemID) {
		writeError(logger, w, http.StatusNotFound, "cart item not found")
		return
	}
	if err := h.sessions.SaveCart(w, r, cart); err != nil {
		logger.Error("failed to save session cart", slog.Any("error", err))
		writeError(logger, w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(logger, w, http.StatusOK, cartResponse(StatusSuccess, "product removed from cart", cart))
}

// Clear handles POST /api/cart/clear.
func (h *CartHandlers) Clear(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.CartHandlers.Clear"
	logger := h.log.With(slog.String("op", op))

	if userID, ok := jwtmiddleware.FromContext(r.Context()); ok {
		cart, err := h.carts.Clear(r.Context(), userID)
		if err != nil {
			logger.Error("failed to clear cart", slog.Any("error", err))
			writeError(logger, w, http.StatusInternalServerError, "internal server error")
			return
		}
		writeJSON(logger, w, http.StatusOK, cartResponse(StatusSuccess, "cart cleared", cart))
		return
	}

	cart := session.Cart{}
	if err := h.sessions.SaveCart(w, r, cart); err != nil {
		logger.Error("failed to save session cart", slog.Any("error", err))
		writeError(logger, w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(logger, w, http.StatusOK, cartResponse(StatusSuccess, "cart cleared", cart))
}
