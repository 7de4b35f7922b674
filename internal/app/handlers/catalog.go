package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/curecom/curecom/internal/domain/models"
	"github.com/curecom/curecom/internal/service"
	"github.com/curecom/curecom/internal/storage"
)

// ProductListResponse wraps a catalog page.
type ProductListResponse struct {
	Status   string            `json:"status"`
	Products []*models.Product `json:"products"`
}

// ListProductsHandler handles GET /api/products.
// Filters come from query parameters: category, q, min_price, max_price,
// sort, limit, offset. Unknown values are rejected, not silently dropped.
func ListProductsHandler(log *slog.Logger, catalog service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListProductsHandler"
		logger := log.With(slog.String("op", op))

		q := r.URL.Query()
		filter := storage.ProductFilter{
			Query: q.Get("q"),
			Sort:  q.Get("sort"),
		}

		if raw := q.Get("min_price"); raw != "" {
			min, err := decimal.NewFromString(raw)
			if err != nil {
				writeError(logger, w, http.StatusBadRequest, "invalid min_price")
				return
			}
			filter.MinPrice = &min
		}
		if raw := q.Get("max_price"); raw != "" {
			max, err := decimal.NewFromString(raw)
			if err != nil {
				writeError(logger, w, http.StatusBadRequest, "invalid max_price")
				return
			}
			filter.MaxPrice = &max
		}
		if raw := q.Get("limit"); raw != "" {
			limit, err := strconv.Atoi(raw)
			if err != nil || limit < 0 {
				writeError(logger, w, http.StatusBadRequest, "invalid limit")
				return
			}
			filter.Limit = limit
		}
		if raw := q.Get("offset"); raw != "" {
			offset, err := strconv.Atoi(raw)
			if err != nil || offset < 0 {
				writeError(logger, w, http.StatusBadRequest, "invalid offset")
				return
			}
			filter.Offset = offset
		}

		products, err := catalog.ListProducts(r.Context(), filter, q.Get("category"))
		if err != nil {
			if errors.Is(err, storage.ErrCategoryNotFound) {
				writeError(logger, w, http.StatusNotFound, "category not found")
				return
			}
			logger.Error("failed to list products", slog.Any("error", err))
			writeError(logger, w, http.StatusInternalServerError, "internal server error")
			return
		}

		writeJSON(logger, w, http.StatusOK, ProductListResponse{
			Status:   StatusSuccess,
			Products: products,
		})
	}
}

// ProductDetailResponse wraps one product with its gallery.
type ProductDetailResponse struct {
	Status  string                 `json:"status"`
	Product *models.Product        `json:"product"`
	Images  []*models.ProductImage `json:"images"`
}

// GetProductHandler handles GET /api/products/{slug}.
func GetProductHandler(log *slog.Logger, catalog service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetProductHandler"
		logger := log.With(slog.String("op", op))

		slug := chi.URLParam(r, "slug")
		if slug == "" {
			writeError(logger, w, http.StatusBadRequest, "slug parameter is required")
			return
		}

		detail, err := catalog.GetProduct(r.Context(), slug)
		if err != nil {
			if errors.Is(err, storage.ErrProductNotFound) {
				writeError(logger, w, http.StatusNotFound, "product not found")
				return
			}
			logger.Error("failed to get product", slog.Any("error", err))
			writeError(logger, w, http.StatusInternalServerError, "internal server error")
			return
		}

		writeJSON(logger, w, http.StatusOK, ProductDetailResponse{
			Status:  StatusSuccess,
			Product: detail.Product,
			Images:  detail.Images,
		})
	}
}

// CategoryListResponse wraps the category navigation list.
type CategoryListResponse struct {
	Status     string             `json:"status"`
	Categories []*models.Category `json:"categories"`
}

// ListCategoriesHandler handles GET /api/categories.
func ListCategoriesHandler(log *slog.Logger, catalog service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListCategoriesHandler"
		logger := log.With(slog.String("op", op))

		categories, err := catalog.ListCategories(r.Context())
		if err != nil {
			logger.Error("failed to list categories", slog.Any("error", err))
			writeError(logger, w, http.StatusInternalServerError, "internal server error")
			return
		}

		writeJSON(logger, w, http.StatusOK, CategoryListResponse{
			Status:     StatusSuccess,
			Categories: categories,
		})
	}
}
