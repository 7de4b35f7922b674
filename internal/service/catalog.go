package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/curecom/curecom/internal/domain/models"
	"github.com/curecom/curecom/internal/storage"
)

// ProductDetail is a product with its gallery images.
type ProductDetail struct {
	Product *models.Product       `json:"product"`
	Images  []*models.ProductImage `json:"images"`
}

// CatalogService is the read side of the catalog: listing, search and
// detail pages. It feeds pricing but never mutates products.
type CatalogService interface {
	// ListProducts applies the filter; CategorySlug, when set, is resolved
	// to its id first.
	ListProducts(ctx context.Context, filter storage.ProductFilter, categorySlug string) ([]*models.Product, error)
	GetProduct(ctx context.Context, slug string) (*ProductDetail, error)
	ListCategories(ctx context.Context) ([]*models.Category, error)
}

type catalogService struct {
	log         *slog.Logger
	productRepo storage.ProductStorage
}

func NewCatalogService(log *slog.Logger, productRepo storage.ProductStorage) CatalogService {
	return &catalogService{
		log:         log,
		productRepo: productRepo,
	}
}

func (s *catalogService) ListProducts(ctx context.Context, filter storage.ProductFilter, categorySlug string) ([]*models.Product, error) {
	const op = "service.CatalogService.ListProducts"

	if categorySlug != "" {
		category, err := s.productRepo.GetCategoryBySlug(ctx, categorySlug)
		if err != nil {
			if errors.Is(err, storage.ErrCategoryNotFound) {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
			s.log.Error("failed to resolve category", slog.String("op", op), slog.Any("error", err))
			return nil, fmt.Errorf("%s: failed to resolve category: %w", op, err)
		}
		filter.CategoryID = &category.ID
	}

	products, err := s.productRepo.ListProducts(ctx, filter)
	if err != nil {
		s.log.Error("failed to list products", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to list products: %w", op, err)
	}
	return products, nil
}

func (s *catalogService) GetProduct(ctx context.Context, slug string) (*ProductDetail, error) {
	const op = "service.CatalogService.GetProduct"

	product, err := s.productRepo.GetProductBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, storage.ErrProductNotFound) {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		s.log.Error("failed to get product", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get product: %w", op, err)
	}

	images, err := s.productRepo.GetImagesByProductID(ctx, product.ID)
	if err != nil {
		s.log.Error("failed to load product images", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to load product images: %w", op, err)
	}

	return &ProductDetail{Product: product, Images: images}, nil
}

func (s *catalogService) ListCategories(ctx context.Context) ([]*models.Category, error) {
	const op = "service.CatalogService.ListCategories"

	categories, err := s.productRepo.ListCategories(ctx)
	if err != nil {
		s.log.Error("failed to list categories", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to list categories: %w", op, err)
	}
	return categories, nil
}
