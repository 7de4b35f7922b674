package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/curecom/curecom/internal/domain/models"
)

var ErrProductNotFound = errors.New("product not found")
var ErrCategoryNotFound = errors.New("category not found")

// Catalog sort orders accepted by ListProducts.
const (
	SortName      = "name"
	SortPriceLow  = "price_low"
	SortPriceHigh = "price_high"
	SortNewest    = "newest"
)

// ProductFilter narrows and orders a catalog listing.
type ProductFilter struct {
	CategoryID *int64
	Query      string
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	Sort       string
	Limit      int
	Offset     int
}

// ProductStorage describes catalog reads.
type ProductStorage interface {
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	GetProductBySlug(ctx context.Context, slug string) (*models.Product, error)
	ListProducts(ctx context.Context, filter ProductFilter) ([]*models.Product, error)
	ListCategories(ctx context.Context) ([]*models.Category, error)
	GetCategoryBySlug(ctx context.Context, slug string) (*models.Category, error)
	GetImagesByProductID(ctx context.Context, productID int64) ([]*models.ProductImage, error)
}

type productRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) ProductStorage {
	return &productRepository{db: db}
}

const productColumns = "id, category_id, name, slug, description, price, stock, available, created_at, updated_at"

func scanProduct(row *sql.Row) (*models.Product, error) {
	p := &models.Product{}
	if err := row.Scan(&p.ID, &p.CategoryID, &p.Name, &p.Slug, &p.Description,
		&p.Price, &p.Stock, &p.Available, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *productRepository) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	query := "SELECT " + productColumns + " FROM products WHERE id = $1"
	return scanProduct(r.db.QueryRowContext(ctx, query, id))
}

// GetProductBySlug resolves a catalog detail page; unavailable products are
// treated as absent.
func (r *productRepository) GetProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	query := "SELECT " + productColumns + " FROM products WHERE slug = $1 AND available = TRUE"
	return scanProduct(r.db.QueryRowContext(ctx, query, slug))
}

// ListProducts returns available products narrowed by the filter. The query
// is assembled with positional placeholders only.
func (r *productRepository) ListProducts(ctx context.Context, filter ProductFilter) ([]*models.Product, error) {
	var sb strings.Builder
	sb.WriteString("SELECT " + productColumns + " FROM products WHERE available = TRUE")

	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.CategoryID != nil {
		sb.WriteString(" AND category_id = " + arg(*filter.CategoryID))
	}
	if filter.Query != "" {
		ph := arg("%" + filter.Query + "%")
		sb.WriteString(" AND (name ILIKE " + ph + " OR description ILIKE " + ph + ")")
	}
	if filter.MinPrice != nil {
		sb.WriteString(" AND price >= " + arg(filter.MinPrice.String()))
	}
	if filter.MaxPrice != nil {
		sb.WriteString(" AND price <= " + arg(filter.MaxPrice.String()))
	}

	switch filter.Sort {
	case SortPriceLow:
		sb.WriteString(" ORDER BY price ASC")
	case SortPriceHigh:
		sb.WriteString(" ORDER BY price DESC")
	case SortNewest:
		sb.WriteString(" ORDER BY created_at DESC")
	default:
		sb.WriteString(" ORDER BY name ASC")
	}

	if filter.Limit > 0 {
		sb.WriteString(" LIMIT " + arg(filter.Limit))
	}
	if filter.Offset > 0 {
		sb.WriteString(" OFFSET " + arg(filter.Offset))
	}

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		p := &models.Product{}
		if err := rows.Scan(&p.ID, &p.CategoryID, &p.Name, &p.Slug, &p.Description,
			&p.Price, &p.Stock, &p.Available, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (r *productRepository) ListCategories(ctx context.Context) ([]*models.Category, error) {
	query := "SELECT id, name, slug, description, created_at FROM categories ORDER BY name ASC"
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var categories []*models.Category
	for rows.Next() {
		c := &models.Category{}
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.CreatedAt); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *productRepository) GetCategoryBySlug(ctx context.Context, slug string) (*models.Category, error) {
	c := &models.Category{}
	row := r.db.QueryRowContext(ctx,
		"SELECT id, name, slug, description, created_at FROM categories WHERE slug = $1", slug)
	if err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *productRepository) GetImagesByProductID(ctx context.Context, productID int64) ([]*models.ProductImage, error) {
	query := `SELECT id, product_id, url, is_primary, created_at
		FROM product_images
		WHERE product_id = $1
		ORDER BY is_primary DESC, created_at ASC`
	rows, err := r.db.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to query product images: %w", err)
	}
	defer rows.Close()

	var images []*models.ProductImage
	for rows.Next() {
		img := &models.ProductImage{}
		if err := rows.Scan(&img.ID, &img.ProductID, &img.URL, &img.IsPrimary, &img.CreatedAt); err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return images, nil
}
