package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/curecom/curecom/internal/domain/models"
)

var ErrListingNotFound = errors.New("listing not found")

// ListingStorage describes marketplace listings owned by sellers. Every
// mutating query carries the seller id so one seller cannot touch another's
// rows.
type ListingStorage interface {
	CreateListing(ctx context.Context, listing *models.Listing) (int64, error)
	GetListingsBySellerID(ctx context.Context, sellerID int64) ([]*models.Listing, error)
	GetListingByID(ctx context.Context, listingID, sellerID int64) (*models.Listing, error)
	UpdateListing(ctx context.Context, listing *models.Listing) error
	DeleteListing(ctx context.Context, listingID, sellerID int64) error
}

type listingRepository struct {
	db *sql.DB
}

func NewListingRepository(db *sql.DB) ListingStorage {
	return &listingRepository{db: db}
}

const listingColumns = "id, seller_id, category_id, name, slug, description, price, active, created_at, updated_at"

func (r *listingRepository) CreateListing(ctx context.Context, listing *models.Listing) (int64, error) {
	query := `INSERT INTO listings (seller_id, category_id, name, slug, description, price, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW()) RETURNING id`
	var id int64
	err := r.db.QueryRowContext(ctx, query,
		listing.SellerID, listing.CategoryID, listing.Name, listing.Slug,
		listing.Description, listing.Price, listing.Active,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create listing: %w", err)
	}
	return id, nil
}

func scanListing(row rowScanner, l *models.Listing) error {
	return row.Scan(&l.ID, &l.SellerID, &l.CategoryID, &l.Name, &l.Slug,
		&l.Description, &l.Price, &l.Active, &l.CreatedAt, &l.UpdatedAt)
}

func (r *listingRepository) GetListingsBySellerID(ctx context.Context, sellerID int64) ([]*models.Listing, error) {
	query := "SELECT " + listingColumns + " FROM listings WHERE seller_id = $1 ORDER BY created_at DESC"
	rows, err := r.db.QueryContext(ctx, query, sellerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query listings: %w", err)
	}
	defer rows.Close()

	var listings []*models.Listing
	for rows.Next() {
		l := &models.Listing{}
		if err := scanListing(rows, l); err != nil {
			return nil, err
		}
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return listings, nil
}

func (r *listingRepository) GetListingByID(ctx context.Context, listingID, sellerID int64) (*models.Listing, error) {
	l := &models.Listing{}
	query := "SELECT " + listingColumns + " FROM listings WHERE id = $1 AND seller_id = $2"
	if err := scanListing(r.db.QueryRowContext(ctx, query, listingID, sellerID), l); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrListingNotFound
		}
		return nil, err
	}
	return l, nil
}

func (r *listingRepository) UpdateListing(ctx context.Context, listing *models.Listing) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE listings
		SET category_id = $1, name = $2, description = $3, price = $4, active = $5, updated_at = NOW()
		WHERE id = $6 AND seller_id = $7`,
		listing.CategoryID, listing.Name, listing.Description, listing.Price,
		listing.Active, listing.ID, listing.SellerID)
	if err != nil {
		return fmt.Errorf("failed to update listing: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrListingNotFound
	}
	return nil
}

func (r *listingRepository) DeleteListing(ctx context.Context, listingID, sellerID int64) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM listings WHERE id = $1 AND seller_id = $2", listingID, sellerID)
	if err != nil {
		return fmt.Errorf("failed to delete listing: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrListingNotFound
	}
	return nil
}
