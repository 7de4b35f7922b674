package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/curecom/curecom/internal/domain/models"
	"github.com/curecom/curecom/internal/storage"
)

// ListingInput carries the seller-editable fields of a marketplace listing.
type ListingInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	CategoryID  *int64
	Active      bool
}

// ListingService manages peer-to-peer marketplace listings. All operations
// are scoped to the requesting seller.
type ListingService interface {
	Create(ctx context.Context, sellerID int64, in ListingInput) (*models.Listing, error)
	ListMine(ctx context.Context, sellerID int64) ([]*models.Listing, error)
	Update(ctx context.Context, sellerID, listingID int64, in ListingInput) (*models.Listing, error)
	Delete(ctx context.Context, sellerID, listingID int64) error
}

type listingService struct {
	log         *slog.Logger
	listingRepo storage.ListingStorage
}

func NewListingService(log *slog.Logger, listingRepo storage.ListingStorage) ListingService {
	return &listingService{
		log:         log,
		listingRepo: listingRepo,
	}
}

// slugify lowercases the name and collapses everything that is not a letter
// or digit into single dashes.
func slugify(name string) string {
	var sb strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
			lastDash = false
		} else if !lastDash {
			sb.WriteByte('-')
			lastDash = true
		}
	}
	return strings.TrimSuffix(sb.String(), "-")
}

func (s *listingService) Create(ctx context.Context, sellerID int64, in ListingInput) (*models.Listing, error) {
	const op = "service.ListingService.Create"
	logger := s.log.With(slog.String("op", op), slog.Int64("sellerID", sellerID))

	listing := &models.Listing{
		SellerID:    sellerID,
		CategoryID:  in.CategoryID,
		Name:        in.Name,
		// uuid suffix keeps slugs unique across same-named listings
		Slug:        fmt.Sprintf("%s-%s", slugify(in.Name), uuid.NewString()[:8]),
		Description: in.Description,
		Price:       in.Price,
		Active:      in.Active,
	}

	id, err := s.listingRepo.CreateListing(ctx, listing)
	if err != nil {
		logger.Error("failed to create listing", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to create listing: %w", op, err)
	}
	listing.ID = id

	logger.Info("listing created", slog.Int64("listingID", id))
	return listing, nil
}

func (s *listingService) ListMine(ctx context.Context, sellerID int64) ([]*models.Listing, error) {
	const op = "service.ListingService.ListMine"

	listings, err := s.listingRepo.GetListingsBySellerID(ctx, sellerID)
	if err != nil {
		s.log.Error("failed to list listings", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to list listings: %w", op, err)
	}
	return listings, nil
}

func (s *listingService) Update(ctx context.Context, sellerID, listingID int64, in ListingInput) (*models.Listing, error) {
	const op = "service.ListingService.Update"
	logger := s.log.With(slog.String("op", op), slog.Int64("sellerID", sellerID), slog.Int64("listingID", listingID))

	listing, err := s.listingRepo.GetListingByID(ctx, listingID, sellerID)
	if err != nil {
		logger.Error("failed to get listing", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get listing: %w", op, err)
	}

	listing.Name = in.Name
	listing.Description = in.Description
	listing.Price = in.Price
	listing.CategoryID = in.CategoryID
	listing.Active = in.Active

	if err := s.listingRepo.UpdateListing(ctx, listing); err != nil {
		logger.Error("failed to update listing", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to update listing: %w", op, err)
	}

	return listing, nil
}

func (s *listingService) Delete(ctx context.Context, sellerID, listingID int64) error {
	const op = "service.ListingService.Delete"
	logger := s.log.With(slog.String("op", op), slog.Int64("sellerID", sellerID), slog.Int64("listingID", listingID))

	if err := s.listingRepo.DeleteListing(ctx, listingID, sellerID); err != nil {
		logger.Error("failed to delete listing", slog.Any("error", err))
		return fmt.Errorf("%s: failed to delete listing: %w", op, err)
	}

	logger.Info("listing deleted")
	return nil
}
