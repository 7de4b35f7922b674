package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/curecom/curecom/internal/domain/models"
	"github.com/curecom/curecom/internal/storage"
)

// Cart is the one contract both cart representations expose: the persisted
// per-user cart and the anonymous session cart. Handlers pick the
// implementation once per request based on whether a JWT identity is
// present.
type Cart interface {
	Subtotal() decimal.Decimal
	Discount() decimal.Decimal
	Total() decimal.Decimal
	Count() int
}

// ErrAlreadyInCart is the user-visible "already in cart" state: add never
// merges into an existing line, that is what update is for.
var ErrAlreadyInCart = errors.New("product is already in the cart")

var ErrInvalidQuantity = errors.New("quantity must be at least 1")

// CartService manages the persisted cart of an authenticated user.
type CartService interface {
	GetCart(ctx context.Context, userID int64) (*models.Cart, error)
	AddItem(ctx context.Context, userID, productID int64, quantity int) (*models.Cart, error)
	UpdateItem(ctx context.Context, userID, itemID int64, quantity int) (*models.Cart, error)
	RemoveItem(ctx context.Context, userID, itemID int64) (*models.Cart, error)
	Clear(ctx context.Context, userID int64) (*models.Cart, error)
}

type cartService struct {
	log         *slog.Logger
	cartRepo    storage.CartStorage
	productRepo storage.ProductStorage
}

func NewCartService(log *slog.Logger, cartRepo storage.CartStorage, productRepo storage.ProductStorage) CartService {
	return &cartService{
		log:         log,
		cartRepo:    cartRepo,
		productRepo: productRepo,
	}
}

func (s *cartService) GetCart(ctx context.Context, userID int64) (*models.Cart, error) {
	const op = "service.CartService.GetCart"
	cart, err := s.cartRepo.GetOrCreateCartByUserID(ctx, userID)
	if err != nil {
		s.log.Error("failed to load cart", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to load cart: %w", op, err)
	}
	return cart, nil
}

// AddItem puts a product into the cart. A product already present is
// rejected with ErrAlreadyInCart rather than merged.
func (s *cartService) AddItem(ctx context.Context, userID, productID int64, quantity int) (*models.Cart, error) {
	const op = "service.CartService.AddItem"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.Int64("productID", productID))

	if quantity < 1 {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidQuantity)
	}

	product, err := s.productRepo.GetProductByID(ctx, productID)
	if err != nil {
		logger.Error("failed to get product", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get product: %w", op, err)
	}
	if !product.Available {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrProductNotFound)
	}

	cart, err := s.cartRepo.GetOrCreateCartByUserID(ctx, userID)
	if err != nil {
		logger.Error("failed to load cart", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to load cart: %w", op, err)
	}

	if _, err := s.cartRepo.GetItemByProductID(ctx, cart.ID, productID); err == nil {
		logger.Info("product already in cart")
		return nil, fmt.Errorf("%s: %w", op, ErrAlreadyInCart)
	} else if !errors.Is(err, storage.ErrCartItemNotFound) {
		logger.Error("failed to check cart item", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to check cart item: %w", op, err)
	}

	if err := s.cartRepo.CreateItem(ctx, cart.ID, productID, quantity); err != nil {
		logger.Error("failed to create cart item", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to create cart item: %w", op, err)
	}

	logger.Info("product added to cart")
	return s.cartRepo.GetOrCreateCartByUserID(ctx, userID)
}

// UpdateItem changes a line's quantity; the line is addressed by cart-item
// id because the persisted representation has one.
func (s *cartService) UpdateItem(ctx context.Context, userID, itemID int64, quantity int) (*models.Cart, error) {
	const op = "service.CartService.UpdateItem"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.Int64("itemID", itemID))

	if quantity < 1 {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidQuantity)
	}

	cart, err := s.cartRepo.GetOrCreateCartByUserID(ctx, userID)
	if err != nil {
		logger.Error("failed to load cart", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to load cart: %w", op, err)
	}

	if err := s.cartRepo.UpdateItemQuantity(ctx, cart.ID, itemID, quantity); err != nil {
		logger.Error("failed to update cart item", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to update cart item: %w", op, err)
	}

	return s.cartRepo.GetOrCreateCartByUserID(ctx, userID)
}

func (s *cartService) RemoveItem(ctx context.Context, userID, itemID int64) (*models.Cart, error) {
	const op = "service.CartService.RemoveItem"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.Int64("itemID", itemID))

	cart, err := s.cartRepo.GetOrCreateCartByUserID(ctx, userID)
	if err != nil {
		logger.Error("failed to load cart", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to load cart: %w", op, err)
	}

	if err := s.cartRepo.DeleteItem(ctx, cart.ID, itemID); err != nil {
		logger.Error("failed to remove cart item", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to remove cart item: %w", op, err)
	}

	return s.cartRepo.GetOrCreateCartByUserID(ctx, userID)
}

func (s *cartService) Clear(ctx context.Context, userID int64) (*models.Cart, error) {
	const op = "service.CartService.Clear"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID))

	cart, err := s.cartRepo.GetOrCreateCartByUserID(ctx, userID)
	if err != nil {
		logger.Error("failed to load cart", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to load cart: %w", op, err)
	}

	if err := s.cartRepo.DeleteAllItems(ctx, cart.ID); err != nil {
		logger.Error("failed to clear cart", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to clear cart: %w", op, err)
	}

	logger.Info("cart cleared")
	return s.cartRepo.GetOrCreateCartByUserID(ctx, userID)
}
