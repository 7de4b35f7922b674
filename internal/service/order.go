package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/curecom/curecom/internal/domain/models"
	"github.com/curecom/curecom/internal/storage"
)

// OrderService is the read side of orders. Orders are created only by
// checkout and money fields are never recomputed here.
type OrderService interface {
	List(ctx context.Context, userID int64) ([]*models.Order, error)
	Get(ctx context.Context, userID, orderID int64) (*models.Order, error)
}

type orderService struct {
	log       *slog.Logger
	orderRepo storage.OrderStorage
}

func NewOrderService(log *slog.Logger, orderRepo storage.OrderStorage) OrderService {
	return &orderService{
		log:       log,
		orderRepo: orderRepo,
	}
}

func (s *orderService) List(ctx context.Context, userID int64) ([]*models.Order, error) {
	const op = "service.OrderService.List"

	orders, err := s.orderRepo.GetOrdersByUserID(ctx, userID)
	if err != nil {
		s.log.Error("failed to list orders", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to list orders: %w", op, err)
	}
	return orders, nil
}

func (s *orderService) Get(ctx context.Context, userID, orderID int64) (*models.Order, error) {
	const op = "service.OrderService.Get"

	order, err := s.orderRepo.GetOrderByID(ctx, orderID, userID)
	if err != nil {
		if errors.Is(err, storage.ErrOrderNotFound) {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		s.log.Error("failed to get order", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get order: %w", op, err)
	}
	return order, nil
}
