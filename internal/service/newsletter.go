package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/curecom/curecom/internal/domain/models"
	"github.com/curecom/curecom/internal/storage"
)

// ErrAlreadySubscribed is the friendly duplicate-subscription outcome;
// handlers surface it as an informational response, not a failure.
var ErrAlreadySubscribed = errors.New("already subscribed to the newsletter")

// NewsletterService stores newsletter subscriptions.
type NewsletterService interface {
	Subscribe(ctx context.Context, email string) (*models.Subscriber, error)
}

type newsletterService struct {
	log            *slog.Logger
	newsletterRepo storage.NewsletterStorage
}

func NewNewsletterService(log *slog.Logger, newsletterRepo storage.NewsletterStorage) NewsletterService {
	return &newsletterService{
		log:            log,
		newsletterRepo: newsletterRepo,
	}
}

func (s *newsletterService) Subscribe(ctx context.Context, email string) (*models.Subscriber, error) {
	const op = "service.NewsletterService.Subscribe"
	logger := s.log.With(slog.String("op", op), slog.String("email", email))

	sub, err := s.newsletterRepo.CreateSubscriber(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateEmail) {
			logger.Info("duplicate subscription")
			return nil, fmt.Errorf("%s: %w", op, ErrAlreadySubscribed)
		}
		logger.Error("failed to subscribe", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to subscribe: %w", op, err)
	}

	logger.Info("subscribed to newsletter")
	return sub, nil
}
