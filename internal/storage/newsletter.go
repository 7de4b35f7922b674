package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/curecom/curecom/internal/domain/models"
)

var ErrDuplicateEmail = errors.New("email already subscribed")

// NewsletterStorage stores newsletter subscriptions.
type NewsletterStorage interface {
	CreateSubscriber(ctx context.Context, email string) (*models.Subscriber, error)
}

type newsletterRepository struct {
	db *sql.DB
}

func NewNewsletterRepository(db *sql.DB) NewsletterStorage {
	return &newsletterRepository{db: db}
}

func (r *newsletterRepository) CreateSubscriber(ctx context.Context, email string) (*models.Subscriber, error) {
	sub := &models.Subscriber{}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO newsletter_subscribers (email, subscribed_at, is_active)
		VALUES ($1, NOW(), TRUE)
		RETURNING id, email, subscribed_at, is_active`, email)
	if err := row.Scan(&sub.ID, &sub.Email, &sub.SubscribedAt, &sub.IsActive); err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" { // unique_violation
				return nil, ErrDuplicateEmail
			}
		}
		return nil, fmt.Errorf("failed to create subscriber: %w", err)
	}
	return sub, nil
}
