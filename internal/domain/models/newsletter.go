package models

import "time"

// Subscriber is a newsletter subscription by email.
type Subscriber struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	SubscribedAt time.Time `json:"subscribed_at"`
	IsActive     bool      `json:"is_active"`
}
