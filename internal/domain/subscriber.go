package domain

import (
	"time"

	"github.com/google/uuid"
)

// SubscriberStatus tracks the double-opt-in lifecycle.
type SubscriberStatus string

const (
	StatusPendingConfirmation SubscriberStatus = "pending_confirmation"
	StatusConfirmed           SubscriberStatus = "confirmed"
)

// Subscriber is one newsletter recipient. Only confirmed subscribers are
// snapshotted into the delivery queue when an issue is published.
type Subscriber struct {
	ID           uuid.UUID        `json:"id"`
	Email        string           `json:"email"`
	Name         string           `json:"name"`
	Status       SubscriberStatus `json:"status"`
	SubscribedAt time.Time        `json:"subscribed_at"`
}

// SubscribeRequest is the inbound sign-up payload.
type SubscribeRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

const maxNameLength = 256

func (r *SubscribeRequest) Validate() error {
	if r.Name == "" || len(r.Name) > maxNameLength {
		return ErrInvalidName
	}
	if _, err := ParseSubscriberEmail(r.Email); err != nil {
		return err
	}
	return nil
}
