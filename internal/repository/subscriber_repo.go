package repository

import (
	"context"

	"github.com/shiinazuki/zero2prod/internal/domain"
)

// SubscriberRepository persists newsletter sign-ups and their confirmation
// tokens. The publish transaction does not read through this interface: it
// snapshots confirmed subscribers with a bulk INSERT..SELECT of its own.
type SubscriberRepository interface {
	// CreateSubscriber stores a pending subscriber together with the
	// confirmation token, atomically. Returns domain.ErrAlreadySubscribed
	// when the email exists.
	CreateSubscriber(ctx context.Context, sub *domain.Subscriber, confirmationToken string) error

	// ConfirmByToken flips the subscriber owning the token to confirmed.
	// Returns domain.ErrUnknownToken for an unknown token. Confirming an
	// already-confirmed subscriber is a no-op success.
	ConfirmByToken(ctx context.Context, token string) error
}
