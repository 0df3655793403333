package domain

import "errors"

// Sentinel errors used throughout the application.
// Handlers translate these to HTTP status codes via a single mapError function.
var (
	ErrInvalidIdempotencyKey = errors.New("idempotency key must be 1-50 letters, digits, or hyphens")
	ErrInvalidEmail          = errors.New("not a valid email address")
	ErrInvalidTitle          = errors.New("title must be between 1 and 256 characters")
	ErrInvalidContent        = errors.New("issue needs HTML content, text content, or both")
	ErrInvalidName           = errors.New("name must be between 1 and 256 characters")
	ErrAlreadySubscribed     = errors.New("email is already subscribed")
	ErrUnknownToken          = errors.New("unknown subscription token")
	ErrMissingPrincipal      = errors.New("request is not authenticated")
	ErrNotFound              = errors.New("not found")
	ErrEmptyQueue            = errors.New("delivery queue is empty")
)
