package domain

import (
	"net/mail"
	"strings"
)

// SubscriberEmail is a validated email address. The zero value is invalid;
// always construct via ParseSubscriberEmail.
type SubscriberEmail struct {
	value string
}

// ParseSubscriberEmail accepts a bare RFC 5322 address ("ursula@domain.com").
// Display names, angle brackets, and whitespace are rejected: the queue
// stores exactly what will be handed to the mail provider.
func ParseSubscriberEmail(raw string) (SubscriberEmail, error) {
	addr, err := mail.ParseAddress(raw)
	if err != nil || addr.Name != "" || addr.Address != raw {
		return SubscriberEmail{}, ErrInvalidEmail
	}
	if !strings.Contains(raw, "@") {
		return SubscriberEmail{}, ErrInvalidEmail
	}
	return SubscriberEmail{value: raw}, nil
}

func (e SubscriberEmail) String() string {
	return e.value
}
