package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shiinazuki/zero2prod/internal/domain"
	"github.com/shiinazuki/zero2prod/internal/email"
	"github.com/shiinazuki/zero2prod/internal/repository"
)

const tokenLength = 25

// SubscriptionService handles the double-opt-in sign-up flow: store a
// pending subscriber plus a one-time token, email the confirmation link,
// and flip the status when the link is followed. Only confirmed subscribers
// receive published issues.
type SubscriptionService struct {
	repo    repository.SubscriberRepository
	sender  email.Sender
	baseURL string
	logger  *zap.Logger
}

func NewSubscriptionService(
	repo repository.SubscriberRepository,
	sender email.Sender,
	baseURL string,
	logger *zap.Logger,
) *SubscriptionService {
	return &SubscriptionService{repo: repo, sender: sender, baseURL: baseURL, logger: logger}
}

// Subscribe registers a pending subscriber and sends the confirmation email.
func (s *SubscriptionService) Subscribe(ctx context.Context, req domain.SubscribeRequest) (*domain.Subscriber, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	addr, err := domain.ParseSubscriberEmail(req.Email)
	if err != nil {
		return nil, err
	}

	sub := &domain.Subscriber{
		ID:           uuid.New(),
		Email:        addr.String(),
		Name:         req.Name,
		Status:       domain.StatusPendingConfirmation,
		SubscribedAt: time.Now().UTC(),
	}
	token, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("generate confirmation token: %w", err)
	}

	if err := s.repo.CreateSubscriber(ctx, sub, token); err != nil {
		return nil, err
	}

	link := fmt.Sprintf("%s/subscriptions/confirm?subscription_token=%s", s.baseURL, token)
	htmlBody := fmt.Sprintf(
		`Welcome to our newsletter!<br/>Click <a href="%s">here</a> to confirm your subscription.`, link)
	textBody := fmt.Sprintf(
		"Welcome to our newsletter!\nVisit %s to confirm your subscription.", link)

	if err := s.sender.Send(ctx, addr, "Welcome!", htmlBody, textBody); err != nil {
		// The pending row stays: a later sign-up attempt with the same email
		// is rejected as duplicate, but the operator can re-trigger the mail.
		return nil, fmt.Errorf("send confirmation email: %w", err)
	}

	s.logger.Info("new subscriber registered",
		zap.String("subscriber_id", sub.ID.String()),
	)
	return sub, nil
}

// Confirm marks the token's owner as confirmed.
func (s *SubscriptionService) Confirm(ctx context.Context, token string) error {
	if token == "" {
		return domain.ErrUnknownToken
	}
	return s.repo.ConfirmByToken(ctx, token)
}

const tokenAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func generateToken() (string, error) {
	out := make([]byte, tokenLength)
	alphabetLen := big.NewInt(int64(len(tokenAlphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", err
		}
		out[i] = tokenAlphabet[n.Int64()]
	}
	return string(out), nil
}
