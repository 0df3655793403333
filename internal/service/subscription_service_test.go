package service_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/shiinazuki/zero2prod/internal/domain"
	"github.com/shiinazuki/zero2prod/internal/repository"
	"github.com/shiinazuki/zero2prod/internal/service"
)

// fakeSender records sent emails and fails on demand.
type fakeSender struct {
	mu   sync.Mutex
	sent []sentEmail
	err  error
}

type sentEmail struct {
	to       string
	subject  string
	htmlBody string
	textBody string
}

func (f *fakeSender) Send(ctx context.Context, to domain.SubscriberEmail, subject, htmlBody, textBody string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentEmail{to: to.String(), subject: subject, htmlBody: htmlBody, textBody: textBody})
	return nil
}

func newSubscriptionService() (*service.SubscriptionService, *repository.MockSubscriberRepository, *fakeSender) {
	repo := repository.NewMockSubscriberRepository()
	sender := &fakeSender{}
	svc := service.NewSubscriptionService(repo, sender, "https://newsletter.example.com", zap.NewNop())
	return svc, repo, sender
}

func TestSubscriptionService_Subscribe(t *testing.T) {
	svc, repo, sender := newSubscriptionService()

	sub, err := svc.Subscribe(context.Background(), domain.SubscribeRequest{
		Name:  "Ursula Le Guin",
		Email: "ursula@domain.com",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sub.Status != domain.StatusPendingConfirmation {
		t.Fatalf("expected pending_confirmation, got %s", sub.Status)
	}
	if repo.Get("ursula@domain.com") == nil {
		t.Fatal("expected subscriber to be stored")
	}

	if len(sender.sent) != 1 {
		t.Fatalf("expected 1 confirmation email, got %d", len(sender.sent))
	}
	mail := sender.sent[0]
	if mail.to != "ursula@domain.com" {
		t.Fatalf("confirmation sent to %q", mail.to)
	}
	if !strings.Contains(mail.textBody, "/subscriptions/confirm?subscription_token=") {
		t.Fatalf("confirmation link missing from body: %q", mail.textBody)
	}
}

func TestSubscriptionService_Subscribe_Duplicate(t *testing.T) {
	svc, _, _ := newSubscriptionService()
	ctx := context.Background()
	req := domain.SubscribeRequest{Name: "Ursula", Email: "ursula@domain.com"}

	if _, err := svc.Subscribe(ctx, req); err != nil {
		t.Fatalf("first subscribe: %v", err)
	}
	if _, err := svc.Subscribe(ctx, req); err != domain.ErrAlreadySubscribed {
		t.Fatalf("expected ErrAlreadySubscribed, got %v", err)
	}
}

func TestSubscriptionService_Subscribe_SenderFailure(t *testing.T) {
	svc, _, sender := newSubscriptionService()
	sender.err = errors.New("provider down")

	_, err := svc.Subscribe(context.Background(), domain.SubscribeRequest{
		Name:  "Ursula",
		Email: "ursula@domain.com",
	})
	if err == nil {
		t.Fatal("expected an error when the confirmation email fails")
	}
}

func TestSubscriptionService_Confirm(t *testing.T) {
	svc, repo, sender := newSubscriptionService()
	ctx := context.Background()

	if _, err := svc.Subscribe(ctx, domain.SubscribeRequest{Name: "Ursula", Email: "ursula@domain.com"}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	// Pull the token out of the confirmation link.
	body := sender.sent[0].textBody
	idx := strings.Index(body, "subscription_token=")
	token := strings.Fields(body[idx+len("subscription_token="):])[0]

	if err := svc.Confirm(ctx, token); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if got := repo.Get("ursula@domain.com").Status; got != domain.StatusConfirmed {
		t.Fatalf("expected confirmed, got %s", got)
	}
}

func TestSubscriptionService_Confirm_UnknownToken(t *testing.T) {
	svc, _, _ := newSubscriptionService()
	if err := svc.Confirm(context.Background(), "nope"); err != domain.ErrUnknownToken {
		t.Fatalf("expected ErrUnknownToken, got %v", err)
	}
	if err := svc.Confirm(context.Background(), ""); err != domain.ErrUnknownToken {
		t.Fatalf("expected ErrUnknownToken for empty token, got %v", err)
	}
}
