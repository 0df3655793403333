package repository

import (
	"context"
	"sync"

	"github.com/shiinazuki/zero2prod/internal/domain"
)

// MockSubscriberRepository is an in-memory SubscriberRepository for tests.
type MockSubscriberRepository struct {
	mu         sync.Mutex
	byEmail    map[string]*domain.Subscriber
	tokenOwner map[string]string // token -> email
}

func NewMockSubscriberRepository() *MockSubscriberRepository {
	return &MockSubscriberRepository{
		byEmail:    make(map[string]*domain.Subscriber),
		tokenOwner: make(map[string]string),
	}
}

func (m *MockSubscriberRepository) CreateSubscriber(ctx context.Context, sub *domain.Subscriber, confirmationToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byEmail[sub.Email]; exists {
		return domain.ErrAlreadySubscribed
	}
	copied := *sub
	m.byEmail[sub.Email] = &copied
	m.tokenOwner[confirmationToken] = sub.Email
	return nil
}

func (m *MockSubscriberRepository) ConfirmByToken(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	email, ok := m.tokenOwner[token]
	if !ok {
		return domain.ErrUnknownToken
	}
	m.byEmail[email].Status = domain.StatusConfirmed
	return nil
}

// Get returns the stored subscriber for assertions, or nil.
func (m *MockSubscriberRepository) Get(email string) *domain.Subscriber {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byEmail[email]
}
