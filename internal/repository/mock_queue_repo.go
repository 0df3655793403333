package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shiinazuki/zero2prod/internal/domain"
)

// MockDeliveryQueueRepository is an in-memory DeliveryQueueRepository for
// worker tests. A claimed entry is invisible to other claimers until
// resolved, mirroring the row-lock + SKIP LOCKED behaviour.
type MockDeliveryQueueRepository struct {
	mu     sync.Mutex
	issues map[uuid.UUID]domain.NewsletterIssue
	tasks  []*mockQueueEntry
}

type mockQueueEntry struct {
	task   domain.DeliveryTask
	locked bool
}

func NewMockDeliveryQueueRepository() *MockDeliveryQueueRepository {
	return &MockDeliveryQueueRepository{issues: make(map[uuid.UUID]domain.NewsletterIssue)}
}

// Seed registers an issue and enqueues one task per recipient email.
func (m *MockDeliveryQueueRepository) Seed(issue domain.NewsletterIssue, recipients ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.issues[issue.ID] = issue
	now := time.Now().UTC()
	for _, email := range recipients {
		m.tasks = append(m.tasks, &mockQueueEntry{
			task: domain.DeliveryTask{
				NewsletterIssueID: issue.ID,
				SubscriberEmail:   email,
				ExecuteAfter:      now,
				EnqueuedAt:        now,
			},
		})
	}
}

// Remaining reports how many tasks are still queued (claimed or not).
func (m *MockDeliveryQueueRepository) Remaining() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

func (m *MockDeliveryQueueRepository) ClaimTask(ctx context.Context) (TaskClaim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for _, e := range m.tasks {
		if e.locked || e.task.ExecuteAfter.After(now) {
			continue
		}
		e.locked = true
		issue := m.issues[e.task.NewsletterIssueID]
		return &mockTaskClaim{repo: m, entry: e, issue: issue}, nil
	}
	return nil, domain.ErrEmptyQueue
}

type mockTaskClaim struct {
	repo  *MockDeliveryQueueRepository
	entry *mockQueueEntry
	issue domain.NewsletterIssue
}

func (c *mockTaskClaim) Task() *domain.DeliveryTask     { return &c.entry.task }
func (c *mockTaskClaim) Issue() *domain.NewsletterIssue { return &c.issue }

func (c *mockTaskClaim) Delete(ctx context.Context) error {
	c.repo.mu.Lock()
	defer c.repo.mu.Unlock()
	for i, e := range c.repo.tasks {
		if e == c.entry {
			c.repo.tasks = append(c.repo.tasks[:i], c.repo.tasks[i+1:]...)
			break
		}
	}
	return nil
}

func (c *mockTaskClaim) Fail(ctx context.Context, retryIn time.Duration) error {
	c.repo.mu.Lock()
	defer c.repo.mu.Unlock()
	c.entry.task.NAttempts++
	c.entry.task.ExecuteAfter = time.Now().Add(retryIn)
	c.entry.locked = false
	return nil
}

func (c *mockTaskClaim) Release(ctx context.Context) error {
	c.repo.mu.Lock()
	defer c.repo.mu.Unlock()
	c.entry.locked = false
	return nil
}
