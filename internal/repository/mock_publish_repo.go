package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shiinazuki/zero2prod/internal/domain"
)

// MockPublishRepository is a hand-written, in-memory implementation of
// PublishRepository used in unit tests. It reproduces the database's
// claim semantics: a second same-key claim blocks until the first
// transaction commits or rolls back, then re-evaluates.
type MockPublishRepository struct {
	mu        sync.Mutex
	records   map[claimKey]*mockClaim
	issues    map[uuid.UUID]*domain.NewsletterIssue
	tasks     []domain.DeliveryTask
	confirmed []string

	// Fault injection for atomicity tests.
	FailInsertIssue error
	FailEnqueue     error
	FailComplete    error
}

type claimKey struct {
	userID uuid.UUID
	key    string
}

type mockClaim struct {
	resp *domain.StoredResponse
	done chan struct{}
}

func NewMockPublishRepository() *MockPublishRepository {
	return &MockPublishRepository{
		records: make(map[claimKey]*mockClaim),
		issues:  make(map[uuid.UUID]*domain.NewsletterIssue),
	}
}

// SetConfirmedSubscribers replaces the confirmed-subscriber snapshot source.
func (m *MockPublishRepository) SetConfirmedSubscribers(emails ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.confirmed = append([]string(nil), emails...)
}

func (m *MockPublishRepository) BeginPublish(ctx context.Context, userID uuid.UUID, key domain.IdempotencyKey) (PublishTx, *domain.StoredResponse, error) {
	k := claimKey{userID: userID, key: key.String()}
	for {
		m.mu.Lock()
		rec, ok := m.records[k]
		if !ok {
			rec = &mockClaim{done: make(chan struct{})}
			m.records[k] = rec
			m.mu.Unlock()
			return &mockPublishTx{repo: m, key: k, rec: rec}, nil, nil
		}
		resp := rec.resp
		done := rec.done
		m.mu.Unlock()

		if resp != nil {
			return nil, resp, nil
		}

		// A same-key transaction is in flight; wait for it to resolve,
		// then loop and re-evaluate (replay or fresh claim).
		select {
		case <-done:
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		}
	}
}

// IssueCount reports how many issues have been durably created.
func (m *MockPublishRepository) IssueCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.issues)
}

// Tasks returns a copy of all durably enqueued delivery tasks.
func (m *MockPublishRepository) Tasks() []domain.DeliveryTask {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.DeliveryTask(nil), m.tasks...)
}

// mockPublishTx buffers writes until Complete so a rollback leaves no trace,
// mirroring the real transaction's atomicity.
type mockPublishTx struct {
	repo  *MockPublishRepository
	key   claimKey
	rec   *mockClaim
	issue *domain.NewsletterIssue
	tasks []domain.DeliveryTask
	done  bool
}

func (t *mockPublishTx) InsertIssue(ctx context.Context, issue *domain.NewsletterIssue) error {
	if err := t.repo.FailInsertIssue; err != nil {
		return err
	}
	copied := *issue
	t.issue = &copied
	return nil
}

func (t *mockPublishTx) EnqueueDeliveryTasks(ctx context.Context, issueID uuid.UUID) (int64, error) {
	if err := t.repo.FailEnqueue; err != nil {
		return 0, err
	}
	t.repo.mu.Lock()
	confirmed := append([]string(nil), t.repo.confirmed...)
	t.repo.mu.Unlock()

	now := time.Now().UTC()
	for _, email := range confirmed {
		t.tasks = append(t.tasks, domain.DeliveryTask{
			NewsletterIssueID: issueID,
			SubscriberEmail:   email,
			ExecuteAfter:      now,
			EnqueuedAt:        now,
		})
	}
	return int64(len(confirmed)), nil
}

func (t *mockPublishTx) Complete(ctx context.Context, resp *domain.StoredResponse) error {
	if err := t.repo.FailComplete; err != nil {
		return err
	}
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	if t.issue != nil {
		t.repo.issues[t.issue.ID] = t.issue
	}
	t.repo.tasks = append(t.repo.tasks, t.tasks...)
	t.rec.resp = resp
	close(t.rec.done)
	t.done = true
	return nil
}

func (t *mockPublishTx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	delete(t.repo.records, t.key)
	close(t.rec.done)
	t.done = true
	return nil
}
