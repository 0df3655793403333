package service_test

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shiinazuki/zero2prod/internal/domain"
	"github.com/shiinazuki/zero2prod/internal/repository"
	"github.com/shiinazuki/zero2prod/internal/service"
)

func newPublishService(confirmed ...string) (*service.PublishService, *repository.MockPublishRepository) {
	repo := repository.NewMockPublishRepository()
	repo.SetConfirmedSubscribers(confirmed...)
	return service.NewPublishService(repo, zap.NewNop()), repo
}

var validPublish = domain.PublishRequest{
	Title:          "Issue #1",
	HTMLContent:    "<p>Hello</p>",
	TextContent:    "Hello",
	IdempotencyKey: "abc-123",
}

func TestPublishService_Publish(t *testing.T) {
	svc, repo := newPublishService("ursula@domain.com", "sappho@domain.com")
	ctx := context.Background()

	resp, replayed, err := svc.Publish(ctx, uuid.New(), validPublish)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if replayed {
		t.Fatal("expected replayed=false on first publish")
	}
	if resp.StatusCode != 202 {
		t.Fatalf("expected status 202, got %d", resp.StatusCode)
	}
	if repo.IssueCount() != 1 {
		t.Fatalf("expected exactly 1 issue, got %d", repo.IssueCount())
	}
	if tasks := repo.Tasks(); len(tasks) != 2 {
		t.Fatalf("expected 2 delivery tasks, got %d", len(tasks))
	}
}

func TestPublishService_Publish_RetriesReplayStoredResponse(t *testing.T) {
	svc, repo := newPublishService("ursula@domain.com", "sappho@domain.com")
	ctx := context.Background()
	userID := uuid.New()

	first, _, err := svc.Publish(ctx, userID, validPublish)
	if err != nil {
		t.Fatalf("first publish: %v", err)
	}

	for i := 0; i < 3; i++ {
		resp, replayed, err := svc.Publish(ctx, userID, validPublish)
		if err != nil {
			t.Fatalf("retry %d: %v", i, err)
		}
		if !replayed {
			t.Fatalf("retry %d: expected replayed=true", i)
		}
		if resp.StatusCode != first.StatusCode || !bytes.Equal(resp.Body, first.Body) {
			t.Fatalf("retry %d: response differs from original", i)
		}
	}

	if repo.IssueCount() != 1 {
		t.Fatalf("expected exactly 1 issue after retries, got %d", repo.IssueCount())
	}
	if tasks := repo.Tasks(); len(tasks) != 2 {
		t.Fatalf("expected 2 delivery tasks after retries, got %d", len(tasks))
	}
}

func TestPublishService_Publish_DifferentKeysCreateDistinctIssues(t *testing.T) {
	svc, repo := newPublishService("ursula@domain.com")
	ctx := context.Background()
	userID := uuid.New()

	if _, _, err := svc.Publish(ctx, userID, validPublish); err != nil {
		t.Fatalf("first publish: %v", err)
	}
	second := validPublish
	second.IdempotencyKey = "def-456"
	if _, _, err := svc.Publish(ctx, userID, second); err != nil {
		t.Fatalf("second publish: %v", err)
	}

	if repo.IssueCount() != 2 {
		t.Fatalf("expected 2 issues for distinct keys, got %d", repo.IssueCount())
	}
}

func TestPublishService_Publish_ConcurrentDuplicates(t *testing.T) {
	svc, repo := newPublishService("ursula@domain.com", "sappho@domain.com")
	userID := uuid.New()

	const callers = 8
	responses := make([]*domain.StoredResponse, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			responses[i], _, errs[i] = svc.Publish(context.Background(), userID, validPublish)
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d: unexpected error: %v", i, errs[i])
		}
		if !bytes.Equal(responses[i].Body, responses[0].Body) ||
			responses[i].StatusCode != responses[0].StatusCode {
			t.Fatalf("caller %d: response differs", i)
		}
	}
	if repo.IssueCount() != 1 {
		t.Fatalf("expected exactly 1 issue after concurrent publishes, got %d", repo.IssueCount())
	}
	if tasks := repo.Tasks(); len(tasks) != 2 {
		t.Fatalf("expected 2 delivery tasks, got %d", len(tasks))
	}
}

func TestPublishService_Publish_EnqueueFailureRollsBackEverything(t *testing.T) {
	svc, repo := newPublishService("ursula@domain.com")
	ctx := context.Background()
	userID := uuid.New()

	repo.FailEnqueue = errors.New("connection reset")
	if _, _, err := svc.Publish(ctx, userID, validPublish); err == nil {
		t.Fatal("expected an error when enqueue fails")
	}

	if repo.IssueCount() != 0 {
		t.Fatalf("expected no issue after rollback, got %d", repo.IssueCount())
	}
	if tasks := repo.Tasks(); len(tasks) != 0 {
		t.Fatalf("expected no delivery tasks after rollback, got %d", len(tasks))
	}

	// The key must be free for a fresh attempt.
	repo.FailEnqueue = nil
	_, replayed, err := svc.Publish(ctx, userID, validPublish)
	if err != nil {
		t.Fatalf("retry after rollback: %v", err)
	}
	if replayed {
		t.Fatal("expected a fresh attempt, not a replay, after rollback")
	}
	if repo.IssueCount() != 1 {
		t.Fatalf("expected 1 issue after successful retry, got %d", repo.IssueCount())
	}
}

func TestPublishService_Publish_InvalidInput(t *testing.T) {
	svc, repo := newPublishService("ursula@domain.com")
	ctx := context.Background()

	t.Run("malformed idempotency key", func(t *testing.T) {
		r := validPublish
		r.IdempotencyKey = "not ok!"
		if _, _, err := svc.Publish(ctx, uuid.New(), r); err != domain.ErrInvalidIdempotencyKey {
			t.Fatalf("expected ErrInvalidIdempotencyKey, got %v", err)
		}
	})

	t.Run("missing title", func(t *testing.T) {
		r := validPublish
		r.Title = ""
		if _, _, err := svc.Publish(ctx, uuid.New(), r); err != domain.ErrInvalidTitle {
			t.Fatalf("expected ErrInvalidTitle, got %v", err)
		}
	})

	// Rejected requests never reach the idempotency store.
	if repo.IssueCount() != 0 || len(repo.Tasks()) != 0 {
		t.Fatal("validation failures must not create state")
	}
}
