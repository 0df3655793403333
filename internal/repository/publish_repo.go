package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/shiinazuki/zero2prod/internal/domain"
)

// PublishTx is the open database transaction handed out by a successful
// idempotency claim. All writes of one publish operation go through it and
// become durable together on Complete, or not at all.
type PublishTx interface {
	// InsertIssue writes the newsletter issue row.
	InsertIssue(ctx context.Context, issue *domain.NewsletterIssue) error

	// EnqueueDeliveryTasks inserts one delivery task per currently-confirmed
	// subscriber in a single bulk statement and returns how many rows were
	// written. Snapshot semantics: subscribers confirmed later do not
	// retroactively receive this issue.
	EnqueueDeliveryTasks(ctx context.Context, issueID uuid.UUID) (int64, error)

	// Complete stores the response on the idempotency claim and commits.
	// Must be the last call; afterwards the claim replays resp to retries.
	Complete(ctx context.Context, resp *domain.StoredResponse) error

	// Rollback abandons the transaction. The claim row disappears with it,
	// so a future retry with the same key is treated as a fresh attempt.
	// Safe to call after Complete (it becomes a no-op).
	Rollback(ctx context.Context) error
}

// PublishRepository is the idempotency store plus the publish transaction's
// write surface. The pgx implementation is in pg_publish_repo.go; tests use
// a hand-written mock (mock_publish_repo.go).
type PublishRepository interface {
	// BeginPublish claims (userID, key). Exactly one of the two results is
	// non-nil: a PublishTx when the claim is fresh, or the stored response
	// when this key already completed. When a same-key request is mid-flight
	// the call blocks (on the database's row-lock wait queue, not a spin)
	// until that transaction commits or rolls back, then re-evaluates.
	BeginPublish(ctx context.Context, userID uuid.UUID, key domain.IdempotencyKey) (PublishTx, *domain.StoredResponse, error)
}
