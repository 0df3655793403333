package repository

import (
	"context"
	"time"

	"github.com/shiinazuki/zero2prod/internal/domain"
)

// TaskClaim is one delivery task held under a row lock. Exactly one of
// Delete, Fail, or Release must be called to resolve the claim; until then
// no other worker can observe the task.
type TaskClaim interface {
	// Task is the claimed queue entry.
	Task() *domain.DeliveryTask
	// Issue is the newsletter issue the task belongs to, fetched together
	// with the claim so sending needs no further reads.
	Issue() *domain.NewsletterIssue

	// Delete removes the task and commits: terminal resolution, used for
	// both successful sends and permanent failures.
	Delete(ctx context.Context) error
	// Fail leaves the task in place for a later pass: the attempt counter
	// is bumped and the task becomes eligible again after retryIn.
	Fail(ctx context.Context, retryIn time.Duration) error
	// Release rolls the claim back untouched (shutdown mid-claim).
	Release(ctx context.Context) error
}

// DeliveryQueueRepository is the dequeue side of the durable delivery queue.
// The pgx implementation claims with FOR UPDATE SKIP LOCKED so any number of
// worker instances can poll concurrently without double-processing a task.
type DeliveryQueueRepository interface {
	// ClaimTask locks and returns the oldest eligible task.
	// Returns domain.ErrEmptyQueue when nothing is eligible.
	ClaimTask(ctx context.Context) (TaskClaim, error)
}
