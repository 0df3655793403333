package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shiinazuki/zero2prod/internal/domain"
)

type pgDeliveryQueueRepository struct {
	pool *pgxpool.Pool
}

// NewPgDeliveryQueueRepository returns a DeliveryQueueRepository backed by
// PostgreSQL.
func NewPgDeliveryQueueRepository(pool *pgxpool.Pool) DeliveryQueueRepository {
	return &pgDeliveryQueueRepository{pool: pool}
}

func (r *pgDeliveryQueueRepository) ClaimTask(ctx context.Context) (TaskClaim, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin claim transaction: %w", err)
	}

	var (
		task  domain.DeliveryTask
		issue domain.NewsletterIssue
	)
	// Oldest-first for fairness; SKIP LOCKED so concurrent workers never
	// wait on each other's claims, they just take the next row.
	err = tx.QueryRow(ctx, `
		SELECT q.newsletter_issue_id, q.subscriber_email, q.n_attempts,
		       q.execute_after, q.enqueued_at,
		       i.id, i.title, i.html_content, i.text_content, i.published_at
		FROM issue_delivery_queue q
		JOIN newsletter_issues i ON i.id = q.newsletter_issue_id
		WHERE q.execute_after <= now()
		ORDER BY q.enqueued_at
		LIMIT 1
		FOR UPDATE OF q SKIP LOCKED`,
	).Scan(
		&task.NewsletterIssueID, &task.SubscriberEmail, &task.NAttempts,
		&task.ExecuteAfter, &task.EnqueuedAt,
		&issue.ID, &issue.Title, &issue.HTMLContent, &issue.TextContent, &issue.PublishedAt,
	)
	if err == pgx.ErrNoRows {
		_ = tx.Rollback(ctx)
		return nil, domain.ErrEmptyQueue
	}
	if err != nil {
		_ = tx.Rollback(ctx)
		return nil, fmt.Errorf("claim delivery task: %w", err)
	}

	return &pgTaskClaim{tx: tx, task: task, issue: issue}, nil
}

type pgTaskClaim struct {
	tx    pgx.Tx
	task  domain.DeliveryTask
	issue domain.NewsletterIssue
}

func (c *pgTaskClaim) Task() *domain.DeliveryTask     { return &c.task }
func (c *pgTaskClaim) Issue() *domain.NewsletterIssue { return &c.issue }

func (c *pgTaskClaim) Delete(ctx context.Context) error {
	_, err := c.tx.Exec(ctx, `
		DELETE FROM issue_delivery_queue
		WHERE newsletter_issue_id = $1 AND subscriber_email = $2`,
		c.task.NewsletterIssueID, c.task.SubscriberEmail,
	)
	if err != nil {
		_ = c.tx.Rollback(ctx)
		return fmt.Errorf("delete delivery task: %w", err)
	}
	if err := c.tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit task deletion: %w", err)
	}
	return nil
}

func (c *pgTaskClaim) Fail(ctx context.Context, retryIn time.Duration) error {
	_, err := c.tx.Exec(ctx, `
		UPDATE issue_delivery_queue
		SET n_attempts = n_attempts + 1,
		    execute_after = now() + $3
		WHERE newsletter_issue_id = $1 AND subscriber_email = $2`,
		c.task.NewsletterIssueID, c.task.SubscriberEmail, retryIn,
	)
	if err != nil {
		// Roll back rather than leak the lock; the task stays due now.
		_ = c.tx.Rollback(ctx)
		return fmt.Errorf("reschedule delivery task: %w", err)
	}
	if err := c.tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit task reschedule: %w", err)
	}
	return nil
}

func (c *pgTaskClaim) Release(ctx context.Context) error {
	return c.tx.Rollback(ctx)
}
