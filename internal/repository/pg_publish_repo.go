package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shiinazuki/zero2prod/internal/domain"
)

type pgPublishRepository struct {
	pool *pgxpool.Pool
}

// NewPgPublishRepository returns a PublishRepository backed by PostgreSQL.
func NewPgPublishRepository(pool *pgxpool.Pool) PublishRepository {
	return &pgPublishRepository{pool: pool}
}

// BeginPublish relies on the unique constraint on (user_id, idempotency_key)
// as the synchronization primitive. The placeholder insert runs inside the
// returned transaction, so it is invisible to other callers until commit;
// a concurrent insert for the same pair parks on Postgres' row-lock wait
// queue until this transaction resolves. ON CONFLICT DO NOTHING turns the
// post-wait conflict into rowsAffected == 0 instead of an error.
func (r *pgPublishRepository) BeginPublish(ctx context.Context, userID uuid.UUID, key domain.IdempotencyKey) (PublishTx, *domain.StoredResponse, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin publish transaction: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		INSERT INTO idempotency (user_id, idempotency_key, created_at)
		VALUES ($1, $2, now())
		ON CONFLICT (user_id, idempotency_key) DO NOTHING`,
		userID, key.String(),
	)
	if err != nil {
		_ = tx.Rollback(ctx)
		return nil, nil, fmt.Errorf("claim idempotency key: %w", err)
	}

	if tag.RowsAffected() > 0 {
		return &pgPublishTx{tx: tx, userID: userID, key: key}, nil, nil
	}

	// Somebody got here first and has already committed. The claim
	// transaction is useless now; fetch the saved response instead.
	_ = tx.Rollback(ctx)

	resp, err := r.savedResponse(ctx, userID, key)
	if err != nil {
		return nil, nil, err
	}
	return nil, resp, nil
}

func (r *pgPublishRepository) savedResponse(ctx context.Context, userID uuid.UUID, key domain.IdempotencyKey) (*domain.StoredResponse, error) {
	var (
		statusCode *int
		headers    []byte
		body       []byte
	)
	err := r.pool.QueryRow(ctx, `
		SELECT response_status_code, response_headers, response_body
		FROM idempotency
		WHERE user_id = $1 AND idempotency_key = $2`,
		userID, key.String(),
	).Scan(&statusCode, &headers, &body)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load saved response: %w", err)
	}
	if statusCode == nil {
		// A committed claim must carry its response; Complete is the only
		// commit path. Anything else is corruption, not a race.
		return nil, fmt.Errorf("idempotency row for key %q has no saved response", key.String())
	}

	resp := &domain.StoredResponse{StatusCode: *statusCode, Body: body}
	if len(headers) > 0 {
		if err := json.Unmarshal(headers, &resp.Headers); err != nil {
			return nil, fmt.Errorf("decode saved headers: %w", err)
		}
	}
	return resp, nil
}

type pgPublishTx struct {
	tx     pgx.Tx
	userID uuid.UUID
	key    domain.IdempotencyKey
	done   bool
}

func (t *pgPublishTx) InsertIssue(ctx context.Context, issue *domain.NewsletterIssue) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO newsletter_issues
			(id, title, html_content, text_content, published_at)
		VALUES ($1, $2, $3, $4, $5)`,
		issue.ID, issue.Title, issue.HTMLContent, issue.TextContent, issue.PublishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert newsletter issue: %w", err)
	}
	return nil
}

func (t *pgPublishTx) EnqueueDeliveryTasks(ctx context.Context, issueID uuid.UUID) (int64, error) {
	// One bulk statement, not a per-subscriber loop, to bound lock duration.
	tag, err := t.tx.Exec(ctx, `
		INSERT INTO issue_delivery_queue (newsletter_issue_id, subscriber_email)
		SELECT $1, email
		FROM subscriptions
		WHERE status = 'confirmed'`,
		issueID,
	)
	if err != nil {
		return 0, fmt.Errorf("enqueue delivery tasks: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (t *pgPublishTx) Complete(ctx context.Context, resp *domain.StoredResponse) error {
	headers, err := json.Marshal(resp.Headers)
	if err != nil {
		return fmt.Errorf("encode response headers: %w", err)
	}

	_, err = t.tx.Exec(ctx, `
		UPDATE idempotency
		SET response_status_code = $3,
		    response_headers     = $4,
		    response_body        = $5
		WHERE user_id = $1 AND idempotency_key = $2`,
		t.userID, t.key.String(), resp.StatusCode, headers, resp.Body,
	)
	if err != nil {
		return fmt.Errorf("save response: %w", err)
	}

	if err := t.tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit publish transaction: %w", err)
	}
	t.done = true
	return nil
}

func (t *pgPublishTx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	return t.tx.Rollback(ctx)
}
