package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shiinazuki/zero2prod/internal/domain"
)

type pgSubscriberRepository struct {
	pool *pgxpool.Pool
}

// NewPgSubscriberRepository returns a SubscriberRepository backed by PostgreSQL.
func NewPgSubscriberRepository(pool *pgxpool.Pool) SubscriberRepository {
	return &pgSubscriberRepository{pool: pool}
}

func (r *pgSubscriberRepository) CreateSubscriber(ctx context.Context, sub *domain.Subscriber, confirmationToken string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin subscribe transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx, `
		INSERT INTO subscriptions (id, email, name, status, subscribed_at)
		VALUES ($1, $2, $3, $4, $5)`,
		sub.ID, sub.Email, sub.Name, sub.Status, sub.SubscribedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return domain.ErrAlreadySubscribed
		}
		return fmt.Errorf("insert subscriber: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO subscription_tokens (subscription_token, subscriber_id)
		VALUES ($1, $2)`,
		confirmationToken, sub.ID,
	)
	if err != nil {
		return fmt.Errorf("insert subscription token: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit subscribe transaction: %w", err)
	}
	return nil
}

func (r *pgSubscriberRepository) ConfirmByToken(ctx context.Context, token string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE subscriptions
		SET status = 'confirmed'
		WHERE id = (
			SELECT subscriber_id FROM subscription_tokens
			WHERE subscription_token = $1
		)`,
		token,
	)
	if err != nil {
		return fmt.Errorf("confirm subscriber: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUnknownToken
	}
	return nil
}
