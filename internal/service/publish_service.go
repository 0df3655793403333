package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shiinazuki/zero2prod/internal/domain"
	"github.com/shiinazuki/zero2prod/internal/repository"
)

// PublishService runs the publish transaction: idempotency claim, issue row,
// delivery-task fan-out, response persistence. HTTP handlers and the
// delivery worker depend on the repositories, not on each other.
type PublishService struct {
	repo   repository.PublishRepository
	logger *zap.Logger

	onPublished func()
	onReplayed  func()
}

func NewPublishService(repo repository.PublishRepository, logger *zap.Logger) *PublishService {
	return &PublishService{repo: repo, logger: logger}
}

// WithMetricHooks installs counter callbacks invoked on a fresh publish and
// on an idempotent replay. Both may be nil.
func (s *PublishService) WithMetricHooks(onPublished, onReplayed func()) *PublishService {
	s.onPublished = onPublished
	s.onReplayed = onReplayed
	return s
}

// acceptedBody is the JSON payload of a freshly published issue's response.
type acceptedBody struct {
	Message string    `json:"message"`
	IssueID uuid.UUID `json:"issue_id"`
}

// Publish executes one logical publish request for the given principal.
//
// The returned response is what the HTTP layer must write verbatim; replayed
// is true when the response was served from the idempotency store instead of
// re-executing side effects. Repeating the same (principal, key) after the
// first success yields a byte-identical response, exactly one issue, and no
// additional delivery tasks; concurrent duplicates block at the claim until
// the winner resolves, then replay.
func (s *PublishService) Publish(ctx context.Context, userID uuid.UUID, req domain.PublishRequest) (resp *domain.StoredResponse, replayed bool, err error) {
	// Input validation happens before any transaction: a rejected request
	// leaves no idempotency row behind.
	if err := req.Validate(); err != nil {
		return nil, false, err
	}
	key, err := domain.ParseIdempotencyKey(req.IdempotencyKey)
	if err != nil {
		return nil, false, err
	}

	tx, saved, err := s.repo.BeginPublish(ctx, userID, key)
	if err != nil {
		return nil, false, fmt.Errorf("claim publish: %w", err)
	}
	if saved != nil {
		s.logger.Info("replaying stored publish response",
			zap.String("user_id", userID.String()),
			zap.String("idempotency_key", key.String()),
		)
		if s.onReplayed != nil {
			s.onReplayed()
		}
		return saved, true, nil
	}

	// Any failure from here on rolls back the whole transaction: issue,
	// tasks, and the claim disappear together, so the client may retry.
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	issue := &domain.NewsletterIssue{
		ID:          uuid.New(),
		Title:       req.Title,
		HTMLContent: req.HTMLContent,
		TextContent: req.TextContent,
		PublishedAt: time.Now().UTC(),
	}
	if err = tx.InsertIssue(ctx, issue); err != nil {
		return nil, false, err
	}

	recipients, err := tx.EnqueueDeliveryTasks(ctx, issue.ID)
	if err != nil {
		return nil, false, err
	}

	resp, err = acceptedResponse(issue.ID)
	if err != nil {
		return nil, false, err
	}
	if err = tx.Complete(ctx, resp); err != nil {
		return nil, false, err
	}

	s.logger.Info("newsletter issue published",
		zap.String("issue_id", issue.ID.String()),
		zap.String("user_id", userID.String()),
		zap.Int64("recipients", recipients),
	)
	if s.onPublished != nil {
		s.onPublished()
	}
	return resp, false, nil
}

// acceptedResponse is the 202-style acceptance persisted into the
// idempotency store: the issue and its tasks are durably queued, actual
// email arrival is not part of the contract.
func acceptedResponse(issueID uuid.UUID) (*domain.StoredResponse, error) {
	body, err := json.Marshal(acceptedBody{
		Message: "The newsletter issue has been accepted - emails will go out shortly.",
		IssueID: issueID,
	})
	if err != nil {
		return nil, fmt.Errorf("encode publish response: %w", err)
	}
	return &domain.StoredResponse{
		StatusCode: 202,
		Headers: []domain.HeaderPair{
			{Name: "Content-Type", Value: "application/json"},
		},
		Body: body,
	}, nil
}
