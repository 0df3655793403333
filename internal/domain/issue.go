package domain

import (
	"time"

	"github.com/google/uuid"
)

// NewsletterIssue is one published edition. Immutable after creation;
// exactly one row is created per successful publish transaction.
type NewsletterIssue struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	HTMLContent string    `json:"html_content"`
	TextContent string    `json:"text_content"`
	PublishedAt time.Time `json:"published_at"`
}

// PublishRequest is the inbound payload for publishing an issue.
type PublishRequest struct {
	Title          string `json:"title"`
	HTMLContent    string `json:"html_content"`
	TextContent    string `json:"text_content"`
	IdempotencyKey string `json:"idempotency_key"`
}

const maxTitleLength = 256

func (r *PublishRequest) Validate() error {
	if r.Title == "" || len(r.Title) > maxTitleLength {
		return ErrInvalidTitle
	}
	if r.HTMLContent == "" && r.TextContent == "" {
		return ErrInvalidContent
	}
	return nil
}

// DeliveryTask is one pending (issue, recipient) pair in the durable
// delivery queue. NAttempts and ExecuteAfter gate retries after transient
// provider failures; the row disappears on terminal resolution.
type DeliveryTask struct {
	NewsletterIssueID uuid.UUID
	SubscriberEmail   string
	NAttempts         int
	ExecuteAfter      time.Time
	EnqueuedAt        time.Time
}
