package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shiinazuki/zero2prod/internal/domain"
)

// Sender abstracts the external mail provider.
// Mocking this interface in tests gives full control over provider behaviour
// without making real HTTP calls.
type Sender interface {
	Send(ctx context.Context, to domain.SubscriberEmail, subject, htmlBody, textBody string) error
}

// sendEmailRequest is the JSON body posted to the provider.
// Field names follow the Postmark single-email API.
type sendEmailRequest struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	HTMLBody string `json:"HtmlBody"`
	TextBody string `json:"TextBody"`
}

// Client delivers email through a Postmark-compatible HTTP API.
// The base URL is injected from config so tests can point to a local mock.
type Client struct {
	baseURL    string
	sender     domain.SubscriberEmail
	authToken  string
	httpClient *http.Client
}

// NewClient builds a Client. timeout bounds every send end to end; a
// provider that hangs must not stall the delivery worker indefinitely.
func NewClient(baseURL string, sender domain.SubscriberEmail, authToken string, timeout time.Duration) *Client {
	return &Client{
		baseURL:   baseURL,
		sender:    sender,
		authToken: authToken,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Send posts one email to the provider. A non-2xx response is returned as a
// *SendError carrying the transient/permanent classification; transport
// errors come back wrapped and are treated as transient by IsTransient.
func (c *Client) Send(ctx context.Context, to domain.SubscriberEmail, subject, htmlBody, textBody string) error {
	body, err := json.Marshal(sendEmailRequest{
		From:     c.sender.String(),
		To:       to.String(),
		Subject:  subject,
		HTMLBody: htmlBody,
		TextBody: textBody,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/email", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Postmark-Server-Token", c.authToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	// Bounded read: provider error bodies are short, never trust them to be.
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return classifyStatus(resp.StatusCode, string(msg))
}

// compile-time check that Client implements Sender
var _ Sender = (*Client)(nil)
