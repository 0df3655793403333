package domain_test

import (
	"strings"
	"testing"

	"github.com/shiinazuki/zero2prod/internal/domain"
)

func TestPublishRequest_Validate(t *testing.T) {
	valid := domain.PublishRequest{
		Title:          "Issue #1",
		HTMLContent:    "<p>Hello</p>",
		TextContent:    "Hello",
		IdempotencyKey: "abc-123",
	}

	t.Run("valid request passes", func(t *testing.T) {
		if err := valid.Validate(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("empty title", func(t *testing.T) {
		r := valid
		r.Title = ""
		if err := r.Validate(); err != domain.ErrInvalidTitle {
			t.Fatalf("expected ErrInvalidTitle, got %v", err)
		}
	})

	t.Run("title too long", func(t *testing.T) {
		r := valid
		r.Title = strings.Repeat("x", 257)
		if err := r.Validate(); err != domain.ErrInvalidTitle {
			t.Fatalf("expected ErrInvalidTitle, got %v", err)
		}
	})

	t.Run("no content at all", func(t *testing.T) {
		r := valid
		r.HTMLContent = ""
		r.TextContent = ""
		if err := r.Validate(); err != domain.ErrInvalidContent {
			t.Fatalf("expected ErrInvalidContent, got %v", err)
		}
	})

	t.Run("text-only content passes", func(t *testing.T) {
		r := valid
		r.HTMLContent = ""
		if err := r.Validate(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})
}

func TestSubscribeRequest_Validate(t *testing.T) {
	valid := domain.SubscribeRequest{Name: "Ursula Le Guin", Email: "ursula@domain.com"}

	t.Run("valid request passes", func(t *testing.T) {
		if err := valid.Validate(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("empty name", func(t *testing.T) {
		r := valid
		r.Name = ""
		if err := r.Validate(); err != domain.ErrInvalidName {
			t.Fatalf("expected ErrInvalidName, got %v", err)
		}
	})

	t.Run("bad email", func(t *testing.T) {
		r := valid
		r.Email = "ursuladomain.com"
		if err := r.Validate(); err != domain.ErrInvalidEmail {
			t.Fatalf("expected ErrInvalidEmail, got %v", err)
		}
	})
}
