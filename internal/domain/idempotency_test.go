package domain_test

import (
	"strings"
	"testing"

	"github.com/shiinazuki/zero2prod/internal/domain"
)

func TestParseIdempotencyKey(t *testing.T) {
	t.Run("valid keys are accepted", func(t *testing.T) {
		for _, raw := range []string{"abc-123", "A", strings.Repeat("x", 50), "0-0-0"} {
			k, err := domain.ParseIdempotencyKey(raw)
			if err != nil {
				t.Fatalf("key %q: unexpected error: %v", raw, err)
			}
			if k.String() != raw {
				t.Fatalf("key %q: round-trip returned %q", raw, k.String())
			}
		}
	})

	t.Run("empty key is rejected", func(t *testing.T) {
		if _, err := domain.ParseIdempotencyKey(""); err != domain.ErrInvalidIdempotencyKey {
			t.Fatalf("expected ErrInvalidIdempotencyKey, got %v", err)
		}
	})

	t.Run("key longer than 50 characters is rejected", func(t *testing.T) {
		if _, err := domain.ParseIdempotencyKey(strings.Repeat("x", 51)); err != domain.ErrInvalidIdempotencyKey {
			t.Fatalf("expected ErrInvalidIdempotencyKey, got %v", err)
		}
	})

	t.Run("forbidden characters are rejected", func(t *testing.T) {
		for _, raw := range []string{"abc 123", "abc_123", "abc.123", "héllo", "a\n"} {
			if _, err := domain.ParseIdempotencyKey(raw); err != domain.ErrInvalidIdempotencyKey {
				t.Fatalf("key %q: expected ErrInvalidIdempotencyKey, got %v", raw, err)
			}
		}
	})
}
