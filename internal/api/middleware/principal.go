package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/shiinazuki/zero2prod/internal/domain"
)

const userIDKey contextKey = "user_id"

// RequirePrincipal extracts the authenticated user from the X-User-ID
// header, set by the auth proxy in front of this service. Requests
// without a valid UUID are rejected with 401 before reaching handlers,
// so downstream code can always assume a principal is present.
func RequirePrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get("X-User-ID")
		if raw == "" {
			http.Error(w, domain.ErrMissingPrincipal.Error(), http.StatusUnauthorized)
			return
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			http.Error(w, domain.ErrMissingPrincipal.Error(), http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUserID returns the principal stored by RequirePrincipal.
// The boolean is false when the middleware was not applied to the route.
func GetUserID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userIDKey).(uuid.UUID)
	return id, ok
}
