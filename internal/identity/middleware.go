package identity

import (
	"context"
	"net/http"
)

type contextKey int

const userIDKey contextKey = iota

// UserIDFromContext extracts the user ID from the request context.
func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(userIDKey).(string); ok {
		return v
	}
	return ""
}

// WithUser returns a context carrying the given user ID.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// RequireUser rejects requests with 401 when nobody is signed in.
func (m *Manager) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := m.Current()
		if !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"not signed in"}` + "\n"))
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u.ID)))
	})
}
