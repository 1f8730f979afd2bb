package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/studyflow/supportrelay/internal/models"
	"github.com/studyflow/supportrelay/internal/store"
)

type contextKey string

const UserContextKey contextKey = "user"

// AuthMiddleware resolves opaque session tokens against the user directory.
// The tokens are issued by the platform's auth subsystem; this layer only
// looks them up and trusts the resulting identity and role.
type AuthMiddleware struct {
	dir store.UserDirectory
}

// NewAuthMiddleware creates a new auth middleware.
func NewAuthMiddleware(dir store.UserDirectory) *AuthMiddleware {
	return &AuthMiddleware{dir: dir}
}

// RequireAuth rejects requests without a resolvable identity. The token is
// read from the Authorization header, or from the "token" query parameter
// for websocket upgrades where browsers cannot set headers.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			token = r.URL.Query().Get("token")
		}
		if token == "" {
			jsonError(w, http.StatusUnauthorized, "missing credentials")
			return
		}

		user, err := m.dir.GetUserByToken(r.Context(), token)
		if errors.Is(err, store.ErrNotFound) {
			jsonError(w, http.StatusUnauthorized, "unknown credentials")
			return
		}
		if err != nil {
			jsonError(w, http.StatusServiceUnavailable, "identity lookup failed")
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

func jsonError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// UserFromContext retrieves the authenticated user from the request context.
func UserFromContext(ctx context.Context) *models.User {
	user, ok := ctx.Value(UserContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}
