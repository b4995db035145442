// internal/middleware/identity.go
package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ecanturk/taskforge/internal/models"
	"github.com/ecanturk/taskforge/internal/repository"
)

type contextKey string

const userContextKey contextKey = "authenticated_user"

// IdentityExtractor resolves the authenticated caller for each request and
// stores it in the request context. Token issuance and validation live in
// the external auth layer; by the time a request reaches this service the
// gateway has verified the token and forwards the subject in X-User-ID.
type IdentityExtractor struct {
	users *repository.UserRepository
}

func NewIdentityExtractor(users *repository.UserRepository) *IdentityExtractor {
	return &IdentityExtractor{
		users: users,
	}
}

// Handler rejects requests without a resolvable, active user.
func (e *IdentityExtractor) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get("X-User-ID")
		if raw == "" {
			writeJSONError(w, http.StatusUnauthorized, "missing X-User-ID header")
			return
		}

		id, err := uuid.Parse(raw)
		if err != nil {
			writeJSONError(w, http.StatusUnauthorized, "invalid user ID")
			return
		}

		user, err := e.users.GetByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				writeJSONError(w, http.StatusUnauthorized, "unknown user")
				return
			}
			writeJSONError(w, http.StatusInternalServerError, "failed to resolve user")
			return
		}
		if !user.IsActive {
			writeJSONError(w, http.StatusUnauthorized, "account disabled")
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserFromContext extracts the authenticated user set by the extractor.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(userContextKey).(*models.User)
	return user, ok
}

// ContextWithUser injects a user directly. Intended for tests and trusted
// internal callers that bypass the HTTP layer.
func ContextWithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": message})
}
