package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	apperrors "computor-backend/pkg/errors"
)

type principalKey struct{}

// Authenticate resolves the request principal. Authentication itself is an
// external collaborator (SSO plugins terminate upstream); by the time a
// request reaches this process the verified identity rides in the
// X-User-Id header set by the gateway.
func Authenticate() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get("X-User-Id")
			userID, err := uuid.Parse(raw)
			if err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), principalKey{}, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext returns the authenticated principal.
func UserFromContext(ctx context.Context) (uuid.UUID, error) {
	userID, ok := ctx.Value(principalKey{}).(uuid.UUID)
	if !ok {
		return uuid.Nil, apperrors.NewPermissionDenied("no principal")
	}
	return userID, nil
}
