package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/filevault/filevault/internal/utils"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeyUserID stores the authenticated user ID
	ContextKeyUserID ContextKey = "user_id"
	// ContextKeyUserRole stores the authenticated user's role
	ContextKeyUserRole ContextKey = "user_role"
)

// RequireAuth is middleware that validates a Bearer access token and injects
// the user's ID and role into the request context.
func (s *Server) RequireAuth() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			rawToken, ok := bearerToken(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, "Unauthorized", "Authorization header required")
				return
			}

			introspection, err := s.auth.VerifyAccess(rawToken)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Unauthorized", "Authentication required")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyUserID, utils.Value(introspection.Sub))
			ctx = context.WithValue(ctx, ContextKeyUserRole, introspection.Role)
			next(w, r.WithContext(ctx))
		}
	}
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == authHeader || strings.TrimSpace(token) == "" {
		return "", false
	}
	return token, true
}

// userID returns the authenticated user's ID from the request context.
func userID(r *http.Request) string {
	id, _ := r.Context().Value(ContextKeyUserID).(string)
	return id
}
