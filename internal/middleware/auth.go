package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"greekmatch-backend/internal/services"
)

type contextKey string

const (
	userIDKey contextKey = "user_id"
	tokenKey  contextKey = "token"
)

// TokenValidator checks a bearer token and returns its claims
type TokenValidator interface {
	Validate(ctx context.Context, token string) (*services.Claims, error)
}

// AuthMiddleware rejects requests without a valid bearer token and puts the
// caller's user id into the request context
func AuthMiddleware(auth TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				respondError(w, "missing or malformed bearer token", http.StatusUnauthorized)
				return
			}

			claims, err := auth.Validate(r.Context(), token)
			if err != nil {
				respondError(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), claims.Subject, token)))
		})
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// WithUser stores the authenticated user id and raw token in ctx
func WithUser(ctx context.Context, userID, token string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, tokenKey, token)
}

// GetUserID returns the authenticated user id, or "" outside AuthMiddleware
func GetUserID(ctx context.Context) string {
	userID, _ := ctx.Value(userIDKey).(string)
	return userID
}

// GetToken extracts the raw bearer token from context
func GetToken(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey).(string)
	return token
}

// ValidateWebSocketToken resolves the ?token= query value of a WebSocket upgrade
func ValidateWebSocketToken(ctx context.Context, token string, auth TokenValidator) (string, error) {
	if token == "" {
		return "", services.ErrUnauthorized
	}
	claims, err := auth.Validate(ctx, token)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

func respondError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
