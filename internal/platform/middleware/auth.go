package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

// JWTValidator defines the interface for validating JWT tokens. Identity and
// role resolution are external; the ledger only trusts the validated claims.
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims represents the claims we expect from the JWT validator.
type JWTClaims struct {
	UserID string
	Role   string
}

type contextKeyUserID struct{}
type contextKeyRole struct{}

// Context keys, exported for use in handlers and tests.
var (
	ContextKeyUserID = contextKeyUserID{}
	ContextKeyRole   = contextKeyRole{}
)

// GetUserID retrieves the authenticated user id from the context.
func GetUserID(ctx context.Context) string {
	userID, ok := ctx.Value(ContextKeyUserID).(string)
	if !ok {
		return ""
	}
	return userID
}

// GetRole retrieves the authenticated role from the context.
func GetRole(ctx context.Context) string {
	role, ok := ctx.Value(ContextKeyRole).(string)
	if !ok {
		return ""
	}
	return role
}

func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + errCode + `","error_description":"` + errDesc + `"}`))
}

// RequireAuth rejects requests without a valid bearer token and injects the
// authenticated identity into the request context.
func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			const bearerPrefix = "Bearer "
			token, ok := strings.CutPrefix(authHeader, bearerPrefix)
			if !ok {
				logger.WarnContext(r.Context(), "unauthorized access - missing token",
					"request_id", GetRequestID(r.Context()),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(r.Context(), "unauthorized access - invalid token",
					"error", err,
					"request_id", GetRequestID(r.Context()),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
				return
			}

			ctx := r.Context()
			ctx = context.WithValue(ctx, ContextKeyUserID, claims.UserID)
			ctx = context.WithValue(ctx, ContextKeyRole, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
