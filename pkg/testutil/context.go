package testutil

import (
	"context"
	"net/http"

	"custodia/internal/platform/middleware"
)

// WithUserID adds an authenticated user id to the request context, simulating
// what the auth middleware does for authenticated requests.
func WithUserID(req *http.Request, userID string) *http.Request {
	ctx := context.WithValue(req.Context(), middleware.ContextKeyUserID, userID)
	return req.WithContext(ctx)
}

// WithRole adds an authenticated role to the request context.
func WithRole(req *http.Request, role string) *http.Request {
	ctx := context.WithValue(req.Context(), middleware.ContextKeyRole, role)
	return req.WithContext(ctx)
}

// WithAuth adds both user id and role to the request context, the typical
// state for an authenticated request.
func WithAuth(req *http.Request, userID, role string) *http.Request {
	return WithRole(WithUserID(req, userID), role)
}
