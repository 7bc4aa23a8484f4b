package middleware

import (
	"context"

	"user-admin-service/internal/domain"
	"user-admin-service/internal/security"
)

type contextKey string

const (
	claimsContextKey contextKey = "auth.claims"
	userContextKey   contextKey = "auth.user"
)

func withClaims(ctx context.Context, claims *security.Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

func withUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// ClaimsFromContext returns the access-token claims placed by RequireAuth.
func ClaimsFromContext(ctx context.Context) (*security.Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*security.Claims)
	return claims, ok
}

// UserFromContext returns the re-fetched account placed by BlockGate.
func UserFromContext(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(userContextKey).(*domain.User)
	return user, ok
}
