package auth

import "context"

type contextKey string

const claimsKey = contextKey("authClaims")

// WithClaims returns a context carrying the verified token claims.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFrom extracts the verified token claims injected by the auth
// middleware.
func ClaimsFrom(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*Claims)
	return claims, ok
}
