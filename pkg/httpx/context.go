package httpx

import (
	"context"

	"github.com/aussiebroadwan/grantd/pkg/jwtx"
)

type sessionKey struct{}

// WithSession attaches verified session claims to ctx.
func WithSession(ctx context.Context, c jwtx.Claims) context.Context {
	return context.WithValue(ctx, sessionKey{}, c)
}

// SessionFromContext returns the verified session claims, if any.
func SessionFromContext(ctx context.Context) (jwtx.Claims, bool) {
	c, ok := ctx.Value(sessionKey{}).(jwtx.Claims)
	return c, ok
}

// UserIDFromContext returns the session subject, or "" for anonymous requests.
func UserIDFromContext(ctx context.Context) string {
	c, _ := SessionFromContext(ctx)
	return c.Subject
}

func scopesFromCtx(ctx context.Context) []string {
	c, _ := SessionFromContext(ctx)
	return c.Scopes
}
