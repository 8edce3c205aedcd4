package auth

import (
	"context"
)

var principalCtxKey = &contextKey{"principal"}

type contextKey struct {
	name string
}

// WithPrincipal stores the verified caller in ctx
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	if p == nil {
		return ctx
	}
	copied := *p
	return context.WithValue(ctx, principalCtxKey, &copied)
}

// PrincipalFromContext returns a copy of the verified caller stored by WithPrincipal
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	raw, ok := ctx.Value(principalCtxKey).(*Principal)
	if !ok || raw == nil {
		return Principal{}, false
	}
	return *raw, true
}
