package middleware

import (
	"context"

	"github.com/gatherly-app/gatherly-backend/pkg/types"
)

type contextKey string

const ctxScope contextKey = "scope"

// ScopeFromContext returns the caller scope seeded by the auth middleware.
// A zero scope means the request was not authenticated.
func ScopeFromContext(ctx context.Context) types.Scope {
	if ctx == nil {
		return types.Scope{}
	}
	if scope, ok := ctx.Value(ctxScope).(types.Scope); ok {
		return scope
	}
	return types.Scope{}
}

func WithScope(ctx context.Context, scope types.Scope) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxScope, scope)
}
