package manager

import (
	"context"

	sessiondomain "staff-dashboard/internal/session/domain"
)

type ctxKey struct{}

// WithManager returns a context carrying m.
func WithManager(ctx context.Context, m *Manager) context.Context {
	return context.WithValue(ctx, ctxKey{}, m)
}

// FromContext returns the Manager in ctx. It panics with *domain.MisuseError when none is in scope.
func FromContext(ctx context.Context) *Manager {
	m, _ := ctx.Value(ctxKey{}).(*Manager)
	if m == nil {
		panic(&sessiondomain.MisuseError{Op: "FromContext"})
	}
	return m
}
