package auth

import (
	"context"

	"github.com/platinummonkey/contactbook/pkg/contextkeys"
)

// WithPrincipal attaches principal to ctx
func WithPrincipal(ctx context.Context, principal *Principal) context.Context {
	return contextkeys.Principal.WithValue(ctx, principal)
}

// PrincipalFromContext returns the principal resolved for the current request
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	v, _ := contextkeys.Principal.Value(ctx)
	principal, ok := v.(*Principal)
	if !ok || principal == nil {
		return nil, false
	}
	return principal, true
}
