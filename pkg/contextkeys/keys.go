// Package contextkeys declares every request-scoped context value contactbook
// stores, so that producers and consumers agree on one key per value.
//
//	ctx = contextkeys.RequestID.WithValue(ctx, id)
//	id, ok := contextkeys.RequestID.Value(ctx)
//
// Keys for values whose type lives in a package that imports this one
// (the principal and the logger) are declared as Key[any]; the owning
// package asserts the concrete type.
package contextkeys

import (
	"context"
	"time"
)

// Key identifies one context value of type T. Keys of different T never
// collide even when their names match.
type Key[T any] struct {
	name string
}

// String returns the key name
func (k Key[T]) String() string {
	return "contactbook." + k.name
}

// WithValue returns a copy of ctx carrying v under k
func (k Key[T]) WithValue(ctx context.Context, v T) context.Context {
	return context.WithValue(ctx, k, v)
}

// Value returns the value stored under k, if any
func (k Key[T]) Value(ctx context.Context) (T, bool) {
	v, ok := ctx.Value(k).(T)
	return v, ok
}

var (
	// Principal holds the *auth.Principal resolved by middleware.AuthMiddleware
	Principal = Key[any]{name: "principal"}

	// RequestID holds the id set by httputil.RequestIDMiddleware
	RequestID = Key[string]{name: "request_id"}

	// RequestStart holds the time httputil.RequestIDMiddleware saw the request
	RequestStart = Key[time.Time]{name: "request_start"}

	// Logger holds the request *observability.Logger
	Logger = Key[any]{name: "logger"}
)
