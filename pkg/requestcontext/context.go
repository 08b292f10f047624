// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Values are set by middleware and consumed by services. Keeping this package
// free of net/http lets services import only what they need.
//
// Usage in services (read values):
//
//	actor := requestcontext.Actor(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithActor(ctx, testActor)
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"

	id "github.com/texlink-oficial/texlink/pkg/domain"
)

// CallerIdentity is the authenticated actor on a request. BrandID is the zero
// value for actors that are not brand-scoped.
type CallerIdentity struct {
	UserID    id.UserID
	CompanyID string
	BrandID   id.BrandID
}

// IsBrandScoped reports whether the caller acts on behalf of a brand.
func (c CallerIdentity) IsBrandScoped() bool {
	return !c.BrandID.IsNil()
}

type (
	actorKey       struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Exported context keys for tests that need raw context.WithValue.
var (
	ContextKeyActor       = actorKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// Actor retrieves the caller identity from the context. Returns the zero value
// if not set.
func Actor(ctx context.Context) CallerIdentity {
	if actor, ok := ctx.Value(ContextKeyActor).(CallerIdentity); ok {
		return actor
	}
	return CallerIdentity{}
}

// WithActor injects a caller identity into the context.
func WithActor(ctx context.Context, actor CallerIdentity) context.Context {
	return context.WithValue(ctx, ContextKeyActor, actor)
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// Now retrieves the request-scoped time from context. Falls back to time.Now()
// for non-HTTP contexts like workers and tests that don't pin the clock.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context. Useful for service unit
// tests that don't run the full HTTP middleware chain.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
