// Package requestcontext carries request-scoped values through
// context.Context. Middleware writes them and services read them, so service
// code never needs net/http to know which request it is serving.
//
// Tests set values directly:
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"
)

type key uint8

const (
	requestIDKey key = iota
	requestTimeKey
	clientIPKey
	userAgentKey
	adminActorKey
)

func get[T any](ctx context.Context, k key) (T, bool) {
	v, ok := ctx.Value(k).(T)
	return v, ok
}

func text(ctx context.Context, k key) string {
	s, _ := get[string](ctx, k)
	return s
}

func RequestID(ctx context.Context) string { return text(ctx, requestIDKey) }
func ClientIP(ctx context.Context) string  { return text(ctx, clientIPKey) }
func UserAgent(ctx context.Context) string { return text(ctx, userAgentKey) }

// AdminActorID is the operator id the admin middleware accepted.
func AdminActorID(ctx context.Context) string { return text(ctx, adminActorKey) }

// Now is the time pinned for this request. Outside a request (workers,
// scheduled jobs) it is the wall clock.
func Now(ctx context.Context) time.Time {
	if t, ok := get[time.Time](ctx, requestTimeKey); ok {
		return t
	}
	return time.Now()
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey, t)
}

func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	ctx = context.WithValue(ctx, clientIPKey, clientIP)
	return context.WithValue(ctx, userAgentKey, userAgent)
}

func WithAdminActorID(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, adminActorKey, actorID)
}

