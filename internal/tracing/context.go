// Package tracing carries per-request correlation IDs through a
// context.Context and into log lines and OpenTelemetry spans.
package tracing

import (
	"context"

	"github.com/google/uuid"
)

type scopeKey struct{}

// TraceContext is the set of correlation IDs attached to a request.
//
// TraceID spans a whole HTTP request or WebSocket frame, RunID a single
// agent turn and ClientID the transport connection the request arrived on.
type TraceContext struct {
	TraceID  string
	RunID    string
	ClientID string
}

// NewTraceID generates a new trace ID
func NewTraceID() string {
	return uuid.NewString()
}

// NewRunID generates a new run ID
func NewRunID() string {
	return uuid.NewString()
}

// FromContext returns a copy of the IDs stored in ctx. It never returns nil.
func FromContext(ctx context.Context) *TraceContext {
	tc := scope(ctx)
	return &tc
}

func scope(ctx context.Context) TraceContext {
	if ctx == nil {
		return TraceContext{}
	}
	tc, _ := ctx.Value(scopeKey{}).(TraceContext)
	return tc
}

func withScope(ctx context.Context, update func(*TraceContext)) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	tc := scope(ctx)
	update(&tc)
	return context.WithValue(ctx, scopeKey{}, tc)
}

func WithTraceID(ctx context.Context, traceID string) context.Context {
	return withScope(ctx, func(tc *TraceContext) { tc.TraceID = traceID })
}

func WithRunID(ctx context.Context, runID string) context.Context {
	return withScope(ctx, func(tc *TraceContext) { tc.RunID = runID })
}

func WithClientID(ctx context.Context, clientID string) context.Context {
	return withScope(ctx, func(tc *TraceContext) { tc.ClientID = clientID })
}

func GetTraceID(ctx context.Context) string  { return scope(ctx).TraceID }
func GetRunID(ctx context.Context) string    { return scope(ctx).RunID }
func GetClientID(ctx context.Context) string { return scope(ctx).ClientID }

// NewRequestContext starts a fresh trace on ctx, keeping any client ID.
func NewRequestContext(ctx context.Context) context.Context {
	return WithTraceID(ctx, NewTraceID())
}
