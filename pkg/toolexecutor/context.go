package toolexecutor

import "context"

type execContextKey struct{}

// WithExecutionContext returns ctx carrying execCtx. Execute does this before
// calling a handler.
func WithExecutionContext(ctx context.Context, execCtx *ExecutionContext) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if execCtx == nil {
		return ctx
	}
	return context.WithValue(ctx, execContextKey{}, execCtx)
}

// ExecutionContextFrom returns the ExecutionContext a handler was invoked
// with, or nil.
func ExecutionContextFrom(ctx context.Context) *ExecutionContext {
	if ctx == nil {
		return nil
	}
	execCtx, _ := ctx.Value(execContextKey{}).(*ExecutionContext)
	return execCtx
}
