package core

import "context"

type requestIDKey struct{}

// WithRequestID attaches a correlation/request id to ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// GetRequestID returns the correlation/request id stashed on ctx, or "".
func GetRequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

type hookExecutingKey struct{}

// WithHookExecuting marks ctx as currently running inside a state-machine
// hook or guard. fsm.Engine.Fire rejects re-entrant calls made from within
// this context, per the reentrancy contract (spec.md 4.B / 5).
func WithHookExecuting(ctx context.Context) context.Context {
	return context.WithValue(ctx, hookExecutingKey{}, true)
}

// HookExecuting reports whether ctx was produced by WithHookExecuting.
func HookExecuting(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	v, _ := ctx.Value(hookExecutingKey{}).(bool)
	return v
}
