package types

import "context"

// contextKey is used for storing values in context.Context.
type contextKey string

const (
	keyCollectorID contextKey = "collector_id"
	keyRunID       contextKey = "run_id"
	keyStep        contextKey = "step"
	keyRequestID   contextKey = "request_id"
)

// WithCollectorID adds the collector identity to context.
func WithCollectorID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, keyCollectorID, id)
}

// CollectorID extracts the collector identity from context.
func CollectorID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyCollectorID).(string)
	return v, ok && v != ""
}

// WithRunID adds workflow run ID to context.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, keyRunID, runID)
}

// RunID extracts workflow run ID from context.
func RunID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyRunID).(string)
	return v, ok && v != ""
}

// WithStep adds the executing workflow step to context.
func WithStep(ctx context.Context, step string) context.Context {
	return context.WithValue(ctx, keyStep, step)
}

// Step extracts the executing workflow step from context.
func Step(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyStep).(string)
	return v, ok && v != ""
}

// WithRequestID adds HTTP request ID to context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, keyRequestID, requestID)
}

// RequestID extracts HTTP request ID from context.
func RequestID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyRequestID).(string)
	return v, ok && v != ""
}
