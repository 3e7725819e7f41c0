package context

import "context"

// TraceContext identifies a request across logs, responses and spans.
// TraceID and SpanID follow W3C trace-context when the caller sent a traceparent.
type TraceContext struct {
	TraceID   string
	SpanID    string
	RequestID string
}

type traceContextKey struct{}

// WithTrace attaches t to ctx.
func WithTrace(ctx context.Context, t *TraceContext) context.Context {
	return context.WithValue(ctx, traceContextKey{}, t)
}

// GetTrace returns the request's trace identifiers, or nil outside a request.
func GetTrace(ctx context.Context) *TraceContext {
	t, _ := ctx.Value(traceContextKey{}).(*TraceContext)
	return t
}
