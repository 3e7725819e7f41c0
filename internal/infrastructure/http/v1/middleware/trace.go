package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	appctx "bakehouse/internal/core/context"
)

const (
	HeaderRequestID   = "X-Request-ID"
	HeaderTraceID     = "X-Trace-ID"
	HeaderTraceParent = "traceparent"
)

// Trace middleware adds request tracing context.
// The trace ID comes from a W3C traceparent header, then X-Trace-ID, else a fresh one.
func Trace() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		traceID, parentSpan := parseTraceParent(c.GetHeader(HeaderTraceParent))
		if traceID == "" {
			traceID = c.GetHeader(HeaderTraceID)
		}
		if traceID == "" {
			traceID = strings.ReplaceAll(uuid.New().String(), "-", "")
		}

		spanID := parentSpan
		if spanID == "" {
			spanID = strings.ReplaceAll(uuid.New().String(), "-", "")[:16]
		}

		tc := &appctx.TraceContext{
			TraceID:   traceID,
			SpanID:    spanID,
			RequestID: requestID,
		}
		ctx := appctx.WithTrace(c.Request.Context(), tc)
		c.Request = c.Request.WithContext(ctx)

		c.Header(HeaderRequestID, requestID)
		c.Header(HeaderTraceID, traceID)

		c.Next()
	}
}

// parseTraceParent extracts trace and parent span ids from "00-<trace>-<span>-<flags>".
// Malformed or all-zero ids yield empty strings.
func parseTraceParent(h string) (traceID, spanID string) {
	parts := strings.Split(strings.TrimSpace(h), "-")
	if len(parts) != 4 || len(parts[0]) != 2 || parts[0] == "ff" {
		return "", ""
	}
	tid, err := trace.TraceIDFromHex(parts[1])
	if err != nil {
		return "", ""
	}
	sid, err := trace.SpanIDFromHex(parts[2])
	if err != nil {
		return "", ""
	}
	return tid.String(), sid.String()
}
