package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"bakehouse/pkg/logger"
)

// Logger stores log in the request context and writes one access entry per
// request: error level for 5xx, warn for 4xx, debug for probes under /health.
func Logger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		req := c.Request
		c.Request = req.WithContext(logger.WithLogger(req.Context(), log))

		c.Next()

		status := c.Writer.Status()
		kv := []any{
			"method", req.Method,
			"route", c.FullPath(),
			"path", req.URL.Path,
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"bytes", c.Writer.Size(),
			"client_ip", c.ClientIP(),
		}
		if q := req.URL.RawQuery; q != "" {
			kv = append(kv, "query", q)
		}
		if errs := c.Errors.ByType(gin.ErrorTypePrivate).String(); errs != "" {
			kv = append(kv, "error", errs)
		}

		l := log.WithContext(c.Request.Context())
		switch {
		case status >= http.StatusInternalServerError:
			l.Errorw("request", kv...)
		case status >= http.StatusBadRequest:
			l.Warnw("request", kv...)
		case strings.HasPrefix(req.URL.Path, "/health"):
			l.Debugw("request", kv...)
		default:
			l.Infow("request", kv...)
		}
	}
}
