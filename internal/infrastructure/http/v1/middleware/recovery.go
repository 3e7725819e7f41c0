package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"bakehouse/internal/core/apperror"
	appctx "bakehouse/internal/core/context"
	"bakehouse/pkg/logger"
)

// Recovery turns a handler panic into an INTERNAL_ERROR response.
// The stack goes to the log only.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			ctx := c.Request.Context()
			logger.Error(ctx, "panic recovered",
				"panic", rec,
				"method", c.Request.Method,
				"path", c.FullPath(),
				"stack", string(debug.Stack()),
			)

			appErr := apperror.NewInternal(fmt.Errorf("panic: %v", rec))
			if tr := appctx.GetTrace(ctx); tr != nil {
				appErr = appErr.WithDetail("request_id", tr.RequestID)
			}
			_ = c.Error(appErr)
			c.Abort()
		}()
		c.Next()
	}
}
