package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bakehouse/internal/core/apperror"
	appctx "bakehouse/internal/core/context"
	"bakehouse/pkg/logger"
)

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ErrorHandler renders the last error recorded on the gin context.
// AppErrors keep their code, message and details; anything else becomes a
// generic 500 carrying only the request id.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		ctx := c.Request.Context()
		status, body := render(c, c.Errors.Last().Err)
		failIdempotency(c, status, body)
		c.JSON(status, body)

		if status >= http.StatusInternalServerError {
			logger.Error(ctx, "request failed", "status", status, "error", c.Errors.Last().Err)
		}
	}
}

func render(c *gin.Context, err error) (int, ErrorResponse) {
	if appErr, ok := apperror.AsAppError(err); ok {
		if appErr.Err != nil && appErr.HTTPStatus < http.StatusInternalServerError {
			logger.Warn(c.Request.Context(), "request rejected", "code", appErr.Code, "cause", appErr.Err)
		}
		return appErr.HTTPStatus, ErrorResponse{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: appErr.Details,
		}
	}

	resp := ErrorResponse{Code: apperror.CodeInternal, Message: "Internal server error"}
	if tc := appctx.GetTrace(c.Request.Context()); tc != nil {
		resp.Details = map[string]any{"request_id": tc.RequestID}
	}
	return http.StatusInternalServerError, resp
}
