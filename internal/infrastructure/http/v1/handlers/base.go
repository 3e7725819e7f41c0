package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"bakehouse/internal/core/apperror"
	"bakehouse/internal/infrastructure/http/v1/middleware"
)

// BaseHandler carries the binding and response helpers shared by all handlers.
type BaseHandler struct{}

func NewBaseHandler() *BaseHandler {
	return &BaseHandler{}
}

// BindJSON decodes and validates the body. On failure the error is recorded
// and false is returned; the caller just returns.
func (h *BaseHandler) BindJSON(c *gin.Context, obj any) bool {
	return h.bind(c, c.ShouldBindJSON(obj), "invalid request body")
}

// BindQuery is BindJSON for query parameters.
func (h *BaseHandler) BindQuery(c *gin.Context, obj any) bool {
	return h.bind(c, c.ShouldBindQuery(obj), "invalid query parameters")
}

func (h *BaseHandler) bind(c *gin.Context, err error, msg string) bool {
	if err == nil {
		return true
	}
	appErr := apperror.NewValidation(msg)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		appErr = appErr.WithDetail("fields", fields)
	} else {
		appErr = appErr.WithDetail("error", err.Error())
	}
	h.Error(c, appErr)
	return false
}

// Error hands err to middleware.ErrorHandler, which writes the response.
func (h *BaseHandler) Error(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// ParseIntQuery reads an integer query parameter; missing or malformed
// values yield def.
func (h *BaseHandler) ParseIntQuery(c *gin.Context, key string, def int) int {
	if n, err := strconv.Atoi(c.Query(key)); err == nil {
		return n
	}
	return def
}

func (h *BaseHandler) OK(c *gin.Context, data any) {
	h.respond(c, http.StatusOK, data)
}

func (h *BaseHandler) Created(c *gin.Context, data any) {
	h.respond(c, http.StatusCreated, data)
}

// NoContent replays as an empty 204 under an idempotency key.
func (h *BaseHandler) NoContent(c *gin.Context) {
	middleware.CompleteIdempotency(c, http.StatusNoContent, "", nil)
	c.Status(http.StatusNoContent)
}

func (h *BaseHandler) respond(c *gin.Context, status int, data any) {
	middleware.CompleteIdempotency(c, status, "application/json", data)
	c.JSON(status, data)
}
