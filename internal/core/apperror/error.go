// Package apperror defines the error type every API-visible failure is
// expressed in. The HTTP layer renders Code, Message and Details; Err
// stays server-side.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type AppError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`

	HTTPStatus int   `json:"-"`
	Err        error `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return e.Code + ": " + e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail sets one detail key and returns e for chaining.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any, 1)
	}
	e.Details[key] = value
	return e
}

func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// newError builds an AppError whose status follows from code.
// kv is a flat list of detail key/value pairs.
func newError(code, message string, kv ...any) *AppError {
	e := &AppError{Code: code, Message: message, HTTPStatus: StatusFor(code)}
	for i := 0; i+1 < len(kv); i += 2 {
		e.WithDetail(kv[i].(string), kv[i+1])
	}
	return e
}

func NewValidation(message string) *AppError {
	return newError(CodeValidation, message)
}

func NewNotFound(entity string, key any) *AppError {
	return newError(CodeNotFound, entity+" not found", "entity", entity, "id", key)
}

// NewInvalidQuantity covers zero, negative and fractional quantities and
// remaining figures above what is on hand.
func NewInvalidQuantity(itemCode, message string) *AppError {
	return newError(CodeInvalidQuantity, message, "item_code", itemCode)
}

// NewInsufficientStock takes display strings so whole and 3-decimal
// quantities both render exactly.
func NewInsufficientStock(itemCode, requested, available string) *AppError {
	return newError(CodeInsufficientStock,
		fmt.Sprintf("insufficient stock for item %s: requested %s, available %s", itemCode, requested, available),
		"item_code", itemCode, "requested", requested, "available", available)
}

// NewBatchLocked rejects a mutation of a finished (date, branch, item type) scope.
func NewBatchLocked(date, branch, itemType string) *AppError {
	return newError(CodeBatchLocked,
		fmt.Sprintf("batch for %s at %s (%s) is finished and locked", date, branch, itemType),
		"date", date, "branch", branch, "item_type", itemType)
}

// NewAlreadyFinished rejects a second finish of the same scope.
func NewAlreadyFinished(date, branch, itemType string) *AppError {
	return newError(CodeAlreadyFinished,
		fmt.Sprintf("batch for %s at %s (%s) is already finished", date, branch, itemType),
		"date", date, "branch", branch, "item_type", itemType)
}

func NewConcurrentModification(entity string, key any) *AppError {
	return newError(CodeConcurrentModification,
		"record was modified concurrently, reload and retry",
		"entity", entity, "id", key)
}

// NewInternal hides err from the client; it is logged by the error middleware.
func NewInternal(err error) *AppError {
	return newError(CodeInternal, "Internal server error").WithCause(err)
}

func NewUnauthorized(message string) *AppError {
	return newError(CodeUnauthorized, message)
}

func NewForbidden(message string) *AppError {
	return newError(CodeForbidden, message)
}

// NewIdempotencyConflict means the key is held by a request still in flight.
func NewIdempotencyConflict(key string) *AppError {
	return newError(CodeIdempotency, "request with this idempotency key is in progress", "idempotency_key", key)
}

// NewIdempotencyMismatch means the key was reused for a different request.
func NewIdempotencyMismatch(key string) *AppError {
	return newError(CodeIdempotency, "idempotency key reused for a different request", "idempotency_key", key)
}

func NewConflict(message string) *AppError {
	return newError(CodeConflict, message)
}

func NewDuplicate(entity, field, value string) *AppError {
	return newError(CodeDuplicate, fmt.Sprintf("%s with this %s already exists", entity, field),
		"entity", entity, "field", field, "value", value)
}

func IsAppError(err error) bool {
	_, ok := AsAppError(err)
	return ok
}

// AsAppError finds the first AppError in err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// HasCode reports whether err's chain holds an AppError with code.
func HasCode(err error, code string) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}

func IsNotFound(err error) bool {
	return HasCode(err, CodeNotFound)
}
