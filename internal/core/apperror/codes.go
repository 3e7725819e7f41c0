package apperror

import "net/http"

// Machine-readable error codes returned in the "code" field of error bodies.
const (
	CodeInternal = "INTERNAL_ERROR"

	CodeValidation        = "VALIDATION_ERROR"
	CodeInvalidQuantity   = "INVALID_QUANTITY"
	CodeInsufficientStock = "INSUFFICIENT_STOCK"

	CodeBatchLocked     = "BATCH_LOCKED"
	CodeAlreadyFinished = "ALREADY_FINISHED"

	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeNotFound     = "NOT_FOUND"

	CodeConflict               = "CONFLICT"
	CodeDuplicate              = "DUPLICATE_ENTRY"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"
	CodeIdempotency            = "IDEMPOTENCY_CONFLICT"
)

var statusByCode = map[string]int{
	CodeInternal:               http.StatusInternalServerError,
	CodeValidation:             http.StatusBadRequest,
	CodeInvalidQuantity:        http.StatusUnprocessableEntity,
	CodeInsufficientStock:      http.StatusUnprocessableEntity,
	CodeBatchLocked:            http.StatusLocked,
	CodeAlreadyFinished:        http.StatusConflict,
	CodeUnauthorized:           http.StatusUnauthorized,
	CodeForbidden:              http.StatusForbidden,
	CodeNotFound:               http.StatusNotFound,
	CodeConflict:               http.StatusConflict,
	CodeDuplicate:              http.StatusConflict,
	CodeConcurrentModification: http.StatusConflict,
	CodeIdempotency:            http.StatusConflict,
}

// StatusFor maps a code to its HTTP status; unknown codes map to 500.
func StatusFor(code string) int {
	if s, ok := statusByCode[code]; ok {
		return s
	}
	return http.StatusInternalServerError
}
