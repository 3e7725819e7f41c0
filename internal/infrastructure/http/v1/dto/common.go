// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"encoding/json"
	"time"

	"bakehouse/internal/core/types"
)

// --- List Response ---

// ListResponse wraps list results with pagination.
type ListResponse struct {
	Items      any   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// --- Wire helpers ---

// Money renders a monetary value as a JSON number with two decimals.
func Money(m types.Money) json.Number {
	return json.Number(m.StringFixed(2))
}

// Date renders a ledger date as YYYY-MM-DD.
func Date(t time.Time) string {
	return types.FormatDate(t)
}

// OptionalTime returns nil for the zero time.
func OptionalTime(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	return t
}

// ParseDate parses an optional YYYY-MM-DD value; empty yields the zero time.
// Binding already rejected malformed values via the isodate tag.
func ParseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := types.ParseDate(s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// BatchStatusResponse is the finished-flag state of a scope.
type BatchStatusResponse struct {
	Date       string     `json:"date"`
	Branch     string     `json:"branch"`
	ItemType   string     `json:"itemType"`
	IsFinished bool       `json:"isFinished"`
	FinishedAt *time.Time `json:"finishedAt"`
	FinishedBy string     `json:"finishedBy,omitempty"`
}

// FinishBatchRequest closes a (date, branch) scope.
type FinishBatchRequest struct {
	Date   string `json:"date" binding:"required,isodate"`
	Branch string `json:"branch" binding:"required"`
}

// ScopeQuery addresses a (date, branch) scope in query parameters.
type ScopeQuery struct {
	Date   string `form:"date" binding:"required,isodate"`
	Branch string `form:"branch" binding:"required"`
}
