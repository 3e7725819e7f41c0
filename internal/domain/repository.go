// Package domain holds the generic catalog service shared by items and
// branches, and the list types their repositories speak.
package domain

import (
	"context"

	"bakehouse/internal/core/entity"
	"bakehouse/internal/domain/filter"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// ListFilter selects a page of catalog entries.
type ListFilter struct {
	// Search is a case-insensitive substring of code or name.
	Search          string
	Codes           []string
	IncludeInactive bool

	// AdvancedFilters are column conditions; repositories reject columns
	// outside their whitelist.
	AdvancedFilters []filter.Item

	// OrderBy is a column name, "-" prefixed for descending.
	OrderBy string
	Limit   int
	Offset  int
}

func DefaultListFilter() ListFilter {
	return ListFilter{Limit: DefaultListLimit, OrderBy: "name"}
}

// Normalize clamps the page into [1, MaxListLimit] and a non-negative offset.
func (f *ListFilter) Normalize() {
	switch {
	case f.Limit <= 0:
		f.Limit = DefaultListLimit
	case f.Limit > MaxListLimit:
		f.Limit = MaxListLimit
	}
	f.Offset = max(f.Offset, 0)
	if f.OrderBy == "" {
		f.OrderBy = "name"
	}
}

type ListResult[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// CatalogRepository stores entities addressed by their business code.
// Lookups by code see active rows only; ExistsByCode sees all of them.
type CatalogRepository[T entity.Validatable] interface {
	Create(ctx context.Context, entity T) error
	GetByCode(ctx context.Context, code string) (T, error)
	// GetByCodes omits unknown codes instead of failing.
	GetByCodes(ctx context.Context, codes []string) ([]T, error)
	// Update fails with a concurrent modification error on a version mismatch.
	Update(ctx context.Context, entity T) error
	SetActive(ctx context.Context, code string, active bool) error
	List(ctx context.Context, filter ListFilter) (ListResult[T], error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
}
