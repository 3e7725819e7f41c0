// Package branch provides the Branch catalog: bakery and restaurant locations.
package branch

import (
	"context"

	"bakehouse/internal/core/apperror"
	"bakehouse/internal/core/entity"
)

// Branch is a physical location holding its own stock.
type Branch struct {
	entity.Catalog

	Address string `db:"address" json:"address,omitempty"`
}

// NewBranch creates a new Branch.
func NewBranch(code, name, address string) *Branch {
	return &Branch{
		Catalog: entity.NewCatalog(code, name),
		Address: address,
	}
}

// Validate implements entity.Validatable interface.
func (b *Branch) Validate(ctx context.Context) error {
	if err := b.Catalog.Validate(ctx); err != nil {
		return err
	}
	if b.Code == "*" {
		return apperror.NewValidation("branch code is reserved").WithDetail("field", "code")
	}
	return nil
}
