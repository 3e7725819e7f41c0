package entity

import (
	"context"
	"strings"

	"bakehouse/internal/core/apperror"
)

const maxCodeLen = 64

// Catalog is an entry addressed by a unique business code.
type Catalog struct {
	BaseEntity
	Code string `db:"code" json:"code"`
	Name string `db:"name" json:"name"`
}

// NewCatalog trims code and name.
func NewCatalog(code, name string) Catalog {
	return Catalog{
		BaseEntity: NewBaseEntity(),
		Code:       strings.TrimSpace(code),
		Name:       strings.TrimSpace(name),
	}
}

func (c *Catalog) Validate(context.Context) error {
	switch {
	case c.Code == "":
		return fieldError("code", "code is required")
	case len(c.Code) > maxCodeLen:
		return fieldError("code", "code must be at most 64 characters")
	case strings.TrimSpace(c.Name) == "":
		return fieldError("name", "name is required")
	}
	return nil
}

func fieldError(field, msg string) error {
	return apperror.NewValidation(msg).WithDetail("field", field)
}
