// Package entity has the fields and checks shared by the catalog entities.
package entity

import (
	"context"
	"time"

	"bakehouse/internal/core/id"
)

// Validatable entities check their own invariants without touching storage.
// Failures are AppErrors.
type Validatable interface {
	Validate(ctx context.Context) error
}

// BaseEntity is the bookkeeping part of every catalog row. Version
// increases on each stored change and guards updates.
type BaseEntity struct {
	ID        id.ID     `db:"id" json:"id"`
	IsActive  bool      `db:"is_active" json:"isActive"`
	Version   int       `db:"version" json:"version"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

func NewBaseEntity() BaseEntity {
	now := time.Now().UTC()
	return BaseEntity{ID: id.New(), IsActive: true, Version: 1, CreatedAt: now, UpdatedAt: now}
}
