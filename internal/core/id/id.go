// Package id generates row identifiers. Ledger rows, lots, transfers and
// outbox messages use UUIDv7, so primary key order follows insertion time.
package id

import "github.com/google/uuid"

// ID identifies a stored row.
type ID = uuid.UUID

// New returns a UUIDv7. It falls back to a random UUID only if the
// clock-based generator fails.
func New() ID {
	v, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return v
}
