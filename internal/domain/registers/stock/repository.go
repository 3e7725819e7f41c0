package stock

import (
	"context"
	"time"
)

// Repository defines persistence for the discrete ledger.
// Mutating methods must run inside the caller's transaction.
type Repository interface {
	// ListEntries returns all rows of a (date, branch) ordered by item code.
	ListEntries(ctx context.Context, date time.Time, branch string) ([]*Entry, error)

	// LockEntries returns existing rows for the codes with a row lock, ordered by item code.
	LockEntries(ctx context.Context, date time.Time, branch string, codes []string) ([]*Entry, error)

	// AddQuantities upserts added += quantity and returns the resulting rows.
	AddQuantities(ctx context.Context, date time.Time, branch string, adds []Addition) ([]*Entry, error)

	// SaveCounters persists returned, transferred and sold of the given rows.
	SaveCounters(ctx context.Context, entries []*Entry) error

	// RecomputeSold sets sold = added − returned − transferred for every row of (date, branch).
	RecomputeSold(ctx context.Context, date time.Time, branch string) (int64, error)
}
