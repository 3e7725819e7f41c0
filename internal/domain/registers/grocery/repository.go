package grocery

import (
	"context"

	"bakehouse/internal/core/types"
)

// Repository defines persistence for the batch-expiry ledger.
// Mutating methods must run inside the caller's transaction.
type Repository interface {
	InsertBatches(ctx context.Context, batches ...*Batch) error

	// LockBatches returns every lot of (branch, item) with a row lock,
	// ordered by expiry date, added date, id.
	LockBatches(ctx context.Context, branch, itemCode string) ([]*Batch, error)

	// SaveRemaining persists Remaining of the given lots.
	SaveRemaining(ctx context.Context, batches []*Batch) error

	ListBatches(ctx context.Context, f BatchFilter) ([]*Batch, error)
	SumRemaining(ctx context.Context, branch, itemCode string) (types.Quantity, error)

	InsertSale(ctx context.Context, s *Sale) error
	InsertReturn(ctx context.Context, r *Return) error
	ListSales(ctx context.Context, f RecordFilter) ([]*Sale, error)
	ListReturns(ctx context.Context, f RecordFilter) ([]*Return, error)
}
