package reports

import (
	"context"
	"time"
)

// Repository defines report data access interface.
// A nil branches slice means every branch.
type Repository interface {
	DiscreteTotals(ctx context.Context, date time.Time, branches []string) ([]DiscreteTotals, error)
	GroceryTotals(ctx context.Context, date time.Time, branches []string) ([]GroceryTotals, error)
	MachineTotals(ctx context.Context, date time.Time, branches []string) ([]MachineTotals, error)

	// ExpiringBatches returns lots with remaining > 0 and expiry_date <= until.
	ExpiringBatches(ctx context.Context, until time.Time, branches []string) ([]ExpiringBatch, error)
}
