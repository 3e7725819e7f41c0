package reports

import (
	"context"
	"fmt"
	"sort"
	"time"

	"bakehouse/internal/core/apperror"
	"bakehouse/internal/core/security"
	"bakehouse/internal/core/tx"
	"bakehouse/internal/core/types"
	"bakehouse/internal/domain/catalogs/item"
	"bakehouse/internal/domain/closing"
)

// MaxExpiringDays bounds the look-ahead window of the expiring report.
const MaxExpiringDays = 365

// FlagLister lists finished scopes of a day.
type FlagLister interface {
	ListFinished(ctx context.Context, date time.Time, branches []string) ([]*closing.Flag, error)
}

// Service provides report generation operations.
type Service struct {
	repo     Repository
	flags    FlagLister
	snapshot tx.Snapshotter
}

// NewService creates a new reports service.
func NewService(repo Repository, flags FlagLister) *Service {
	return &Service{repo: repo, flags: flags}
}

// WithSnapshot makes multi-query reports read one consistent snapshot.
func (s *Service) WithSnapshot(snapshot tx.Snapshotter) *Service {
	s.snapshot = snapshot
	return s
}

func (s *Service) read(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.snapshot == nil {
		return fn(ctx)
	}
	return s.snapshot.Snapshot(ctx, fn)
}

func visibleBranches(ctx context.Context, requested []string) ([]string, error) {
	branches, ok := security.GetScope(ctx).FilterBranches(requested)
	if !ok {
		return nil, apperror.NewForbidden("no access to the requested branches")
	}
	return branches, nil
}

// GetDailySummary builds the per-branch summary of a day.
// Branches without any activity are omitted.
func (s *Service) GetDailySummary(ctx context.Context, filter DailySummaryFilter) (*DailySummary, error) {
	if filter.Date.IsZero() {
		return nil, apperror.NewValidation("date is required").WithDetail("field", "date")
	}
	date := types.TruncateDate(filter.Date)
	branches, err := visibleBranches(ctx, filter.Branches)
	if err != nil {
		return nil, err
	}

	var (
		discrete []DiscreteTotals
		grocery  []GroceryTotals
		machine  []MachineTotals
		flags    []*closing.Flag
	)
	err = s.read(ctx, func(ctx context.Context) error {
		var err error
		if discrete, err = s.repo.DiscreteTotals(ctx, date, branches); err != nil {
			return fmt.Errorf("discrete totals: %w", err)
		}
		if grocery, err = s.repo.GroceryTotals(ctx, date, branches); err != nil {
			return fmt.Errorf("grocery totals: %w", err)
		}
		if machine, err = s.repo.MachineTotals(ctx, date, branches); err != nil {
			return fmt.Errorf("machine totals: %w", err)
		}
		if flags, err = s.flags.ListFinished(ctx, date, branches); err != nil {
			return fmt.Errorf("finished flags: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	byBranch := make(map[string]*BranchSummary)
	get := func(branch string) *BranchSummary {
		bs, ok := byBranch[branch]
		if !ok {
			bs = &BranchSummary{Branch: branch, Finished: []item.Type{}}
			bs.Discrete.SoldValue = types.Zero()
			bs.Grocery.SalesCash = types.Zero()
			bs.Grocery.ReturnsValue = types.Zero()
			bs.Machine.SalesCash = types.Zero()
			byBranch[branch] = bs
		}
		return bs
	}
	for _, d := range discrete {
		get(d.Branch).Discrete = d
	}
	for _, g := range grocery {
		get(g.Branch).Grocery = g
	}
	for _, m := range machine {
		get(m.Branch).Machine = m
	}
	for _, f := range flags {
		bs := get(f.Branch)
		bs.Finished = append(bs.Finished, f.ItemType)
	}

	summary := &DailySummary{Date: date, Branches: make([]BranchSummary, 0, len(byBranch)), TotalCash: types.Zero()}
	for _, bs := range byBranch {
		bs.TotalCash = bs.Discrete.SoldValue.Add(bs.Grocery.SalesCash).Add(bs.Machine.SalesCash)
		sort.Slice(bs.Finished, func(i, j int) bool { return bs.Finished[i] < bs.Finished[j] })
		summary.TotalCash = summary.TotalCash.Add(bs.TotalCash)
		summary.Branches = append(summary.Branches, *bs)
	}
	sort.Slice(summary.Branches, func(i, j int) bool {
		return summary.Branches[i].Branch < summary.Branches[j].Branch
	})
	return summary, nil
}

// GetExpiringBatches lists lots with remaining stock expiring within filter.Days.
// Already expired lots with remaining stock are included.
func (s *Service) GetExpiringBatches(ctx context.Context, filter ExpiringFilter) (*ExpiringReport, error) {
	if filter.Days == 0 {
		filter.Days = DefaultExpiringDays
	}
	if filter.Days < 0 || filter.Days > MaxExpiringDays {
		return nil, apperror.NewValidation(fmt.Sprintf("days must be between 0 and %d", MaxExpiringDays)).
			WithDetail("field", "days")
	}
	if filter.AsOf.IsZero() {
		filter.AsOf = types.Today()
	}
	asOf := types.TruncateDate(filter.AsOf)
	until := asOf.AddDate(0, 0, filter.Days)

	branches, err := visibleBranches(ctx, filter.Branches)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.ExpiringBatches(ctx, until, branches)
	if err != nil {
		return nil, fmt.Errorf("expiring batches: %w", err)
	}
	for i := range items {
		days := int(types.TruncateDate(items[i].ExpiryDate).Sub(asOf).Hours() / 24)
		items[i].DaysLeft = days
		items[i].Expired = days < 0
	}
	if items == nil {
		items = []ExpiringBatch{}
	}

	return &ExpiringReport{AsOf: asOf, Until: until, Items: items}, nil
}
