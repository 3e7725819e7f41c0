package reports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bakehouse/internal/core/apperror"
	appctx "bakehouse/internal/core/context"
	"bakehouse/internal/core/types"
	"bakehouse/internal/domain/catalogs/item"
	"bakehouse/internal/domain/closing"
)

type fakeRepo struct {
	discrete []DiscreteTotals
	grocery  []GroceryTotals
	machine  []MachineTotals
	expiring []ExpiringBatch

	gotBranches []string
	gotUntil    time.Time
}

func (f *fakeRepo) DiscreteTotals(_ context.Context, _ time.Time, branches []string) ([]DiscreteTotals, error) {
	f.gotBranches = branches
	return f.discrete, nil
}

func (f *fakeRepo) GroceryTotals(context.Context, time.Time, []string) ([]GroceryTotals, error) {
	return f.grocery, nil
}

func (f *fakeRepo) MachineTotals(context.Context, time.Time, []string) ([]MachineTotals, error) {
	return f.machine, nil
}

func (f *fakeRepo) ExpiringBatches(_ context.Context, until time.Time, branches []string) ([]ExpiringBatch, error) {
	f.gotUntil = until
	f.gotBranches = branches
	return f.expiring, nil
}

type fakeFlags []*closing.Flag

func (f fakeFlags) ListFinished(context.Context, time.Time, []string) ([]*closing.Flag, error) {
	return f, nil
}

var day = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func adminCtx() context.Context {
	return appctx.WithUser(context.Background(), &appctx.UserContext{UserID: "admin", IsAdmin: true})
}

func TestGetDailySummary(t *testing.T) {
	repo := &fakeRepo{
		discrete: []DiscreteTotals{{Branch: "Main", Items: 2, Added: 100, Sold: 80, SoldValue: types.MustMoney("200")}},
		grocery:  []GroceryTotals{{Branch: "Main", SoldQty: types.NewQuantityFromUnits(3), SalesCash: types.MustMoney("6"), ReturnsValue: types.Zero()}},
		machine:  []MachineTotals{{Branch: "Harbor", Batches: 1, SoldQty: 40, SalesCash: types.MustMoney("50")}},
	}
	flags := fakeFlags{
		{Date: day, Branch: "Main", ItemType: item.TypeNormal},
		{Date: day, Branch: "Main", ItemType: item.TypeGrocery},
	}
	svc := NewService(repo, flags)

	sum, err := svc.GetDailySummary(adminCtx(), DailySummaryFilter{Date: day.Add(5 * time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, day, sum.Date)
	assert.Nil(t, repo.gotBranches)

	require.Len(t, sum.Branches, 2)
	assert.Equal(t, "Harbor", sum.Branches[0].Branch)
	assert.Equal(t, "50", sum.Branches[0].TotalCash.String())
	assert.Empty(t, sum.Branches[0].Finished)

	main := sum.Branches[1]
	assert.Equal(t, int64(80), main.Discrete.Sold)
	assert.Equal(t, "206", main.TotalCash.String())
	assert.Equal(t, []item.Type{item.TypeGrocery, item.TypeNormal}, main.Finished)
	assert.Equal(t, "256", sum.TotalCash.String())
}

func TestGetDailySummary_BranchScope(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo, fakeFlags{})
	ctx := appctx.WithUser(context.Background(), &appctx.UserContext{UserID: "u", Branches: []string{"Main"}})

	_, err := svc.GetDailySummary(ctx, DailySummaryFilter{Date: day})
	require.NoError(t, err)
	assert.Equal(t, []string{"Main"}, repo.gotBranches)

	_, err = svc.GetDailySummary(ctx, DailySummaryFilter{Date: day, Branches: []string{"Harbor"}})
	assert.True(t, apperror.HasCode(err, apperror.CodeForbidden))

	_, err = svc.GetDailySummary(ctx, DailySummaryFilter{})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestGetExpiringBatches(t *testing.T) {
	repo := &fakeRepo{expiring: []ExpiringBatch{
		{BatchID: "GB-2024-00001", ExpiryDate: day.AddDate(0, 0, -1)},
		{BatchID: "GB-2024-00002", ExpiryDate: day.AddDate(0, 0, 2)},
	}}
	svc := NewService(repo, fakeFlags{})

	rep, err := svc.GetExpiringBatches(adminCtx(), ExpiringFilter{AsOf: day})
	require.NoError(t, err)
	assert.Equal(t, day.AddDate(0, 0, DefaultExpiringDays), repo.gotUntil)
	require.Len(t, rep.Items, 2)
	assert.True(t, rep.Items[0].Expired)
	assert.Equal(t, -1, rep.Items[0].DaysLeft)
	assert.False(t, rep.Items[1].Expired)
	assert.Equal(t, 2, rep.Items[1].DaysLeft)

	_, err = svc.GetExpiringBatches(adminCtx(), ExpiringFilter{Days: -2})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

type countingSnapshot struct{ calls int }

func (s *countingSnapshot) Snapshot(ctx context.Context, fn func(ctx context.Context) error) error {
	s.calls++
	return fn(ctx)
}

func TestGetDailySummary_ReadsOneSnapshot(t *testing.T) {
	snap := &countingSnapshot{}
	svc := NewService(&fakeRepo{}, fakeFlags{}).WithSnapshot(snap)

	_, err := svc.GetDailySummary(adminCtx(), DailySummaryFilter{Date: day})
	require.NoError(t, err)
	assert.Equal(t, 1, snap.calls)
}
