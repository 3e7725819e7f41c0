package stock

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bakehouse/internal/core/apperror"
	appctx "bakehouse/internal/core/context"
	"bakehouse/internal/core/events"
	"bakehouse/internal/core/types"
	"bakehouse/internal/domain/catalogs/item"
	"bakehouse/internal/domain/closing"
	"bakehouse/internal/domain/closing/closingtest"
	"bakehouse/internal/domain/registers/transfer/transfertest"
)

type txRunner struct{}

func (txRunner) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// memRepo stores copies so a failed request cannot leak partial writes through shared pointers.
type memRepo struct {
	rows map[string]Entry
}

func newMemRepo() *memRepo { return &memRepo{rows: map[string]Entry{}} }

func key(date time.Time, branch, code string) string {
	return types.FormatDate(date) + "|" + branch + "|" + code
}

func (m *memRepo) ListEntries(_ context.Context, date time.Time, branch string) ([]*Entry, error) {
	var out []*Entry
	for _, e := range m.rows {
		if e.Date.Equal(date) && e.Branch == branch {
			e := e
			out = append(out, &e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemCode < out[j].ItemCode })
	return out, nil
}

func (m *memRepo) LockEntries(_ context.Context, date time.Time, branch string, codes []string) ([]*Entry, error) {
	var out []*Entry
	for _, c := range codes {
		if e, ok := m.rows[key(date, branch, c)]; ok {
			out = append(out, &e)
		}
	}
	return out, nil
}

func (m *memRepo) AddQuantities(_ context.Context, date time.Time, branch string, adds []Addition) ([]*Entry, error) {
	var out []*Entry
	for _, a := range adds {
		k := key(date, branch, a.ItemCode)
		e, ok := m.rows[k]
		if !ok {
			e = Entry{Date: date, Branch: branch, ItemCode: a.ItemCode, ItemName: a.ItemName}
		}
		e.Added += a.Quantity
		m.rows[k] = e
		out = append(out, &e)
	}
	return out, nil
}

func (m *memRepo) SaveCounters(_ context.Context, entries []*Entry) error {
	for _, e := range entries {
		m.rows[key(e.Date, e.Branch, e.ItemCode)] = *e
	}
	return nil
}

func (m *memRepo) RecomputeSold(_ context.Context, date time.Time, branch string) (int64, error) {
	var n int64
	for k, e := range m.rows {
		if e.Date.Equal(date) && e.Branch == branch {
			e.recomputeSold()
			m.rows[k] = e
			n++
		}
	}
	return n, nil
}

func (m *memRepo) get(date time.Time, branch, code string) Entry {
	return m.rows[key(date, branch, code)]
}

type itemLookup map[string]*item.Item

func (l itemLookup) RequireTyped(_ context.Context, itemType item.Type, codes ...string) (map[string]*item.Item, error) {
	out := map[string]*item.Item{}
	for _, c := range codes {
		it, ok := l[c]
		if !ok {
			return nil, apperror.NewNotFound("item", c)
		}
		if it.ItemType != itemType {
			return nil, apperror.NewValidation("wrong item type")
		}
		out[c] = it
	}
	return out, nil
}

type branchLookup struct{}

func (branchLookup) Require(_ context.Context, codes ...string) error {
	for _, c := range codes {
		if c == "Nowhere" {
			return apperror.NewNotFound("branch", c)
		}
	}
	return nil
}

type fixture struct {
	svc       *Service
	repo      *memRepo
	events    *events.Recorder
	transfers *transfertest.MemoryRepository
}

func newFixture() *fixture {
	repo := newMemRepo()
	rec := &events.Recorder{}
	transfers := &transfertest.MemoryRepository{}
	coord := closing.NewCoordinator(closingtest.NewMemoryRepository(), txRunner{}, rec, nil)
	items := itemLookup{
		"X":     item.NewItem("X", "Croissant", item.TypeNormal, item.UnitCount, types.MustMoney("2.50")),
		"Y":     item.NewItem("Y", "Baguette", item.TypeNormal, item.UnitCount, types.MustMoney("1.80")),
		"FLOUR": item.NewItem("FLOUR", "Flour", item.TypeGrocery, item.UnitWeight, types.Zero()),
	}
	svc := NewService(ServiceConfig{
		Repo:      repo,
		TxManager: txRunner{},
		Closing:   coord,
		Items:     items,
		Branches:  branchLookup{},
		Transfers: transfers,
		Publisher: rec,
	})
	return &fixture{svc: svc, repo: repo, events: rec, transfers: transfers}
}

func adminCtx() context.Context {
	return appctx.WithUser(context.Background(), &appctx.UserContext{UserID: "admin", IsAdmin: true})
}

var day = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestDiscreteScenario(t *testing.T) {
	f := newFixture()
	ctx := adminCtx()

	_, err := f.svc.AddStock(ctx, day, "Main", []Line{{ItemCode: "X", Quantity: 100}})
	require.NoError(t, err)

	_, err = f.svc.RecordReturns(ctx, day, "Main", []Line{{ItemCode: "X", Quantity: 20}})
	require.NoError(t, err)

	snap, err := f.svc.GetStocks(ctx, day, "Main")
	require.NoError(t, err)
	require.Len(t, snap.Stocks, 1)
	assert.Equal(t, int64(80), snap.Stocks[0].Available())
	assert.False(t, snap.IsFinished)
	assert.Nil(t, snap.FinishedAt)

	_, err = f.svc.FinishBatch(ctx, day, "Main")
	require.NoError(t, err)
	assert.Equal(t, int64(80), f.repo.get(day, "Main", "X").Sold)

	_, err = f.svc.AddStock(ctx, day, "Main", []Line{{ItemCode: "X", Quantity: 1}})
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeBatchLocked))
	assert.Equal(t, int64(100), f.repo.get(day, "Main", "X").Added)

	_, err = f.svc.FinishBatch(ctx, day, "Main")
	assert.True(t, apperror.HasCode(err, apperror.CodeAlreadyFinished))

	st, err := f.svc.GetBatchStatus(ctx, day, "Main")
	require.NoError(t, err)
	assert.True(t, st.IsFinished)

	assert.Equal(t, []string{EventAdded, EventReturned, "batch.finished"}, f.events.Types())
}

func TestAddStock_Validation(t *testing.T) {
	f := newFixture()
	ctx := adminCtx()

	_, err := f.svc.AddStock(ctx, day, "Main", []Line{{ItemCode: "X", Quantity: 0}})
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidQuantity))

	_, err = f.svc.AddStock(ctx, day, "Main", []Line{{ItemCode: "X", Quantity: -5}})
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidQuantity))

	_, err = f.svc.AddStock(ctx, day, "Main", nil)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	_, err = f.svc.AddStock(ctx, day, "", []Line{{ItemCode: "X", Quantity: 1}})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	_, err = f.svc.AddStock(ctx, day, "Main", []Line{{ItemCode: "NOPE", Quantity: 1}})
	assert.True(t, apperror.IsNotFound(err))

	_, err = f.svc.AddStock(ctx, day, "Main", []Line{{ItemCode: "FLOUR", Quantity: 1}})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	assert.Empty(t, f.repo.rows)
}

func TestAddStock_MergesDuplicateLines(t *testing.T) {
	f := newFixture()

	entries, err := f.svc.AddStock(adminCtx(), day, "Main", []Line{
		{ItemCode: "Y", Quantity: 5},
		{ItemCode: "X", Quantity: 3},
		{ItemCode: "Y", Quantity: 2},
	})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "X", entries[0].ItemCode)
	assert.Equal(t, int64(7), f.repo.get(day, "Main", "Y").Added)
	assert.Equal(t, "Baguette", f.repo.get(day, "Main", "Y").ItemName)
}

func TestAddStock_BranchAccess(t *testing.T) {
	f := newFixture()
	ctx := appctx.WithUser(context.Background(), &appctx.UserContext{UserID: "u", Branches: []string{"Harbor"}})

	_, err := f.svc.AddStock(ctx, day, "Main", []Line{{ItemCode: "X", Quantity: 1}})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeForbidden, appErr.Code)
}

func TestRecordReturns_AllOrNothing(t *testing.T) {
	f := newFixture()
	ctx := adminCtx()

	_, err := f.svc.AddStock(ctx, day, "Main", []Line{{ItemCode: "X", Quantity: 10}, {ItemCode: "Y", Quantity: 4}})
	require.NoError(t, err)

	_, err = f.svc.RecordReturns(ctx, day, "Main", []Line{{ItemCode: "X", Quantity: 3}, {ItemCode: "Y", Quantity: 5}})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInsufficientStock, appErr.Code)
	assert.Equal(t, "Y", appErr.Details["item_code"])

	assert.Equal(t, int64(0), f.repo.get(day, "Main", "X").Returned)
	assert.Equal(t, int64(0), f.repo.get(day, "Main", "Y").Returned)
}

func TestRecordReturns_DuplicatesSummedAgainstAvailable(t *testing.T) {
	f := newFixture()
	ctx := adminCtx()

	_, err := f.svc.AddStock(ctx, day, "Main", []Line{{ItemCode: "X", Quantity: 10}})
	require.NoError(t, err)

	_, err = f.svc.RecordReturns(ctx, day, "Main", []Line{{ItemCode: "X", Quantity: 6}, {ItemCode: "X", Quantity: 5}})
	assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock))

	_, err = f.svc.RecordReturns(ctx, day, "Main", []Line{{ItemCode: "X", Quantity: 6}, {ItemCode: "X", Quantity: 4}})
	require.NoError(t, err)
	e := f.repo.get(day, "Main", "X")
	assert.Equal(t, int64(10), e.Returned)
	assert.Equal(t, int64(0), e.Available())
	assert.Equal(t, int64(0), e.Sold)
}

func TestRecordReturns_UnknownRowIsInsufficient(t *testing.T) {
	f := newFixture()

	_, err := f.svc.RecordReturns(adminCtx(), day, "Main", []Line{{ItemCode: "X", Quantity: 1}})
	assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock))
}

func TestTransferStock(t *testing.T) {
	f := newFixture()
	ctx := adminCtx()

	_, err := f.svc.AddStock(ctx, day, "Main", []Line{{ItemCode: "X", Quantity: 10}})
	require.NoError(t, err)

	records, err := f.svc.TransferStock(ctx, day, "Main", "Harbor", []Line{{ItemCode: "X", Quantity: 4}})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, types.NewQuantityFromUnits(4), records[0].Quantity)
	assert.Len(t, f.transfers.Transfers, 1)

	src := f.repo.get(day, "Main", "X")
	assert.Equal(t, int64(4), src.Transferred)
	assert.Equal(t, int64(6), src.Available())
	assert.Equal(t, int64(4), f.repo.get(day, "Harbor", "X").Added)

	_, err = f.svc.TransferStock(ctx, day, "Main", "Harbor", []Line{{ItemCode: "X", Quantity: 7}})
	assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock))

	_, err = f.svc.TransferStock(ctx, day, "Main", "Main", []Line{{ItemCode: "X", Quantity: 1}})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestTransferStock_DestinationFinished(t *testing.T) {
	f := newFixture()
	ctx := adminCtx()

	_, err := f.svc.AddStock(ctx, day, "Main", []Line{{ItemCode: "X", Quantity: 10}})
	require.NoError(t, err)
	_, err = f.svc.FinishBatch(ctx, day, "Harbor")
	require.NoError(t, err)

	_, err = f.svc.TransferStock(ctx, day, "Main", "Harbor", []Line{{ItemCode: "X", Quantity: 1}})
	assert.True(t, apperror.HasCode(err, apperror.CodeBatchLocked))
	assert.Equal(t, int64(0), f.repo.get(day, "Main", "X").Transferred)
}

func TestInvariant_ReturnedPlusTransferredWithinAdded(t *testing.T) {
	f := newFixture()
	ctx := adminCtx()

	_, err := f.svc.AddStock(ctx, day, "Main", []Line{{ItemCode: "X", Quantity: 5}})
	require.NoError(t, err)

	ops := []func() error{
		func() error { _, err := f.svc.RecordReturns(ctx, day, "Main", []Line{{ItemCode: "X", Quantity: 2}}); return err },
		func() error {
			_, err := f.svc.TransferStock(ctx, day, "Main", "Harbor", []Line{{ItemCode: "X", Quantity: 2}})
			return err
		},
		func() error { _, err := f.svc.RecordReturns(ctx, day, "Main", []Line{{ItemCode: "X", Quantity: 2}}); return err },
		func() error { _, err := f.svc.RecordReturns(ctx, day, "Main", []Line{{ItemCode: "X", Quantity: 1}}); return err },
	}
	for _, op := range ops {
		_ = op()
		e := f.repo.get(day, "Main", "X")
		assert.LessOrEqual(t, e.Returned+e.Transferred, e.Added)
	}
	e := f.repo.get(day, "Main", "X")
	assert.Equal(t, int64(3), e.Returned)
	assert.Equal(t, int64(2), e.Transferred)
}
