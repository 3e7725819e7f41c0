package grocery

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
	"bakehouse/internal/core/id"
	"bakehouse/internal/core/numerator"
	"bakehouse/internal/core/types"
	"bakehouse/internal/domain/catalogs/item"
	"bakehouse/internal/domain/closing"
	"bakehouse/internal/domain/closing/closingtest"
	"bakehouse/internal/domain/registers/transfer"
	"bakehouse/internal/domain/registers/transfer/transfertest"
)

type txRunner struct{}

func (txRunner) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// memRepo hands out copies so unsaved mutations never reach the stored lots.
type memRepo struct {
	batches []Batch
	sales   []*Sale
	returns []*Return
}

func (m *memRepo) InsertBatches(_ context.Context, batches ...*Batch) error {
	for _, b := range batches {
		m.batches = append(m.batches, *b)
	}
	return nil
}

func (m *memRepo) LockBatches(_ context.Context, branch, itemCode string) ([]*Batch, error) {
	var out []*Batch
	for _, b := range m.batches {
		if b.Branch == branch && b.ItemCode == itemCode {
			b := b
			out = append(out, &b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].ExpiryDate.Equal(out[j].ExpiryDate) {
			return out[i].ExpiryDate.Before(out[j].ExpiryDate)
		}
		return out[i].AddedDate.Before(out[j].AddedDate)
	})
	return out, nil
}

func (m *memRepo) SaveRemaining(_ context.Context, batches []*Batch) error {
	for _, b := range batches {
		for i := range m.batches {
			if m.batches[i].ID == b.ID {
				m.batches[i].Remaining = b.Remaining
			}
		}
	}
	return nil
}

func (m *memRepo) ListBatches(ctx context.Context, f BatchFilter) ([]*Batch, error) {
	var out []*Batch
	for _, b := range m.batches {
		if b.Branch != f.Branch || (f.ItemCode != "" && b.ItemCode != f.ItemCode) {
			continue
		}
		if !f.IncludeEmpty && b.Remaining == 0 {
			continue
		}
		b := b
		out = append(out, &b)
	}
	return out, nil
}

func (m *memRepo) SumRemaining(_ context.Context, branch, itemCode string) (types.Quantity, error) {
	var total types.Quantity
	for _, b := range m.batches {
		if b.Branch == branch && b.ItemCode == itemCode {
			total += b.Remaining
		}
	}
	return total, nil
}

func (m *memRepo) InsertSale(_ context.Context, s *Sale) error {
	m.sales = append(m.sales, s)
	return nil
}

func (m *memRepo) InsertReturn(_ context.Context, r *Return) error {
	m.returns = append(m.returns, r)
	return nil
}

func (m *memRepo) ListSales(_ context.Context, _ RecordFilter) ([]*Sale, error) {
	return m.sales, nil
}

func (m *memRepo) ListReturns(_ context.Context, _ RecordFilter) ([]*Return, error) {
	return m.returns, nil
}

func (m *memRepo) remaining(branch, itemCode string) []types.Quantity {
	batches, _ := m.LockBatches(context.Background(), branch, itemCode)
	return remainingOf(batches)
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

func (branchLookup) Require(context.Context, ...string) error { return nil }

var (
	day  = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	exp1 = time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	exp2 = time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)
)

type fixture struct {
	svc       *Service
	repo      *memRepo
	events    *events.Recorder
	transfers *transfertest.MemoryRepository
}

func newFixture() *fixture {
	repo := &memRepo{}
	rec := &events.Recorder{}
	transfers := &transfertest.MemoryRepository{}
	items := itemLookup{
		"FLOUR": item.NewItem("FLOUR", "Flour", item.TypeGrocery, item.UnitWeight, types.MustMoney("2.00")),
		"JAM":   item.NewItem("JAM", "Jam", item.TypeGrocery, item.UnitCount, types.MustMoney("3.50")),
		"X":     item.NewItem("X", "Croissant", item.TypeNormal, item.UnitCount, types.MustMoney("2.50")),
	}
	svc := NewService(ServiceConfig{
		Repo:      repo,
		TxManager: txRunner{},
		Closing:   closing.NewCoordinator(closingtest.NewMemoryRepository(), txRunner{}, rec, nil),
		Items:     items,
		Branches:  branchLookup{},
		Transfers: transfers,
		Numerator: &numerator.MemoryGenerator{},
		Publisher: rec,
		Now:       func() time.Time { return day.Add(9 * time.Hour) },
	})
	return &fixture{svc: svc, repo: repo, events: rec, transfers: transfers}
}

func adminCtx() context.Context {
	return appctx.WithUser(context.Background(), &appctx.UserContext{UserID: "admin", IsAdmin: true})
}

func qty(s string) types.Quantity {
	q, err := types.ParseQuantity(s)
	if err != nil {
		panic(err)
	}
	return q
}

func (f *fixture) add(t *testing.T, code string, q string, expiry time.Time) *Batch {
	t.Helper()
	b, err := f.svc.AddBatch(adminCtx(), AddBatchInput{ItemCode: code, Branch: "Main", Quantity: qty(q), ExpiryDate: expiry, AddedDate: day})
	require.NoError(t, err)
	return b
}

func TestAddBatch(t *testing.T) {
	f := newFixture()

	b := f.add(t, "FLOUR", "2.5", exp1)
	assert.Equal(t, "GB-2024-00001", b.BatchID)
	assert.Equal(t, qty("2.5"), b.Remaining)
	assert.Equal(t, "Flour", b.ItemName)
	assert.Nil(t, b.SourceBatchID)

	// Lots are never merged, even with the same expiry.
	f.add(t, "FLOUR", "1", exp1)
	assert.Len(t, f.repo.batches, 2)
	assert.Equal(t, []string{EventBatchAdded, EventBatchAdded}, f.events.Types())
}

func TestAddBatch_Validation(t *testing.T) {
	f := newFixture()
	ctx := adminCtx()

	cases := []struct {
		name string
		in   AddBatchInput
		code string
	}{
		{"zero quantity", AddBatchInput{ItemCode: "FLOUR", Branch: "Main", ExpiryDate: exp1}, apperror.CodeInvalidQuantity},
		{"fractional count", AddBatchInput{ItemCode: "JAM", Branch: "Main", Quantity: qty("1.5"), ExpiryDate: exp1}, apperror.CodeInvalidQuantity},
		{"missing branch", AddBatchInput{ItemCode: "FLOUR", Quantity: qty("1"), ExpiryDate: exp1}, apperror.CodeValidation},
		{"missing expiry", AddBatchInput{ItemCode: "FLOUR", Branch: "Main", Quantity: qty("1")}, apperror.CodeValidation},
		{"expired before added", AddBatchInput{ItemCode: "FLOUR", Branch: "Main", Quantity: qty("1"), ExpiryDate: day.AddDate(0, 0, -1), AddedDate: day}, apperror.CodeValidation},
		{"wrong item type", AddBatchInput{ItemCode: "X", Branch: "Main", Quantity: qty("1"), ExpiryDate: exp1}, apperror.CodeValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.AddBatch(ctx, tc.in)
			require.Error(t, err)
			assert.True(t, apperror.HasCode(err, tc.code), "got %v", err)
		})
	}
	assert.Empty(t, f.repo.batches)
}

func TestRecordReturn_FIFO(t *testing.T) {
	f := newFixture()
	f.add(t, "FLOUR", "1", exp2)
	f.add(t, "FLOUR", "1", exp1)

	ret, err := f.svc.RecordReturn(adminCtx(), ReturnInput{ItemCode: "FLOUR", Branch: "Main", Quantity: qty("1.2"), Reason: "damaged"})
	require.NoError(t, err)

	// The lot expiring first is drained first.
	assert.Equal(t, []types.Quantity{0, qty("0.8")}, f.repo.remaining("Main", "FLOUR"))
	assert.Equal(t, "2.4", ret.TotalValue.String())
	assert.Equal(t, "admin", ret.CreatedBy)
	assert.Equal(t, day, ret.Date)
}

func TestRecordReturn_RejectsShortfall(t *testing.T) {
	f := newFixture()
	f.add(t, "FLOUR", "1", exp1)

	_, err := f.svc.RecordReturn(adminCtx(), ReturnInput{ItemCode: "FLOUR", Branch: "Main", Quantity: qty("1.001"), Reason: "waste"})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInsufficientStock, appErr.Code)
	assert.Equal(t, "FLOUR", appErr.Details["item_code"])
	assert.Equal(t, []types.Quantity{qty("1")}, f.repo.remaining("Main", "FLOUR"))
	assert.Empty(t, f.repo.returns)

	_, err = f.svc.RecordReturn(adminCtx(), ReturnInput{ItemCode: "FLOUR", Branch: "Main", Quantity: qty("0.5")})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestUpdateRemaining_Proportional(t *testing.T) {
	f := newFixture()
	f.add(t, "FLOUR", "3", exp1)
	f.add(t, "FLOUR", "2", exp2)

	res, err := f.svc.UpdateRemaining(adminCtx(), "Main", day, []RemainingUpdate{{ItemCode: "FLOUR", NewRemaining: qty("2")}})
	require.NoError(t, err)
	require.Len(t, res, 1)

	assert.Equal(t, []types.Quantity{qty("1.2"), qty("0.8")}, f.repo.remaining("Main", "FLOUR"))
	assert.Equal(t, qty("5"), res[0].PreviousRemaining)
	assert.Equal(t, qty("3"), res[0].SoldQty)
	assert.Equal(t, "6", res[0].TotalCash.String())

	require.Len(t, f.repo.sales, 1)
	assert.Equal(t, qty("3"), f.repo.sales[0].SoldQty)
	assert.Contains(t, f.events.Types(), EventSold)
}

func TestUpdateRemaining_CountRounding(t *testing.T) {
	f := newFixture()
	f.add(t, "JAM", "7", exp1)
	f.add(t, "JAM", "3", exp2)

	_, err := f.svc.UpdateRemaining(adminCtx(), "Main", day, []RemainingUpdate{{ItemCode: "JAM", NewRemaining: qty("6")}})
	require.NoError(t, err)
	assert.Equal(t, []types.Quantity{qty("4"), qty("2")}, f.repo.remaining("Main", "JAM"))

	_, err = f.svc.UpdateRemaining(adminCtx(), "Main", day, []RemainingUpdate{{ItemCode: "JAM", NewRemaining: qty("2.5")}})
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidQuantity))
}

func TestUpdateRemaining_NoSaleWhenUnchanged(t *testing.T) {
	f := newFixture()
	f.add(t, "FLOUR", "2", exp1)

	res, err := f.svc.UpdateRemaining(adminCtx(), "Main", day, []RemainingUpdate{{ItemCode: "FLOUR", NewRemaining: qty("2")}})
	require.NoError(t, err)
	assert.Equal(t, types.Quantity(0), res[0].SoldQty)
	assert.Empty(t, f.repo.sales)
}

func TestUpdateRemaining_AllOrNothing(t *testing.T) {
	f := newFixture()
	f.add(t, "FLOUR", "3", exp1)
	f.add(t, "JAM", "2", exp1)

	_, err := f.svc.UpdateRemaining(adminCtx(), "Main", day, []RemainingUpdate{
		{ItemCode: "FLOUR", NewRemaining: qty("1")},
		{ItemCode: "JAM", NewRemaining: qty("5")},
	})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInvalidQuantity, appErr.Code)
	assert.Equal(t, "JAM", appErr.Details["item_code"])

	assert.Equal(t, []types.Quantity{qty("3")}, f.repo.remaining("Main", "FLOUR"))
	assert.Empty(t, f.repo.sales)
}

func TestUpdateRemaining_Validation(t *testing.T) {
	f := newFixture()
	ctx := adminCtx()

	_, err := f.svc.UpdateRemaining(ctx, "Main", day, nil)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	_, err = f.svc.UpdateRemaining(ctx, "Main", day, []RemainingUpdate{
		{ItemCode: "FLOUR", NewRemaining: qty("1")},
		{ItemCode: "FLOUR", NewRemaining: qty("2")},
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	_, err = f.svc.UpdateRemaining(ctx, "Main", day, []RemainingUpdate{{ItemCode: "FLOUR", NewRemaining: qty("-1")}})
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidQuantity))
}

func TestFinishBatch_GatesAddAndUpdateButNotReturns(t *testing.T) {
	f := newFixture()
	ctx := adminCtx()
	f.add(t, "FLOUR", "3", exp1)

	_, err := f.svc.FinishBatch(ctx, day, "Main")
	require.NoError(t, err)

	_, err = f.svc.AddBatch(ctx, AddBatchInput{ItemCode: "FLOUR", Branch: "Main", Quantity: qty("1"), ExpiryDate: exp1, AddedDate: day})
	assert.True(t, apperror.HasCode(err, apperror.CodeBatchLocked))

	_, err = f.svc.UpdateRemaining(ctx, "Main", day, []RemainingUpdate{{ItemCode: "FLOUR", NewRemaining: qty("1")}})
	assert.True(t, apperror.HasCode(err, apperror.CodeBatchLocked))

	_, err = f.svc.RecordReturn(ctx, ReturnInput{ItemCode: "FLOUR", Branch: "Main", Quantity: qty("1"), Reason: "waste", Date: day})
	require.NoError(t, err)
	assert.Equal(t, []types.Quantity{qty("2")}, f.repo.remaining("Main", "FLOUR"))

	// The next day is a different scope.
	_, err = f.svc.AddBatch(ctx, AddBatchInput{ItemCode: "FLOUR", Branch: "Main", Quantity: qty("1"), ExpiryDate: exp1, AddedDate: day.AddDate(0, 0, 1)})
	require.NoError(t, err)

	st, err := f.svc.GetBatchStatus(ctx, day, "Main")
	require.NoError(t, err)
	assert.True(t, st.IsFinished)

	_, err = f.svc.FinishBatch(ctx, day, "Main")
	assert.True(t, apperror.HasCode(err, apperror.CodeAlreadyFinished))
}

func TestTransferStock(t *testing.T) {
	f := newFixture()
	first := f.add(t, "FLOUR", "1", exp1)
	f.add(t, "FLOUR", "2", exp2)

	res, err := f.svc.TransferStock(adminCtx(), TransferInput{
		Date: day, FromBranch: "Main", ToBranch: "Harbor", ItemCode: "FLOUR", Quantity: qty("1.5"),
	})
	require.NoError(t, err)

	assert.Equal(t, []types.Quantity{0, qty("1.5")}, f.repo.remaining("Main", "FLOUR"))

	// One destination lot per consumed source lot, keeping its expiry.
	require.Len(t, res.Batches, 2)
	assert.Equal(t, qty("1"), res.Batches[0].Quantity)
	assert.Equal(t, exp1, res.Batches[0].ExpiryDate)
	require.NotNil(t, res.Batches[0].SourceBatchID)
	assert.Equal(t, first.BatchID, *res.Batches[0].SourceBatchID)
	assert.Equal(t, qty("0.5"), res.Batches[1].Quantity)
	assert.Equal(t, exp2, res.Batches[1].ExpiryDate)

	total, err := f.svc.GetAvailableStock(adminCtx(), "FLOUR", "Harbor")
	require.NoError(t, err)
	assert.Equal(t, qty("1.5"), total)

	require.Len(t, f.transfers.Transfers, 1)
	assert.Equal(t, transfer.KindGrocery, f.transfers.Transfers[0].Kind)
	assert.Equal(t, qty("1.5"), f.transfers.Transfers[0].Quantity)
	assert.Contains(t, f.events.Types(), EventTransferred)
}

func TestTransferStock_Rejections(t *testing.T) {
	f := newFixture()
	ctx := adminCtx()
	f.add(t, "FLOUR", "1", exp1)

	_, err := f.svc.TransferStock(ctx, TransferInput{Date: day, FromBranch: "Main", ToBranch: "Main", ItemCode: "FLOUR", Quantity: qty("1")})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	_, err = f.svc.TransferStock(ctx, TransferInput{Date: day, FromBranch: "Main", ToBranch: "Harbor", ItemCode: "FLOUR", Quantity: qty("2")})
	assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock))

	_, err = f.svc.FinishBatch(ctx, day, "Harbor")
	require.NoError(t, err)
	_, err = f.svc.TransferStock(ctx, TransferInput{Date: day, FromBranch: "Main", ToBranch: "Harbor", ItemCode: "FLOUR", Quantity: qty("0.5")})
	assert.True(t, apperror.HasCode(err, apperror.CodeBatchLocked))

	assert.Equal(t, []types.Quantity{qty("1")}, f.repo.remaining("Main", "FLOUR"))
	assert.Empty(t, f.transfers.Transfers)
}

func TestListBatches_BranchAccess(t *testing.T) {
	f := newFixture()
	f.add(t, "FLOUR", "1", exp1)
	ctx := appctx.WithUser(context.Background(), &appctx.UserContext{UserID: "u", Branches: []string{"Harbor"}})

	_, err := f.svc.ListBatches(ctx, BatchFilter{Branch: "Main"})
	assert.True(t, apperror.HasCode(err, apperror.CodeForbidden))

	list, err := f.svc.ListBatches(adminCtx(), BatchFilter{Branch: "Main"})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.NotEqual(t, id.ID{}, list[0].ID)
}
