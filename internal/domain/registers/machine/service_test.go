package machine

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
	"bakehouse/internal/core/lock"
	"bakehouse/internal/core/numerator"
	"bakehouse/internal/core/types"
	"bakehouse/internal/domain/catalogs/item"
)

type txRunner struct{}

func (txRunner) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type memRepo struct {
	batches map[string]Batch
	sales   []*Sale
}

func newMemRepo() *memRepo { return &memRepo{batches: map[string]Batch{}} }

func (m *memRepo) Insert(_ context.Context, b *Batch) error {
	for _, x := range m.batches {
		if x.IsActive() && x.MachineCode == b.MachineCode && x.Branch == b.Branch {
			return ErrActiveExists
		}
	}
	m.batches[b.BatchID] = *b
	return nil
}

func (m *memRepo) LockActive(_ context.Context, machineCode, branch string) (*Batch, error) {
	for _, b := range m.batches {
		if b.IsActive() && b.MachineCode == machineCode && b.Branch == branch {
			return &b, nil
		}
	}
	return nil, nil
}

func (m *memRepo) LockByBatchID(_ context.Context, batchID string) (*Batch, error) {
	b, ok := m.batches[batchID]
	if !ok {
		return nil, apperror.NewNotFound("machine batch", batchID)
	}
	return &b, nil
}

func (m *memRepo) Complete(_ context.Context, b *Batch) error {
	m.batches[b.BatchID] = *b
	return nil
}

func (m *memRepo) InsertSale(_ context.Context, s *Sale) error {
	m.sales = append(m.sales, s)
	return nil
}

func (m *memRepo) List(_ context.Context, f Filter) ([]*Batch, error) {
	var out []*Batch
	for _, b := range m.batches {
		if f.Status != "" && b.Status != f.Status {
			continue
		}
		b := b
		out = append(out, &b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BatchID < out[j].BatchID })
	return out, nil
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

type busyLocker struct{}

func (busyLocker) Obtain(context.Context, string, time.Duration) (lock.Lock, error) {
	return nil, lock.ErrNotObtained
}

var day = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newService(repo *memRepo, rec *events.Recorder, locker lock.Locker) *Service {
	return NewService(ServiceConfig{
		Repo:      repo,
		TxManager: txRunner{},
		Items: itemLookup{
			"ESPRESSO": item.NewItem("ESPRESSO", "Espresso machine", item.TypeMachine, item.UnitCount, types.MustMoney("1.25")),
			"X":        item.NewItem("X", "Croissant", item.TypeNormal, item.UnitCount, types.MustMoney("2.50")),
		},
		Branches:  branchLookup{},
		Numerator: &numerator.MemoryGenerator{},
		Locker:    locker,
		Publisher: rec,
		Now:       func() time.Time { return day.Add(8 * time.Hour) },
	})
}

func adminCtx() context.Context {
	return appctx.WithUser(context.Background(), &appctx.UserContext{UserID: "admin", IsAdmin: true})
}

func TestMachineBatchLifecycle(t *testing.T) {
	repo := newMemRepo()
	rec := &events.Recorder{}
	svc := newService(repo, rec, nil)
	ctx := adminCtx()

	b, err := svc.StartBatch(ctx, StartInput{MachineCode: "ESPRESSO", Branch: "Main", StartValue: 1000})
	require.NoError(t, err)
	assert.Equal(t, "MB-2024-00001", b.BatchID)
	assert.Equal(t, StatusActive, b.Status)
	assert.Equal(t, day, b.Date)
	assert.Nil(t, b.EndValue)

	_, err = svc.StartBatch(ctx, StartInput{MachineCode: "ESPRESSO", Branch: "Main", StartValue: 1001})
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeConflict))

	// Another branch has its own active batch.
	_, err = svc.StartBatch(ctx, StartInput{MachineCode: "ESPRESSO", Branch: "Harbor", StartValue: 5})
	require.NoError(t, err)

	res, err := svc.FinishBatch(ctx, b.BatchID, 1040)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, res.Batch.Status)
	require.NotNil(t, res.Batch.EndValue)
	assert.Equal(t, int64(1040), *res.Batch.EndValue)
	assert.Equal(t, int64(40), res.Sale.SoldQty)
	assert.Equal(t, "50", res.Sale.TotalCash.String())
	require.Len(t, repo.sales, 1)

	_, err = svc.FinishBatch(ctx, b.BatchID, 1050)
	assert.True(t, apperror.HasCode(err, apperror.CodeConflict))

	// Completed batch frees the pair.
	_, err = svc.StartBatch(ctx, StartInput{MachineCode: "ESPRESSO", Branch: "Main", StartValue: 1040})
	require.NoError(t, err)

	assert.Equal(t, []string{EventStarted, EventStarted, EventFinished, EventStarted}, rec.Types())
}

func TestFinishBatch_Rejections(t *testing.T) {
	repo := newMemRepo()
	svc := newService(repo, &events.Recorder{}, nil)
	ctx := adminCtx()

	_, err := svc.FinishBatch(ctx, "MB-2024-99999", 10)
	assert.True(t, apperror.IsNotFound(err))

	b, err := svc.StartBatch(ctx, StartInput{MachineCode: "ESPRESSO", Branch: "Main", StartValue: 100})
	require.NoError(t, err)

	_, err = svc.FinishBatch(ctx, b.BatchID, 99)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidQuantity))
	stored := repo.batches[b.BatchID]
	assert.True(t, stored.IsActive())
	assert.Empty(t, repo.sales)

	// Zero sold is allowed.
	res, err := svc.FinishBatch(ctx, b.BatchID, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.Sale.SoldQty)
}

func TestStartBatch_Validation(t *testing.T) {
	svc := newService(newMemRepo(), &events.Recorder{}, nil)
	ctx := adminCtx()

	_, err := svc.StartBatch(ctx, StartInput{Branch: "Main"})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	_, err = svc.StartBatch(ctx, StartInput{MachineCode: "ESPRESSO", Branch: "Main", StartValue: -1})
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidQuantity))

	_, err = svc.StartBatch(ctx, StartInput{MachineCode: "X", Branch: "Main"})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	_, err = svc.StartBatch(ctx, StartInput{MachineCode: "NOPE", Branch: "Main"})
	assert.True(t, apperror.IsNotFound(err))
}

func TestStartBatch_LockHeld(t *testing.T) {
	repo := newMemRepo()
	svc := newService(repo, &events.Recorder{}, busyLocker{})

	_, err := svc.StartBatch(adminCtx(), StartInput{MachineCode: "ESPRESSO", Branch: "Main"})
	assert.True(t, apperror.HasCode(err, apperror.CodeConflict))
	assert.Empty(t, repo.batches)
}

func TestListBatches(t *testing.T) {
	repo := newMemRepo()
	svc := newService(repo, &events.Recorder{}, nil)
	ctx := adminCtx()

	_, err := svc.StartBatch(ctx, StartInput{MachineCode: "ESPRESSO", Branch: "Main"})
	require.NoError(t, err)

	list, err := svc.ListBatches(ctx, Filter{Status: StatusActive})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	list, err = svc.ListBatches(ctx, Filter{Status: StatusCompleted})
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = svc.ListBatches(ctx, Filter{Status: "paused"})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	noAccess := appctx.WithUser(context.Background(), &appctx.UserContext{UserID: "u"})
	_, err = svc.ListBatches(noAccess, Filter{})
	assert.True(t, apperror.HasCode(err, apperror.CodeForbidden))
}
