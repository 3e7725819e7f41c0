package item

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bakehouse/internal/core/apperror"
	"bakehouse/internal/core/types"
	"bakehouse/internal/domain"
	"bakehouse/internal/domain/activity"
)

type txRunner struct{}

func (txRunner) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type memRepo struct {
	byCode     map[string]*Item
	lastFilter domain.ListFilter
}

func newMemRepo(items ...*Item) *memRepo {
	r := &memRepo{byCode: map[string]*Item{}}
	for _, it := range items {
		r.byCode[it.Code] = it
	}
	return r
}

func (r *memRepo) Create(_ context.Context, it *Item) error {
	r.byCode[it.Code] = it
	return nil
}

func (r *memRepo) GetByCode(_ context.Context, code string) (*Item, error) {
	it, ok := r.byCode[code]
	if !ok || !it.IsActive {
		return nil, apperror.NewNotFound("cat_items", code)
	}
	return it, nil
}

func (r *memRepo) GetByCodes(_ context.Context, codes []string) ([]*Item, error) {
	var out []*Item
	for _, c := range codes {
		if it, ok := r.byCode[c]; ok && it.IsActive {
			out = append(out, it)
		}
	}
	return out, nil
}

func (r *memRepo) Update(_ context.Context, it *Item) error {
	r.byCode[it.Code] = it
	return nil
}

func (r *memRepo) SetActive(_ context.Context, code string, active bool) error {
	r.byCode[code].IsActive = active
	return nil
}

func (r *memRepo) List(_ context.Context, f domain.ListFilter) (domain.ListResult[*Item], error) {
	r.lastFilter = f
	return domain.ListResult[*Item]{Limit: f.Limit}, nil
}

func (r *memRepo) ExistsByCode(_ context.Context, code string) (bool, error) {
	_, ok := r.byCode[code]
	return ok, nil
}

type recorder struct {
	actions []activity.Action
}

func (r *recorder) Record(_ context.Context, _ string, action activity.Action, _, _ string, _ any) error {
	r.actions = append(r.actions, action)
	return nil
}

func TestItem_Validate(t *testing.T) {
	ctx := context.Background()

	ok := NewItem("CROISSANT", "Croissant", TypeNormal, "", types.MustMoney("2.50"))
	require.NoError(t, ok.Validate(ctx))
	assert.Equal(t, UnitCount, ok.UnitKind)

	badType := NewItem("X", "X", Type("Bread"), UnitCount, types.Zero())
	assert.Error(t, badType.Validate(ctx))

	weighedNormal := NewItem("X", "X", TypeNormal, UnitWeight, types.Zero())
	assert.Error(t, weighedNormal.Validate(ctx))

	negative := NewItem("X", "X", TypeGrocery, UnitWeight, types.MustMoney("-1"))
	assert.Error(t, negative.Validate(ctx))
}

func TestItem_CheckQuantity(t *testing.T) {
	eggs := NewItem("EGGS", "Eggs", TypeGrocery, UnitCount, types.Zero())
	flour := NewItem("FLOUR", "Flour", TypeGrocery, UnitWeight, types.Zero())

	assert.NoError(t, eggs.CheckQuantity(types.NewQuantityFromUnits(3)))
	err := eggs.CheckQuantity(types.NewQuantityFromFloat64(2.5))
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidQuantity))

	assert.NoError(t, flour.CheckQuantity(types.NewQuantityFromFloat64(2.5)))
}

func TestService_CreateRejectsDuplicateCode(t *testing.T) {
	repo := newMemRepo(NewItem("BUN", "Bun", TypeNormal, UnitCount, types.Zero()))
	rec := &recorder{}
	svc := NewService(repo, txRunner{}, rec)

	err := svc.Create(context.Background(), NewItem("BUN", "Other bun", TypeNormal, UnitCount, types.Zero()))
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeDuplicate, appErr.Code)
	assert.Empty(t, rec.actions)
}

func TestService_CreateAndDeleteRecordActivity(t *testing.T) {
	repo := newMemRepo()
	rec := &recorder{}
	svc := NewService(repo, txRunner{}, rec)
	ctx := context.Background()

	require.NoError(t, svc.Create(ctx, NewItem("BUN", "Bun", TypeNormal, UnitCount, types.MustMoney("1.20"))))
	require.NoError(t, svc.Delete(ctx, "BUN"))

	assert.Equal(t, []activity.Action{activity.ActionItemCreate, activity.ActionItemDelete}, rec.actions)
	assert.False(t, repo.byCode["BUN"].IsActive)

	_, err := svc.GetByCode(ctx, "BUN")
	assert.True(t, apperror.IsNotFound(err))
}

func TestService_RequireTyped(t *testing.T) {
	repo := newMemRepo(
		NewItem("BUN", "Bun", TypeNormal, UnitCount, types.Zero()),
		NewItem("FLOUR", "Flour", TypeGrocery, UnitWeight, types.Zero()),
	)
	svc := NewService(repo, txRunner{}, nil)
	ctx := context.Background()

	items, err := svc.RequireTyped(ctx, TypeNormal, "BUN", "BUN")
	require.NoError(t, err)
	assert.Len(t, items, 1)

	_, err = svc.RequireTyped(ctx, TypeNormal, "BUN", "NOPE")
	assert.True(t, apperror.IsNotFound(err))

	_, err = svc.RequireTyped(ctx, TypeNormal, "FLOUR")
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestService_ListByType(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, txRunner{}, nil)

	_, err := svc.ListByType(context.Background(), TypeGrocery, domain.ListFilter{Limit: 10000})
	require.NoError(t, err)
	require.Len(t, repo.lastFilter.AdvancedFilters, 1)
	assert.Equal(t, "item_type", repo.lastFilter.AdvancedFilters[0].Field)
	assert.Equal(t, domain.MaxListLimit, repo.lastFilter.Limit)

	_, err = svc.ListByType(context.Background(), Type("Cake"), domain.ListFilter{})
	assert.Error(t, err)
}
