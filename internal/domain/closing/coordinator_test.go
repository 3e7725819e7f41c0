package closing_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bakehouse/internal/core/apperror"
	appctx "bakehouse/internal/core/context"
	"bakehouse/internal/core/events"
	"bakehouse/internal/domain/catalogs/item"
	"bakehouse/internal/domain/closing"
	"bakehouse/internal/domain/closing/closingtest"
)

type txRunner struct{}

func (txRunner) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

var day = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestScope_Key(t *testing.T) {
	s := closing.NewScope(time.Date(2024, 1, 1, 15, 30, 0, 0, time.UTC), " Main ", item.TypeNormal)
	assert.Equal(t, "2024-01-01/Main/Normal Item", s.Key())
	assert.NoError(t, s.Validate())

	assert.Error(t, closing.NewScope(time.Time{}, "Main", item.TypeNormal).Validate())
	assert.Error(t, closing.NewScope(day, "", item.TypeNormal).Validate())
}

func TestCoordinator_FinishOnce(t *testing.T) {
	repo := closingtest.NewMemoryRepository()
	rec := &events.Recorder{}
	c := closing.NewCoordinator(repo, txRunner{}, rec, nil)
	ctx := appctx.WithUser(context.Background(), &appctx.UserContext{UserID: "u-1"})
	scope := closing.NewScope(day, "Main", item.TypeNormal)

	calls := 0
	flag, err := c.Finish(ctx, scope, func(context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "u-1", flag.FinishedBy)
	assert.Equal(t, 1, calls)
	assert.Equal(t, []string{"batch.finished"}, rec.Types())

	_, err = c.Finish(ctx, scope, func(context.Context) error {
		calls++
		return nil
	})
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeAlreadyFinished))
	assert.Equal(t, 1, calls)

	st, err := c.Status(ctx, scope)
	require.NoError(t, err)
	assert.True(t, st.IsFinished)
	require.NotNil(t, st.FinishedAt)
	assert.Equal(t, flag.FinishedAt, *st.FinishedAt)
}

func TestCoordinator_FinishRollsBackOnHookError(t *testing.T) {
	repo := closingtest.NewMemoryRepository()
	c := closing.NewCoordinator(repo, txRunner{}, nil, nil)
	scope := closing.NewScope(day, "Main", item.TypeGrocery)
	boom := errors.New("boom")

	_, err := c.Finish(context.Background(), scope, func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{scope.Key() + ":exclusive"}, repo.Locks)
}

func TestCoordinator_EnsureOpen(t *testing.T) {
	repo := closingtest.NewMemoryRepository()
	c := closing.NewCoordinator(repo, txRunner{}, nil, nil)
	ctx := context.Background()
	main := closing.NewScope(day, "Main", item.TypeNormal)
	harbor := closing.NewScope(day, "Harbor", item.TypeNormal)

	require.NoError(t, c.EnsureOpen(ctx, main, harbor, main))
	// locked in key order, duplicates dropped
	assert.Equal(t, []string{harbor.Key() + ":shared", main.Key() + ":shared"}, repo.Locks)

	_, err := c.Finish(ctx, harbor, nil)
	require.NoError(t, err)

	err = c.EnsureOpen(ctx, main, harbor)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeBatchLocked, appErr.Code)
	assert.Equal(t, 423, appErr.HTTPStatus)

	// other item types of the same day and branch stay open
	assert.NoError(t, c.EnsureOpen(ctx, closing.NewScope(day, "Harbor", item.TypeGrocery)))
}

func TestCoordinator_ListFinished(t *testing.T) {
	repo := closingtest.NewMemoryRepository()
	c := closing.NewCoordinator(repo, txRunner{}, nil, nil)
	ctx := context.Background()

	_, err := c.Finish(ctx, closing.NewScope(day, "Main", item.TypeNormal), nil)
	require.NoError(t, err)
	_, err = c.Finish(ctx, closing.NewScope(day, "Harbor", item.TypeNormal), nil)
	require.NoError(t, err)
	_, err = c.Finish(ctx, closing.NewScope(day.AddDate(0, 0, 1), "Main", item.TypeNormal), nil)
	require.NoError(t, err)

	all, err := c.ListFinished(ctx, day, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mainOnly, err := c.ListFinished(ctx, day, []string{"Main"})
	require.NoError(t, err)
	require.Len(t, mainOnly, 1)
	assert.Equal(t, "Main", mainOnly[0].Branch)
}
