package activity

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bakehouse/internal/core/apperror"
	appctx "bakehouse/internal/core/context"
)

type memRepo struct {
	entries    []*Entry
	lastFilter Filter
}

func (m *memRepo) Insert(_ context.Context, e *Entry) error {
	m.entries = append(m.entries, e)
	return nil
}

func (m *memRepo) List(_ context.Context, f Filter) ([]*Entry, error) {
	m.lastFilter = f
	return m.entries, nil
}

func userCtx(branches ...string) context.Context {
	return appctx.WithUser(context.Background(), &appctx.UserContext{UserID: "u-7", Branches: branches})
}

func TestRecord(t *testing.T) {
	repo := &memRepo{}
	svc := NewService(repo)

	err := svc.Record(userCtx("Main"), "Main", ActionStockAdd, "stock", "2024-01-01/Main", map[string]int{"X": 100})
	require.NoError(t, err)

	require.Len(t, repo.entries, 1)
	e := repo.entries[0]
	assert.Equal(t, "u-7", e.UserID)
	assert.Equal(t, ActionStockAdd, e.Action)
	assert.JSONEq(t, `{"X":100}`, string(e.Payload))
	assert.False(t, e.CreatedAt.IsZero())
}

func TestList_RestrictsBranches(t *testing.T) {
	repo := &memRepo{}
	svc := NewService(repo)

	_, err := svc.List(userCtx("Main", "North"), Filter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Main", "North"}, repo.lastFilter.Branches)
	assert.Equal(t, 100, repo.lastFilter.Limit)

	_, err = svc.List(userCtx("Main"), Filter{Branches: []string{"South"}})
	assert.True(t, apperror.HasCode(err, apperror.CodeForbidden))
}

func TestRecord_PayloadMustMarshal(t *testing.T) {
	svc := NewService(&memRepo{})
	err := svc.Record(userCtx("Main"), "Main", ActionStockAdd, "stock", "k", map[string]any{"bad": make(chan int)})
	assert.Error(t, err)

	var syntaxErr *json.UnsupportedTypeError
	assert.ErrorAs(t, err, &syntaxErr)
}
