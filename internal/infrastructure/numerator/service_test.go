package numerator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	corenumerator "bakehouse/internal/core/numerator"
)

type row struct {
	val int64
	err error
}

func (r row) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*int64)) = r.val
	return nil
}

// sequences simulates sys_sequences.
type sequences struct {
	mu     sync.Mutex
	values map[string]int64
	err    error
}

func (s *sequences) QueryRow(_ context.Context, _ string, args ...any) pgx.Row {
	if s.err != nil {
		return row{err: s.err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := args[0].(string)
	s.values[key]++
	return row{val: s.values[key]}
}

var period = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

func TestNext(t *testing.T) {
	db := &sequences{values: map[string]int64{}}
	svc := New(db)
	ctx := context.Background()

	tok, err := svc.Next(ctx, corenumerator.LotSequence("GB"), period)
	require.NoError(t, err)
	assert.Equal(t, "GB-2024-00001", tok)

	tok, err = svc.Next(ctx, corenumerator.LotSequence("GB"), period)
	require.NoError(t, err)
	assert.Equal(t, "GB-2024-00002", tok)

	tok, err = svc.Next(ctx, corenumerator.LotSequence("MB"), period)
	require.NoError(t, err)
	assert.Equal(t, "MB-2024-00001", tok)
	assert.Equal(t, map[string]int64{"GB_2024": 2, "MB_2024": 1}, db.values)
}

func TestNext_Errors(t *testing.T) {
	svc := New(&sequences{err: assert.AnError})
	_, err := svc.Next(context.Background(), corenumerator.LotSequence("GB"), period)
	assert.ErrorIs(t, err, assert.AnError)
	assert.ErrorContains(t, err, "GB_2024")

	_, err = New(&sequences{values: map[string]int64{}}).Next(context.Background(), corenumerator.Sequence{}, period)
	assert.Error(t, err)
}
