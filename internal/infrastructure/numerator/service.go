// Package numerator stores lot token counters in sys_sequences.
package numerator

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	corenumerator "bakehouse/internal/core/numerator"
	"bakehouse/internal/infrastructure/storage/postgres"
)

// Querier is the part of pgx the numerator needs.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Service increments counters with a single UPSERT ... RETURNING, which
// row-locks the counter until the surrounding transaction ends. Numbers are
// therefore gapless: a rolled-back lot insert releases its number.
type Service struct {
	querier func(ctx context.Context) Querier
}

var _ corenumerator.Generator = (*Service)(nil)

// New creates a numerator over a fixed querier (pool or test double).
func New(querier Querier) *Service {
	return &Service{querier: func(context.Context) Querier { return querier }}
}

// NewTransactional creates a numerator that joins the caller's transaction when one is active.
func NewTransactional(txm *postgres.TxManager) *Service {
	return &Service{querier: func(ctx context.Context) Querier { return txm.GetQuerier(ctx) }}
}

const nextSQL = `
	INSERT INTO sys_sequences (key, current_val)
	VALUES ($1, 1)
	ON CONFLICT (key) DO UPDATE SET current_val = sys_sequences.current_val + 1
	RETURNING current_val
`

// Next implements corenumerator.Generator.
func (s *Service) Next(ctx context.Context, seq corenumerator.Sequence, period time.Time) (string, error) {
	if seq.Prefix == "" {
		return "", fmt.Errorf("numerator: empty prefix")
	}

	key := seq.Key(period)
	var n int64
	if err := s.querier(ctx).QueryRow(ctx, nextSQL, key).Scan(&n); err != nil {
		return "", fmt.Errorf("next %s: %w", key, err)
	}
	return seq.Format(period, n), nil
}
