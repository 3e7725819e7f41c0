package register_repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"bakehouse/internal/domain/closing"
	"bakehouse/internal/infrastructure/storage/postgres"
)

const finishedBatchesTable = "finished_batches"

var finishedColumns = []string{"date", "branch", "item_type", "finished_at", "finished_by"}

// ClosingRepo implements closing.Repository.
type ClosingRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

var _ closing.Repository = (*ClosingRepo)(nil)

// NewClosingRepo creates a new finished flag repository.
func NewClosingRepo(txManager *postgres.TxManager) *ClosingRepo {
	return &ClosingRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// LockScope takes a transaction-scoped advisory lock keyed on the scope.
func (r *ClosingRepo) LockScope(ctx context.Context, scope closing.Scope, exclusive bool) error {
	tx, err := r.txManager.RequireTx(ctx, "LockScope")
	if err != nil {
		return err
	}

	fn := "pg_advisory_xact_lock_shared"
	if exclusive {
		fn = "pg_advisory_xact_lock"
	}
	if _, err := tx.Exec(ctx, "SELECT "+fn+"(hashtextextended($1, 0))", scope.Key()); err != nil {
		if postgres.IsLockTimeout(err) {
			return fmt.Errorf("scope %s is busy: %w", scope.Key(), err)
		}
		return err
	}
	return nil
}

// Get returns the flag or nil when the scope is open.
func (r *ClosingRepo) Get(ctx context.Context, scope closing.Scope) (*closing.Flag, error) {
	sql, args, err := r.builder.
		Select(finishedColumns...).
		From(finishedBatchesTable).
		Where(squirrel.Eq{"date": scope.Date, "branch": scope.Branch, "item_type": scope.ItemType}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var flag closing.Flag
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &flag, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get finished flag: %w", err)
	}
	return &flag, nil
}

// Insert stores a flag; the primary key turns a concurrent duplicate into ErrFlagExists.
func (r *ClosingRepo) Insert(ctx context.Context, f *closing.Flag) error {
	sql, args, err := r.builder.
		Insert(finishedBatchesTable).
		Columns(finishedColumns...).
		Values(f.Date, f.Branch, f.ItemType, f.FinishedAt, f.FinishedBy).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		if postgres.IsUniqueViolation(err) {
			return errors.Join(closing.ErrFlagExists, err)
		}
		return fmt.Errorf("insert finished flag: %w", err)
	}
	return nil
}

// ListByDate returns flags of a date; nil branches means all.
func (r *ClosingRepo) ListByDate(ctx context.Context, date time.Time, branches []string) ([]*closing.Flag, error) {
	q := r.builder.
		Select(finishedColumns...).
		From(finishedBatchesTable).
		Where(squirrel.Eq{"date": date}).
		OrderBy("branch", "item_type")
	if branches != nil {
		q = q.Where(squirrel.Eq{"branch": branches})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var flags []*closing.Flag
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &flags, sql, args...); err != nil {
		return nil, fmt.Errorf("list finished flags: %w", err)
	}
	return flags, nil
}
