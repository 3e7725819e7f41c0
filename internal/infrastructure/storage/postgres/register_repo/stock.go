// Package register_repo provides PostgreSQL implementations for the ledger repositories.
package register_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"bakehouse/internal/domain/registers/stock"
	"bakehouse/internal/infrastructure/storage/postgres"
)

const stockEntriesTable = "stock_entries"

var stockEntryColumns = []string{
	"date", "branch", "item_code", "item_name",
	"added", "returned", "transferred", "sold", "updated_at",
}

// StockRepo implements stock.Repository.
type StockRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

var _ stock.Repository = (*StockRepo)(nil)

// NewStockRepo creates a new discrete ledger repository.
func NewStockRepo(txManager *postgres.TxManager) *StockRepo {
	return &StockRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// ListEntries returns all rows of a (date, branch) ordered by item code.
func (r *StockRepo) ListEntries(ctx context.Context, date time.Time, branch string) ([]*stock.Entry, error) {
	sql, args, err := r.builder.
		Select(stockEntryColumns...).
		From(stockEntriesTable).
		Where(squirrel.Eq{"date": date, "branch": branch}).
		OrderBy("item_code").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var entries []*stock.Entry
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &entries, sql, args...); err != nil {
		return nil, fmt.Errorf("list stock entries: %w", err)
	}
	return entries, nil
}

// LockEntries returns existing rows for the codes with FOR UPDATE, ordered by item code.
func (r *StockRepo) LockEntries(ctx context.Context, date time.Time, branch string, codes []string) ([]*stock.Entry, error) {
	tx, err := r.txManager.RequireTx(ctx, "LockEntries")
	if err != nil {
		return nil, err
	}
	if len(codes) == 0 {
		return nil, nil
	}

	sql, args, err := r.builder.
		Select(stockEntryColumns...).
		From(stockEntriesTable).
		Where(squirrel.Eq{"date": date, "branch": branch, "item_code": codes}).
		OrderBy("item_code").
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var entries []*stock.Entry
	if err := pgxscan.Select(ctx, tx, &entries, sql, args...); err != nil {
		return nil, fmt.Errorf("lock stock entries: %w", err)
	}
	return entries, nil
}

// AddQuantities upserts added += quantity and returns the resulting rows.
func (r *StockRepo) AddQuantities(ctx context.Context, date time.Time, branch string, adds []stock.Addition) ([]*stock.Entry, error) {
	tx, err := r.txManager.RequireTx(ctx, "AddQuantities")
	if err != nil {
		return nil, err
	}
	if len(adds) == 0 {
		return nil, nil
	}

	q := r.builder.
		Insert(stockEntriesTable).
		Columns("date", "branch", "item_code", "item_name", "added", "updated_at")
	for _, a := range adds {
		q = q.Values(date, branch, a.ItemCode, a.ItemName, a.Quantity, squirrel.Expr("now()"))
	}
	q = q.Suffix(`ON CONFLICT (date, branch, item_code) DO UPDATE SET
			added = stock_entries.added + EXCLUDED.added,
			item_name = EXCLUDED.item_name,
			updated_at = now()
		RETURNING ` + joinColumns(stockEntryColumns))

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build upsert: %w", err)
	}

	var entries []*stock.Entry
	if err := pgxscan.Select(ctx, tx, &entries, sql, args...); err != nil {
		return nil, fmt.Errorf("upsert stock entries: %w", err)
	}
	return entries, nil
}

// SaveCounters persists returned, transferred and sold of the given rows in one round-trip.
func (r *StockRepo) SaveCounters(ctx context.Context, entries []*stock.Entry) error {
	stmts := make([]postgres.Statement, 0, len(entries))
	for _, e := range entries {
		stmts = append(stmts, postgres.Statement{
			Query: r.builder.
				Update(stockEntriesTable).
				Set("returned", e.Returned).
				Set("transferred", e.Transferred).
				Set("sold", e.Sold).
				Set("updated_at", squirrel.Expr("now()")).
				Where(squirrel.Eq{"date": e.Date, "branch": e.Branch, "item_code": e.ItemCode}),
			ExpectRows: 1,
		})
	}
	return r.txManager.ExecBatch(ctx, stmts...)
}

// RecomputeSold sets sold = added − returned − transferred for every row of (date, branch).
func (r *StockRepo) RecomputeSold(ctx context.Context, date time.Time, branch string) (int64, error) {
	sql, args, err := r.builder.
		Update(stockEntriesTable).
		Set("sold", squirrel.Expr("added - returned - transferred")).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"date": date, "branch": branch}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("recompute sold: %w", err)
	}
	return tag.RowsAffected(), nil
}
