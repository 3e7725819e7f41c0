package register_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"bakehouse/internal/core/types"
	"bakehouse/internal/domain/registers/grocery"
	"bakehouse/internal/infrastructure/storage/postgres"
)

const (
	groceryBatchesTable = "grocery_batches"
	grocerySalesTable   = "grocery_sales"
	groceryReturnsTable = "grocery_returns"
)

var groceryBatchColumns = []string{
	"id", "batch_id", "item_code", "item_name", "branch",
	"quantity", "remaining", "expiry_date", "added_date", "source_batch_id", "created_at",
}

var grocerySaleColumns = []string{
	"id", "item_code", "item_name", "branch", "date",
	"sold_qty", "unit_price", "total_cash", "created_by", "created_at",
}

var groceryReturnColumns = []string{
	"id", "item_code", "item_name", "branch", "date",
	"returned_qty", "reason", "total_value", "created_by", "created_at",
}

// fifoOrder is the consumption order of lots.
var fifoOrder = []string{"expiry_date", "added_date", "created_at", "id"}

// GroceryRepo implements grocery.Repository.
type GroceryRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

var _ grocery.Repository = (*GroceryRepo)(nil)

// NewGroceryRepo creates a new batch-expiry ledger repository.
func NewGroceryRepo(txManager *postgres.TxManager) *GroceryRepo {
	return &GroceryRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// InsertBatches writes new lots with COPY; requires a transaction.
func (r *GroceryRepo) InsertBatches(ctx context.Context, batches ...*grocery.Batch) error {
	if len(batches) == 0 {
		return nil
	}
	rows := make([][]any, 0, len(batches))
	for _, b := range batches {
		rows = append(rows, []any{
			b.ID, b.BatchID, b.ItemCode, b.ItemName, b.Branch,
			b.Quantity.Int64Scaled(), b.Remaining.Int64Scaled(),
			b.ExpiryDate, b.AddedDate, b.SourceBatchID, b.CreatedAt,
		})
	}
	if _, err := r.txManager.CopyRows(ctx, groceryBatchesTable, groceryBatchColumns, rows); err != nil {
		return fmt.Errorf("copy grocery batches: %w", err)
	}
	return nil
}

// LockBatches selects every lot of (branch, item) in FIFO order with FOR UPDATE.
func (r *GroceryRepo) LockBatches(ctx context.Context, branch, itemCode string) ([]*grocery.Batch, error) {
	tx, err := r.txManager.RequireTx(ctx, "LockBatches")
	if err != nil {
		return nil, err
	}

	sql, args, err := r.builder.
		Select(groceryBatchColumns...).
		From(groceryBatchesTable).
		Where(squirrel.Eq{"branch": branch, "item_code": itemCode}).
		OrderBy(fifoOrder...).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var batches []*grocery.Batch
	if err := pgxscan.Select(ctx, tx, &batches, sql, args...); err != nil {
		return nil, fmt.Errorf("lock grocery batches: %w", err)
	}
	return batches, nil
}

// SaveRemaining persists remaining of the given lots in one round-trip.
func (r *GroceryRepo) SaveRemaining(ctx context.Context, batches []*grocery.Batch) error {
	stmts := make([]postgres.Statement, 0, len(batches))
	for _, b := range batches {
		stmts = append(stmts, postgres.Statement{
			Query: r.builder.
				Update(groceryBatchesTable).
				Set("remaining", b.Remaining.Int64Scaled()).
				Where(squirrel.Eq{"id": b.ID}),
			ExpectRows: 1,
		})
	}
	return r.txManager.ExecBatch(ctx, stmts...)
}

// ListBatches returns lots of a branch in FIFO order.
func (r *GroceryRepo) ListBatches(ctx context.Context, f grocery.BatchFilter) ([]*grocery.Batch, error) {
	q := r.builder.
		Select(groceryBatchColumns...).
		From(groceryBatchesTable).
		Where(squirrel.Eq{"branch": f.Branch}).
		OrderBy(append([]string{"item_code"}, fifoOrder...)...)
	if f.ItemCode != "" {
		q = q.Where(squirrel.Eq{"item_code": f.ItemCode})
	}
	if !f.IncludeEmpty {
		q = q.Where(squirrel.Gt{"remaining": 0})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var batches []*grocery.Batch
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &batches, sql, args...); err != nil {
		return nil, fmt.Errorf("list grocery batches: %w", err)
	}
	return batches, nil
}

// SumRemaining returns the total remaining of (branch, item); zero when there are no lots.
func (r *GroceryRepo) SumRemaining(ctx context.Context, branch, itemCode string) (types.Quantity, error) {
	sql, args, err := r.builder.
		Select("COALESCE(SUM(remaining), 0)").
		From(groceryBatchesTable).
		Where(squirrel.Eq{"branch": branch, "item_code": itemCode}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var total int64
	if err := r.txManager.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum remaining: %w", err)
	}
	return types.NewQuantityFromInt64Scaled(total), nil
}

// InsertSale appends a sale fact.
func (r *GroceryRepo) InsertSale(ctx context.Context, s *grocery.Sale) error {
	sql, args, err := r.builder.
		Insert(grocerySalesTable).
		Columns(grocerySaleColumns...).
		Values(s.ID, s.ItemCode, s.ItemName, s.Branch, s.Date,
			s.SoldQty.Int64Scaled(), s.UnitPrice, s.TotalCash, s.CreatedBy, s.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert grocery sale: %w", err)
	}
	return nil
}

// InsertReturn appends a return fact.
func (r *GroceryRepo) InsertReturn(ctx context.Context, ret *grocery.Return) error {
	sql, args, err := r.builder.
		Insert(groceryReturnsTable).
		Columns(groceryReturnColumns...).
		Values(ret.ID, ret.ItemCode, ret.ItemName, ret.Branch, ret.Date,
			ret.ReturnedQty.Int64Scaled(), ret.Reason, ret.TotalValue, ret.CreatedBy, ret.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert grocery return: %w", err)
	}
	return nil
}

// ListSales returns sales matching the filter, newest first.
func (r *GroceryRepo) ListSales(ctx context.Context, f grocery.RecordFilter) ([]*grocery.Sale, error) {
	sql, args, err := r.recordQuery(grocerySalesTable, grocerySaleColumns, f).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var out []*grocery.Sale
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("list grocery sales: %w", err)
	}
	return out, nil
}

// ListReturns returns returns matching the filter, newest first.
func (r *GroceryRepo) ListReturns(ctx context.Context, f grocery.RecordFilter) ([]*grocery.Return, error) {
	sql, args, err := r.recordQuery(groceryReturnsTable, groceryReturnColumns, f).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var out []*grocery.Return
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("list grocery returns: %w", err)
	}
	return out, nil
}

func (r *GroceryRepo) recordQuery(table string, cols []string, f grocery.RecordFilter) squirrel.SelectBuilder {
	q := r.builder.
		Select(cols...).
		From(table).
		OrderBy("date DESC", "created_at DESC")
	if f.Branches != nil {
		q = q.Where(squirrel.Eq{"branch": f.Branches})
	}
	if !f.From.IsZero() {
		q = q.Where(squirrel.GtOrEq{"date": f.From})
	}
	if !f.To.IsZero() {
		q = q.Where(squirrel.LtOrEq{"date": f.To})
	}
	return q
}
