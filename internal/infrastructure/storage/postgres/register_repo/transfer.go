package register_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"bakehouse/internal/domain/registers/transfer"
	"bakehouse/internal/infrastructure/storage/postgres"
)

const stockTransfersTable = "stock_transfers"

var transferColumns = []string{
	"id", "kind", "date", "from_branch", "to_branch", "item_code", "quantity", "created_by", "created_at",
}

// TransferRepo implements transfer.Repository.
type TransferRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

var _ transfer.Repository = (*TransferRepo)(nil)

// NewTransferRepo creates a new transfer repository.
func NewTransferRepo(txManager *postgres.TxManager) *TransferRepo {
	return &TransferRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Insert writes transfers with COPY; requires a transaction.
func (r *TransferRepo) Insert(ctx context.Context, transfers ...*transfer.Transfer) error {
	rows := make([][]any, 0, len(transfers))
	for _, t := range transfers {
		rows = append(rows, []any{
			t.ID, string(t.Kind), t.Date, t.FromBranch, t.ToBranch, t.ItemCode,
			t.Quantity.Int64Scaled(), t.CreatedBy, t.CreatedAt,
		})
	}
	if _, err := r.txManager.CopyRows(ctx, stockTransfersTable, transferColumns, rows); err != nil {
		return fmt.Errorf("copy transfers: %w", err)
	}
	return nil
}

// List returns transfers matching the filter, oldest first.
func (r *TransferRepo) List(ctx context.Context, f transfer.Filter) ([]*transfer.Transfer, error) {
	q := r.builder.
		Select(transferColumns...).
		From(stockTransfersTable).
		OrderBy("created_at", "id")
	if !f.Date.IsZero() {
		q = q.Where(squirrel.Eq{"date": f.Date})
	}
	if f.Kind != "" {
		q = q.Where(squirrel.Eq{"kind": string(f.Kind)})
	}
	if f.Branches != nil {
		q = q.Where(squirrel.Or{
			squirrel.Eq{"from_branch": f.Branches},
			squirrel.Eq{"to_branch": f.Branches},
		})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []*transfer.Transfer
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	return out, nil
}
