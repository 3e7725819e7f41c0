// Package report_repo provides PostgreSQL implementations for report repositories.
package report_repo

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"bakehouse/internal/core/types"
	"bakehouse/internal/domain/reports"
	"bakehouse/internal/infrastructure/storage/postgres"
)

// ReportRepo implements reports.Repository.
type ReportRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

var _ reports.Repository = (*ReportRepo)(nil)

// NewReportRepo creates a new report repository.
func NewReportRepo(txManager *postgres.TxManager) *ReportRepo {
	return &ReportRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *ReportRepo) selectInto(ctx context.Context, dst any, q squirrel.Sqlizer, what string) error {
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build %s query: %w", what, err)
	}
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), dst, sql, args...); err != nil {
		return fmt.Errorf("%s report: %w", what, err)
	}
	return nil
}

func withBranches(q squirrel.SelectBuilder, column string, branches []string) squirrel.SelectBuilder {
	if branches == nil {
		return q
	}
	return q.Where(squirrel.Eq{column: branches})
}

// DiscreteTotals sums stock_entries per branch and values sold units at the current item price.
func (r *ReportRepo) DiscreteTotals(ctx context.Context, date time.Time, branches []string) ([]reports.DiscreteTotals, error) {
	q := r.builder.
		Select(
			"s.branch",
			"COUNT(*) AS items",
			"COALESCE(SUM(s.added), 0)::bigint AS added",
			"COALESCE(SUM(s.returned), 0)::bigint AS returned",
			"COALESCE(SUM(s.transferred), 0)::bigint AS transferred",
			"COALESCE(SUM(GREATEST(0, s.added - s.returned - s.transferred)), 0)::bigint AS available",
			"COALESCE(SUM(s.sold), 0)::bigint AS sold",
			"COALESCE(SUM(s.sold * i.price), 0)::numeric(14,2) AS sold_value",
		).
		From("stock_entries s").
		LeftJoin("cat_items i ON i.code = s.item_code").
		Where(squirrel.Eq{"s.date": date}).
		GroupBy("s.branch").
		OrderBy("s.branch")
	q = withBranches(q, "s.branch", branches)

	var out []reports.DiscreteTotals
	if err := r.selectInto(ctx, &out, q, "discrete totals"); err != nil {
		return nil, err
	}
	return out, nil
}

// GroceryTotals sums grocery sales and returns of a day per branch.
func (r *ReportRepo) GroceryTotals(ctx context.Context, date time.Time, branches []string) ([]reports.GroceryTotals, error) {
	sales := r.builder.
		Select(
			"branch",
			"COALESCE(SUM(sold_qty), 0)::bigint AS sold_qty",
			"COALESCE(SUM(total_cash), 0)::numeric(14,2) AS sales_cash",
		).
		From("grocery_sales").
		Where(squirrel.Eq{"date": date}).
		GroupBy("branch")
	sales = withBranches(sales, "branch", branches)

	returns := r.builder.
		Select(
			"branch",
			"COALESCE(SUM(returned_qty), 0)::bigint AS returned_qty",
			"COALESCE(SUM(total_value), 0)::numeric(14,2) AS returns_value",
		).
		From("grocery_returns").
		Where(squirrel.Eq{"date": date}).
		GroupBy("branch")
	returns = withBranches(returns, "branch", branches)

	var soldRows, returnRows []reports.GroceryTotals
	if err := r.selectInto(ctx, &soldRows, sales, "grocery sales"); err != nil {
		return nil, err
	}
	if err := r.selectInto(ctx, &returnRows, returns, "grocery returns"); err != nil {
		return nil, err
	}

	byBranch := make(map[string]*reports.GroceryTotals)
	var order []string
	row := func(branch string) *reports.GroceryTotals {
		t, ok := byBranch[branch]
		if !ok {
			t = &reports.GroceryTotals{Branch: branch, SalesCash: types.Zero(), ReturnsValue: types.Zero()}
			byBranch[branch] = t
			order = append(order, branch)
		}
		return t
	}
	for _, s := range soldRows {
		t := row(s.Branch)
		t.SoldQty, t.SalesCash = s.SoldQty, s.SalesCash
	}
	for _, rt := range returnRows {
		t := row(rt.Branch)
		t.ReturnedQty, t.ReturnsValue = rt.ReturnedQty, rt.ReturnsValue
	}

	sort.Strings(order)
	out := make([]reports.GroceryTotals, 0, len(order))
	for _, b := range order {
		out = append(out, *byBranch[b])
	}
	return out, nil
}

// MachineTotals sums machine sales of a day per branch.
func (r *ReportRepo) MachineTotals(ctx context.Context, date time.Time, branches []string) ([]reports.MachineTotals, error) {
	q := r.builder.
		Select(
			"branch",
			"COUNT(*) AS batches",
			"COALESCE(SUM(sold_qty), 0)::bigint AS sold_qty",
			"COALESCE(SUM(total_cash), 0)::numeric(14,2) AS sales_cash",
		).
		From("machine_sales").
		Where(squirrel.Eq{"date": date}).
		GroupBy("branch").
		OrderBy("branch")
	q = withBranches(q, "branch", branches)

	var out []reports.MachineTotals
	if err := r.selectInto(ctx, &out, q, "machine totals"); err != nil {
		return nil, err
	}
	return out, nil
}

// ExpiringBatches returns non-empty lots expiring on or before until, soonest first.
func (r *ReportRepo) ExpiringBatches(ctx context.Context, until time.Time, branches []string) ([]reports.ExpiringBatch, error) {
	q := r.builder.
		Select("batch_id", "item_code", "item_name", "branch", "remaining", "expiry_date").
		From("grocery_batches").
		Where(squirrel.Gt{"remaining": 0}).
		Where(squirrel.LtOrEq{"expiry_date": until}).
		OrderBy("expiry_date", "branch", "item_code", "batch_id")
	q = withBranches(q, "branch", branches)

	var out []reports.ExpiringBatch
	if err := r.selectInto(ctx, &out, q, "expiring batches"); err != nil {
		return nil, err
	}
	return out, nil
}
