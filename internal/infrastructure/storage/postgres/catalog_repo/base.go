// Package catalog_repo stores the item and branch catalogs in PostgreSQL.
package catalog_repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"bakehouse/internal/core/apperror"
	"bakehouse/internal/domain"
	"bakehouse/internal/infrastructure/storage/postgres"
)

// Repo implements domain.CatalogRepository over one table whose columns
// are the "db" tags of T.
type Repo[T any] struct {
	table
	txm   *postgres.TxManager
	newFn func() T
}

func NewRepo[T any](txm *postgres.TxManager, tableName string, columns []string, newFn func() T) *Repo[T] {
	return &Repo[T]{table: newTable(tableName, columns), txm: txm, newFn: newFn}
}

func (r *Repo[T]) q(ctx context.Context) postgres.Querier {
	return r.txm.GetQuerier(ctx)
}

// values returns the entity's column values, limited to the table's columns
// and minus skip.
func (r *Repo[T]) values(e T, skip ...string) (map[string]any, error) {
	all := postgres.StructToMap(e)
	if len(all) == 0 {
		return nil, fmt.Errorf("%s: entity has no db columns", r.name)
	}
	out := make(map[string]any, len(r.columns))
	for _, c := range r.columns {
		if v, ok := all[c]; ok {
			out[c] = v
		}
	}
	for _, c := range skip {
		delete(out, c)
	}
	return out, nil
}

func (r *Repo[T]) Create(ctx context.Context, e T) error {
	vals, err := r.values(e)
	if err != nil {
		return err
	}
	sql, args, err := psql.Insert(r.name).SetMap(vals).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.q(ctx).Exec(ctx, sql, args...); err != nil {
		if postgres.IsUniqueViolation(err) {
			code, _ := vals["code"].(string)
			return apperror.NewDuplicate(r.name, "code", code).WithCause(err)
		}
		return fmt.Errorf("insert %s: %w", r.name, err)
	}
	return nil
}

// Update writes the mutable columns when the stored version still matches.
func (r *Repo[T]) Update(ctx context.Context, e T) error {
	vals, err := r.values(e)
	if err != nil {
		return err
	}
	key, version := vals["id"], vals["version"]
	if key == nil || version == nil {
		return fmt.Errorf("%s: entity lacks id or version", r.name)
	}
	for _, c := range []string{"id", "code", "version", "created_at", "updated_at"} {
		delete(vals, c)
	}

	sql, args, err := psql.Update(r.name).
		SetMap(vals).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": key, "version": version}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.q(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", r.name, err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConcurrentModification(r.name, key)
	}
	return nil
}

func (r *Repo[T]) SetActive(ctx context.Context, code string, active bool) error {
	sql, args, err := psql.Update(r.name).
		Set("is_active", active).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"code": code}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build set active: %w", err)
	}

	tag, err := r.q(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("set active %s: %w", r.name, err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound(r.name, code)
	}
	return nil
}

func (r *Repo[T]) GetByCode(ctx context.Context, code string) (T, error) {
	e := r.newFn()
	sql, args, err := r.selectAll().
		Where(squirrel.Eq{"code": code, "is_active": true}).
		Limit(1).
		ToSql()
	if err != nil {
		return e, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Get(ctx, r.q(ctx), e, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return e, apperror.NewNotFound(r.name, code)
		}
		return e, fmt.Errorf("get %s: %w", r.name, err)
	}
	return e, nil
}

func (r *Repo[T]) GetByCodes(ctx context.Context, codes []string) ([]T, error) {
	var out []T
	if len(codes) == 0 {
		return out, nil
	}
	sql, args, err := r.selectAll().
		Where(squirrel.Eq{"code": codes, "is_active": true}).
		OrderBy("code").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	if err := pgxscan.Select(ctx, r.q(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("get %s by codes: %w", r.name, err)
	}
	return out, nil
}

// List counts the filtered rows, then reads one ordered page of them.
func (r *Repo[T]) List(ctx context.Context, f domain.ListFilter) (domain.ListResult[T], error) {
	res := domain.ListResult[T]{Limit: f.Limit, Offset: f.Offset}

	q, err := r.listQuery(f)
	if err != nil {
		return res, err
	}
	order, err := r.orderBy(f.OrderBy)
	if err != nil {
		return res, err
	}

	countSQL, countArgs, err := psql.Select("COUNT(*)").FromSelect(q, "sub").ToSql()
	if err != nil {
		return res, fmt.Errorf("build count: %w", err)
	}
	db := r.q(ctx)
	if err := db.QueryRow(ctx, countSQL, countArgs...).Scan(&res.TotalCount); err != nil {
		return res, fmt.Errorf("count %s: %w", r.name, err)
	}

	q = q.OrderBy(order)
	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit))
	}
	if f.Offset > 0 {
		q = q.Offset(uint64(f.Offset))
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return res, fmt.Errorf("build list: %w", err)
	}
	if err := pgxscan.Select(ctx, db, &res.Items, sql, args...); err != nil {
		return res, fmt.Errorf("list %s: %w", r.name, err)
	}
	return res, nil
}

// ExistsByCode also sees deactivated rows; codes are never reused.
func (r *Repo[T]) ExistsByCode(ctx context.Context, code string) (bool, error) {
	sql, args, err := psql.Select("1").From(r.name).Where(squirrel.Eq{"code": code}).Limit(1).ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	var one int
	switch err := r.q(ctx).QueryRow(ctx, sql, args...).Scan(&one); {
	case errors.Is(err, pgx.ErrNoRows):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("exists %s: %w", r.name, err)
	}
	return true, nil
}
