package catalog_repo

import (
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"

	"bakehouse/internal/core/apperror"
	"bakehouse/internal/domain"
	"bakehouse/internal/domain/filter"
)

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// table is a catalog table and the columns it exposes. Filters and ordering
// are only accepted on those columns.
type table struct {
	name    string
	columns []string
	known   map[string]struct{}
}

func newTable(name string, columns []string) table {
	known := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		known[c] = struct{}{}
	}
	return table{name: name, columns: columns, known: known}
}

func (t table) has(col string) bool {
	_, ok := t.known[col]
	return ok
}

func (t table) selectAll() squirrel.SelectBuilder {
	return psql.Select(t.columns...).From(t.name)
}

func (t table) listQuery(f domain.ListFilter) (squirrel.SelectBuilder, error) {
	q := t.selectAll()
	if !f.IncludeInactive {
		q = q.Where(squirrel.Eq{"is_active": true})
	}
	if f.Search != "" {
		like := "%" + f.Search + "%"
		q = q.Where(squirrel.Or{squirrel.ILike{"name": like}, squirrel.ILike{"code": like}})
	}
	if len(f.Codes) > 0 {
		q = q.Where(squirrel.Eq{"code": f.Codes})
	}
	for _, it := range f.AdvancedFilters {
		cond, err := t.condition(it)
		if err != nil {
			return q, err
		}
		q = q.Where(cond)
	}
	return q, nil
}

var conditions = map[filter.ComparisonType]func(col string, v any) squirrel.Sqlizer{
	filter.Equal:          func(c string, v any) squirrel.Sqlizer { return squirrel.Eq{c: v} },
	filter.InList:         func(c string, v any) squirrel.Sqlizer { return squirrel.Eq{c: v} },
	filter.NotEqual:       func(c string, v any) squirrel.Sqlizer { return squirrel.NotEq{c: v} },
	filter.NotInList:      func(c string, v any) squirrel.Sqlizer { return squirrel.NotEq{c: v} },
	filter.Less:           func(c string, v any) squirrel.Sqlizer { return squirrel.Lt{c: v} },
	filter.LessOrEqual:    func(c string, v any) squirrel.Sqlizer { return squirrel.LtOrEq{c: v} },
	filter.Greater:        func(c string, v any) squirrel.Sqlizer { return squirrel.Gt{c: v} },
	filter.GreaterOrEqual: func(c string, v any) squirrel.Sqlizer { return squirrel.GtOrEq{c: v} },
	filter.IsNull:         func(c string, _ any) squirrel.Sqlizer { return squirrel.Eq{c: nil} },
	filter.IsNotNull:      func(c string, _ any) squirrel.Sqlizer { return squirrel.NotEq{c: nil} },
	filter.Contains: func(c string, v any) squirrel.Sqlizer {
		return squirrel.ILike{c: fmt.Sprintf("%%%v%%", v)}
	},
	filter.NotContains: func(c string, v any) squirrel.Sqlizer {
		return squirrel.NotILike{c: fmt.Sprintf("%%%v%%", v)}
	},
}

func (t table) condition(it filter.Item) (squirrel.Sqlizer, error) {
	if !t.has(it.Field) {
		return nil, apperror.NewValidation("invalid filter column").WithDetail("field", it.Field)
	}
	build, ok := conditions[it.Operator]
	if !ok {
		return nil, apperror.NewValidation("invalid filter operator").WithDetail("operator", string(it.Operator))
	}
	return build(it.Field, it.Value), nil
}

// orderBy turns "name" / "-created_at" into an ORDER BY term.
func (t table) orderBy(order string) (string, error) {
	if order == "" {
		return "name ASC", nil
	}
	dir := "ASC"
	col := strings.TrimPrefix(order, "+")
	if rest, desc := strings.CutPrefix(order, "-"); desc {
		dir, col = "DESC", rest
	}
	col = strings.TrimSpace(col)
	if !t.has(col) {
		return "", apperror.NewValidation("invalid orderBy").WithDetail("orderBy", order)
	}
	return col + " " + dir, nil
}
