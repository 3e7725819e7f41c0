package catalog_repo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bakehouse/internal/core/apperror"
	"bakehouse/internal/domain"
	"bakehouse/internal/domain/catalogs/item"
	"bakehouse/internal/domain/filter"
	"bakehouse/internal/infrastructure/storage/postgres"
)

func testTable() table {
	return newTable("cat_test", []string{"code", "name", "price", "is_active"})
}

func TestCondition(t *testing.T) {
	tbl := testTable()

	tests := []struct {
		name     string
		item     filter.Item
		wantSQL  string
		wantArgs []any
	}{
		{"Greater", filter.Item{Field: "price", Operator: filter.Greater, Value: 10}, "price > $1", []any{10}},
		{"LessOrEqual", filter.Item{Field: "price", Operator: filter.LessOrEqual, Value: 5}, "price <= $1", []any{5}},
		{"Contains", filter.Item{Field: "name", Operator: filter.Contains, Value: "bun"}, "name ILIKE $1", []any{"%bun%"}},
		{"IsNull", filter.Item{Field: "price", Operator: filter.IsNull}, "price IS NULL", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := tbl.listQuery(domain.ListFilter{IncludeInactive: true, AdvancedFilters: []filter.Item{tt.item}})
			require.NoError(t, err)

			sql, args, err := q.ToSql()
			require.NoError(t, err)
			assert.Equal(t, "SELECT code, name, price, is_active FROM cat_test WHERE "+tt.wantSQL, sql)
			if tt.wantArgs == nil {
				assert.Empty(t, args)
			} else {
				assert.Equal(t, tt.wantArgs, args)
			}
		})
	}
}

func TestCondition_Rejects(t *testing.T) {
	tbl := testTable()

	_, err := tbl.condition(filter.Eq("password", "x"))
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	_, err = tbl.condition(filter.Item{Field: "price", Operator: "in_hierarchy"})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestListQuery_DefaultsToActive(t *testing.T) {
	q, err := testTable().listQuery(domain.ListFilter{Search: "bread"})
	require.NoError(t, err)
	sql, args, err := q.ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT code, name, price, is_active FROM cat_test WHERE is_active = $1 AND (name ILIKE $2 OR code ILIKE $3)", sql)
	assert.Equal(t, []any{true, "%bread%", "%bread%"}, args)
}

func TestOrderBy(t *testing.T) {
	tbl := testTable()

	got, err := tbl.orderBy("-price")
	require.NoError(t, err)
	assert.Equal(t, "price DESC", got)

	got, err = tbl.orderBy("+code")
	require.NoError(t, err)
	assert.Equal(t, "code ASC", got)

	got, err = tbl.orderBy("")
	require.NoError(t, err)
	assert.Equal(t, "name ASC", got)

	_, err = tbl.orderBy("price; DROP TABLE x")
	assert.Error(t, err)
}

func TestItemColumns(t *testing.T) {
	cols := postgres.ExtractDBColumns[item.Item]()
	for _, c := range []string{"id", "is_active", "version", "code", "name", "item_type", "unit_kind", "price"} {
		assert.Contains(t, cols, c)
	}
}
