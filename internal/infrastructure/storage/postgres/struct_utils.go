package postgres

import (
	"reflect"
	"strings"
	"sync"
)

// column is a db-tagged field, addressed by its index path so embedded
// structs (entity.Catalog, entity.BaseEntity) resolve with one FieldByIndex.
type column struct {
	name  string
	index []int
}

var columnCache sync.Map // reflect.Type -> []column

func columnsOf(t reflect.Type) []column {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if cached, ok := columnCache.Load(t); ok {
		return cached.([]column)
	}

	var cols []column
	if t.Kind() == reflect.Struct {
		cols = collectColumns(t, nil)
	}
	columnCache.Store(t, cols)
	return cols
}

func collectColumns(t reflect.Type, prefix []int) []column {
	var cols []column
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		path := append(append([]int(nil), prefix...), i)

		if f.Anonymous && f.Type.Kind() == reflect.Struct {
			cols = append(cols, collectColumns(f.Type, path)...)
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("db"), ",")
		if name == "" || name == "-" {
			continue
		}
		cols = append(cols, column{name: name, index: path})
	}
	return cols
}

// ExtractDBColumns lists the "db" column names of T, embedded structs first
// in declaration order. Repositories call it once at construction time.
func ExtractDBColumns[T any]() []string {
	cols := columnsOf(reflect.TypeOf((*T)(nil)).Elem())
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.name
	}
	return names
}

// StructToMap maps column names to field values for squirrel's SetMap.
func StructToMap(v any) map[string]any {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	cols := columnsOf(rv.Type())
	out := make(map[string]any, len(cols))
	for _, c := range cols {
		out[c.name] = rv.FieldByIndex(c.index).Interface()
	}
	return out
}
