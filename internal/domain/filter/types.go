// Package filter describes ad-hoc list conditions passed from the HTTP layer to repositories.
package filter

// ComparisonType is a comparison operator.
type ComparisonType string

const (
	Equal          ComparisonType = "eq"
	NotEqual       ComparisonType = "neq"
	Less           ComparisonType = "lt"
	Greater        ComparisonType = "gt"
	LessOrEqual    ComparisonType = "lte"
	GreaterOrEqual ComparisonType = "gte"
	InList         ComparisonType = "in"
	NotInList      ComparisonType = "nin"
	Contains       ComparisonType = "contains"  // ILIKE %val%
	NotContains    ComparisonType = "ncontains" // NOT ILIKE %val%

	IsNull    ComparisonType = "null"
	IsNotNull ComparisonType = "not_null"
)

// Item is a single condition.
type Item struct {
	Field    string         `json:"field"` // column name (snake_case)
	Operator ComparisonType `json:"operator"`
	Value    any            `json:"value"`
}

// Valid reports whether the operator is known.
func (c ComparisonType) Valid() bool {
	switch c {
	case Equal, NotEqual, Less, Greater, LessOrEqual, GreaterOrEqual,
		InList, NotInList, Contains, NotContains, IsNull, IsNotNull:
		return true
	}
	return false
}

// Eq is a shorthand for an equality condition.
func Eq(field string, value any) Item {
	return Item{Field: field, Operator: Equal, Value: value}
}
