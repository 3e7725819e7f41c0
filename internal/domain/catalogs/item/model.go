// Package item provides the Item catalog: everything a branch can stock or sell.
package item

import (
	"context"

	"bakehouse/internal/core/apperror"
	"bakehouse/internal/core/entity"
	"bakehouse/internal/core/types"
)

// Type selects which ledger tracks the item.
type Type string

const (
	TypeNormal  Type = "Normal Item"  // discrete daily ledger
	TypeGrocery Type = "Grocery Item" // batch-expiry ledger
	TypeMachine Type = "Machine Item" // meter batches
)

// Valid reports whether t is a known item type.
func (t Type) Valid() bool {
	switch t {
	case TypeNormal, TypeGrocery, TypeMachine:
		return true
	}
	return false
}

// UnitKind says how quantities of a grocery item are measured.
type UnitKind string

const (
	UnitCount  UnitKind = "count"
	UnitWeight UnitKind = "weight"
)

// Valid reports whether k is a known unit kind.
func (k UnitKind) Valid() bool {
	return k == UnitCount || k == UnitWeight
}

// Item represents a sellable item.
type Item struct {
	entity.Catalog

	ItemType Type `db:"item_type" json:"itemType"`

	// UnitKind matters for grocery items only; other types are always counted.
	UnitKind UnitKind `db:"unit_kind" json:"unitKind"`

	// Price is the unit price used to value sales and returns
	Price types.Money `db:"price" json:"price"`
}

// NewItem creates a new Item with required fields.
func NewItem(code, name string, itemType Type, unit UnitKind, price types.Money) *Item {
	if unit == "" {
		unit = UnitCount
	}
	return &Item{
		Catalog:  entity.NewCatalog(code, name),
		ItemType: itemType,
		UnitKind: unit,
		Price:    price,
	}
}

// Validate implements entity.Validatable interface.
func (i *Item) Validate(ctx context.Context) error {
	if err := i.Catalog.Validate(ctx); err != nil {
		return err
	}
	if !i.ItemType.Valid() {
		return apperror.NewValidation("invalid item type").
			WithDetail("field", "itemType").
			WithDetail("value", string(i.ItemType))
	}
	if !i.UnitKind.Valid() {
		return apperror.NewValidation("invalid unit kind").
			WithDetail("field", "unitKind").
			WithDetail("value", string(i.UnitKind))
	}
	if i.ItemType != TypeGrocery && i.UnitKind != UnitCount {
		return apperror.NewValidation("only grocery items can be weighed").
			WithDetail("field", "unitKind")
	}
	if i.Price.IsNegative() {
		return apperror.NewValidation("price must not be negative").
			WithDetail("field", "price")
	}
	return nil
}

// IsWeighed reports whether quantities may carry fractional parts.
func (i *Item) IsWeighed() bool {
	return i.UnitKind == UnitWeight
}

// CheckQuantity rejects quantities the unit kind cannot represent.
func (i *Item) CheckQuantity(q types.Quantity) error {
	if !i.IsWeighed() && !q.IsWhole() {
		return apperror.NewInvalidQuantity(i.Code, "quantity must be a whole number for count items").
			WithDetail("quantity", q.String())
	}
	return nil
}
