// Package transfer records inter-branch stock movements for both ledgers.
package transfer

import (
	"context"
	"time"

	"bakehouse/internal/core/id"
	"bakehouse/internal/core/types"
)

// Kind tells which ledger a transfer moved stock in.
type Kind string

const (
	KindDiscrete Kind = "discrete"
	KindGrocery  Kind = "grocery"
)

// Transfer is an append-only movement record.
type Transfer struct {
	ID         id.ID          `db:"id" json:"id"`
	Kind       Kind           `db:"kind" json:"kind"`
	Date       time.Time      `db:"date" json:"date"`
	FromBranch string         `db:"from_branch" json:"fromBranch"`
	ToBranch   string         `db:"to_branch" json:"toBranch"`
	ItemCode   string         `db:"item_code" json:"itemCode"`
	Quantity   types.Quantity `db:"quantity" json:"quantity"`
	CreatedBy  string         `db:"created_by" json:"createdBy"`
	CreatedAt  time.Time      `db:"created_at" json:"createdAt"`
}

// New creates a transfer record stamped now.
func New(kind Kind, date time.Time, from, to, itemCode string, qty types.Quantity, userID string) *Transfer {
	return &Transfer{
		ID:         id.New(),
		Kind:       kind,
		Date:       types.TruncateDate(date),
		FromBranch: from,
		ToBranch:   to,
		ItemCode:   itemCode,
		Quantity:   qty,
		CreatedBy:  userID,
		CreatedAt:  time.Now().UTC(),
	}
}

// Filter selects transfers touching a branch on a date.
type Filter struct {
	Date     time.Time
	Branches []string // matches either side; nil means all
	Kind     Kind
}

// Repository persists transfers.
type Repository interface {
	Insert(ctx context.Context, transfers ...*Transfer) error
	List(ctx context.Context, f Filter) ([]*Transfer, error)
}
