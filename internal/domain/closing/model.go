// Package closing implements the finish/lock coordinator: once a (date, branch, item type)
// scope is finished, ledger mutations against it are refused.
package closing

import (
	"errors"
	"strings"
	"time"

	"bakehouse/internal/core/apperror"
	"bakehouse/internal/core/types"
	"bakehouse/internal/domain/catalogs/item"
)

// ErrFlagExists is returned by Repository.Insert when the scope is already finished.
var ErrFlagExists = errors.New("closing: finished flag already exists")

// Scope identifies one finishable slice of a ledger.
type Scope struct {
	Date     time.Time
	Branch   string
	ItemType item.Type
}

// NewScope builds a scope with the date truncated to midnight UTC.
func NewScope(date time.Time, branch string, itemType item.Type) Scope {
	return Scope{
		Date:     types.TruncateDate(date),
		Branch:   strings.TrimSpace(branch),
		ItemType: itemType,
	}
}

// Key is the canonical "YYYY-MM-DD/branch/itemType" form used for advisory locks and events.
func (s Scope) Key() string {
	return types.FormatDate(s.Date) + "/" + s.Branch + "/" + string(s.ItemType)
}

// Validate checks the scope is complete.
func (s Scope) Validate() error {
	if s.Date.IsZero() {
		return apperror.NewValidation("date is required").WithDetail("field", "date")
	}
	if s.Branch == "" {
		return apperror.NewValidation("branch is required").WithDetail("field", "branch")
	}
	if !s.ItemType.Valid() {
		return apperror.NewValidation("invalid item type").WithDetail("field", "itemType")
	}
	return nil
}

func (s Scope) lockedErr() error {
	return apperror.NewBatchLocked(types.FormatDate(s.Date), s.Branch, string(s.ItemType))
}

func (s Scope) finishedErr() error {
	return apperror.NewAlreadyFinished(types.FormatDate(s.Date), s.Branch, string(s.ItemType))
}

// Flag is the stored finished marker.
type Flag struct {
	Date       time.Time `db:"date" json:"date"`
	Branch     string    `db:"branch" json:"branch"`
	ItemType   item.Type `db:"item_type" json:"itemType"`
	FinishedAt time.Time `db:"finished_at" json:"finishedAt"`
	FinishedBy string    `db:"finished_by" json:"finishedBy"`
}

// Scope returns the scope the flag closes.
func (f *Flag) Scope() Scope {
	return NewScope(f.Date, f.Branch, f.ItemType)
}

// Status is the read model of a scope.
type Status struct {
	IsFinished bool       `json:"isFinished"`
	FinishedAt *time.Time `json:"finishedAt"`
}

// StatusOf converts an optional flag to a status.
func StatusOf(f *Flag) Status {
	if f == nil {
		return Status{}
	}
	at := f.FinishedAt
	return Status{IsFinished: true, FinishedAt: &at}
}
