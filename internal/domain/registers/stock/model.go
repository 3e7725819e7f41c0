// Package stock implements the discrete stock ledger: per (date, branch, item) counters
// for unit-counted items.
package stock

import (
	"sort"
	"strings"
	"time"

	"bakehouse/internal/core/apperror"
	"bakehouse/internal/domain/closing"
)

// Entry is one ledger row keyed by (date, branch, item code).
type Entry struct {
	Date        time.Time `db:"date" json:"date"`
	Branch      string    `db:"branch" json:"branch"`
	ItemCode    string    `db:"item_code" json:"itemCode"`
	ItemName    string    `db:"item_name" json:"itemName"`
	Added       int64     `db:"added" json:"added"`
	Returned    int64     `db:"returned" json:"returned"`
	Transferred int64     `db:"transferred" json:"transferred"`
	Sold        int64     `db:"sold" json:"sold"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// Available is added − returned − transferred, never below zero.
func (e *Entry) Available() int64 {
	return max(0, e.Added-e.Returned-e.Transferred)
}

func (e *Entry) recomputeSold() {
	e.Sold = e.Added - e.Returned - e.Transferred
}

// Line is one item of a multi-item request.
type Line struct {
	ItemCode string `json:"itemCode"`
	Quantity int64  `json:"quantity"`
}

// Addition is an upsert of added quantity.
type Addition struct {
	ItemCode string
	ItemName string
	Quantity int64
}

// Snapshot is the read model of a (date, branch) ledger.
type Snapshot struct {
	Stocks []*Entry `json:"stocks"`
	closing.Status
}

// mergeLines validates a request and sums duplicate item codes. The result is sorted by code.
func mergeLines(lines []Line) ([]Line, error) {
	if len(lines) == 0 {
		return nil, apperror.NewValidation("items must not be empty").WithDetail("field", "items")
	}

	totals := make(map[string]int64, len(lines))
	for i, l := range lines {
		code := strings.TrimSpace(l.ItemCode)
		if code == "" {
			return nil, apperror.NewValidation("itemCode is required").WithDetail("index", i)
		}
		if l.Quantity <= 0 {
			return nil, apperror.NewInvalidQuantity(code, "quantity must be positive").
				WithDetail("quantity", l.Quantity)
		}
		totals[code] += l.Quantity
	}

	out := make([]Line, 0, len(totals))
	for code, q := range totals {
		out = append(out, Line{ItemCode: code, Quantity: q})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemCode < out[j].ItemCode })
	return out, nil
}

func codesOf(lines []Line) []string {
	codes := make([]string, len(lines))
	for i, l := range lines {
		codes[i] = l.ItemCode
	}
	return codes
}
