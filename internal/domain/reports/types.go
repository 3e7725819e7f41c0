// Package reports provides read-only ledger reports.
package reports

import (
	"time"

	"bakehouse/internal/core/types"
	"bakehouse/internal/domain/catalogs/item"
)

// --- Daily Summary ---

// DailySummaryFilter selects the day and branches of a daily summary.
type DailySummaryFilter struct {
	Date time.Time
	// Branches restricts the report; nil means every branch the caller can see.
	Branches []string
}

// DiscreteTotals sums the discrete ledger rows of one branch.
type DiscreteTotals struct {
	Branch      string      `db:"branch" json:"-"`
	Items       int         `db:"items" json:"items"`
	Added       int64       `db:"added" json:"added"`
	Returned    int64       `db:"returned" json:"returned"`
	Transferred int64       `db:"transferred" json:"transferred"`
	Available   int64       `db:"available" json:"available"`
	Sold        int64       `db:"sold" json:"sold"`
	SoldValue   types.Money `db:"sold_value" json:"soldValue"`
}

// GroceryTotals sums grocery sales and returns of one branch.
type GroceryTotals struct {
	Branch       string         `db:"branch" json:"-"`
	SoldQty      types.Quantity `db:"sold_qty" json:"soldQty"`
	SalesCash    types.Money    `db:"sales_cash" json:"salesCash"`
	ReturnedQty  types.Quantity `db:"returned_qty" json:"returnedQty"`
	ReturnsValue types.Money    `db:"returns_value" json:"returnsValue"`
}

// MachineTotals sums completed machine batches of one branch.
type MachineTotals struct {
	Branch    string      `db:"branch" json:"-"`
	Batches   int         `db:"batches" json:"batches"`
	SoldQty   int64       `db:"sold_qty" json:"soldQty"`
	SalesCash types.Money `db:"sales_cash" json:"salesCash"`
}

// BranchSummary is one branch of a daily summary.
type BranchSummary struct {
	Branch    string         `json:"branch"`
	Discrete  DiscreteTotals `json:"discrete"`
	Grocery   GroceryTotals  `json:"grocery"`
	Machine   MachineTotals  `json:"machine"`
	Finished  []item.Type    `json:"finished"`
	TotalCash types.Money    `json:"totalCash"`
}

// DailySummary is the per-branch summary of one day.
type DailySummary struct {
	Date      time.Time       `json:"date"`
	Branches  []BranchSummary `json:"branches"`
	TotalCash types.Money     `json:"totalCash"`
}

// --- Expiring Batches ---

// DefaultExpiringDays is the look-ahead window when none is given.
const DefaultExpiringDays = 3

// ExpiringFilter selects lots expiring within Days of AsOf.
type ExpiringFilter struct {
	Branches []string
	Days     int
	AsOf     time.Time
}

// ExpiringBatch is a lot with remaining stock close to its expiry date.
type ExpiringBatch struct {
	BatchID    string         `db:"batch_id" json:"batchId"`
	ItemCode   string         `db:"item_code" json:"itemCode"`
	ItemName   string         `db:"item_name" json:"itemName"`
	Branch     string         `db:"branch" json:"branch"`
	Remaining  types.Quantity `db:"remaining" json:"remaining"`
	ExpiryDate time.Time      `db:"expiry_date" json:"expiryDate"`
	DaysLeft   int            `db:"-" json:"daysLeft"`
	Expired    bool           `db:"-" json:"expired"`
}

// ExpiringReport lists lots expiring on or before Until, soonest first.
type ExpiringReport struct {
	AsOf  time.Time       `json:"asOf"`
	Until time.Time       `json:"until"`
	Items []ExpiringBatch `json:"items"`
}
