// Package grocery implements the batch-expiry ledger: expiry-dated lots per (branch, item)
// with FIFO returns and proportional reallocation of remaining stock.
package grocery

import (
	"time"

	"bakehouse/internal/core/id"
	"bakehouse/internal/core/types"
)

// Batch is one expiry-dated lot. Quantity is immutable; 0 ≤ Remaining ≤ Quantity.
type Batch struct {
	ID            id.ID          `db:"id" json:"id"`
	BatchID       string         `db:"batch_id" json:"batchId"`
	ItemCode      string         `db:"item_code" json:"itemCode"`
	ItemName      string         `db:"item_name" json:"itemName"`
	Branch        string         `db:"branch" json:"branch"`
	Quantity      types.Quantity `db:"quantity" json:"quantity"`
	Remaining     types.Quantity `db:"remaining" json:"remaining"`
	ExpiryDate    time.Time      `db:"expiry_date" json:"expiryDate"`
	AddedDate     time.Time      `db:"added_date" json:"addedDate"`
	SourceBatchID *string        `db:"source_batch_id" json:"sourceBatchId,omitempty"`
	CreatedAt     time.Time      `db:"created_at" json:"createdAt"`
}

// Sale is the fact derived from a remaining-quantity edit.
type Sale struct {
	ID        id.ID          `db:"id" json:"id"`
	ItemCode  string         `db:"item_code" json:"itemCode"`
	ItemName  string         `db:"item_name" json:"itemName"`
	Branch    string         `db:"branch" json:"branch"`
	Date      time.Time      `db:"date" json:"date"`
	SoldQty   types.Quantity `db:"sold_qty" json:"soldQty"`
	UnitPrice types.Money    `db:"unit_price" json:"unitPrice"`
	TotalCash types.Money    `db:"total_cash" json:"totalCash"`
	CreatedBy string         `db:"created_by" json:"createdBy"`
	CreatedAt time.Time      `db:"created_at" json:"createdAt"`
}

// Return is the fact appended by RecordReturn.
type Return struct {
	ID          id.ID          `db:"id" json:"id"`
	ItemCode    string         `db:"item_code" json:"itemCode"`
	ItemName    string         `db:"item_name" json:"itemName"`
	Branch      string         `db:"branch" json:"branch"`
	Date        time.Time      `db:"date" json:"date"`
	ReturnedQty types.Quantity `db:"returned_qty" json:"returnedQty"`
	Reason      string         `db:"reason" json:"reason"`
	TotalValue  types.Money    `db:"total_value" json:"totalValue"`
	CreatedBy   string         `db:"created_by" json:"createdBy"`
	CreatedAt   time.Time      `db:"created_at" json:"createdAt"`
}

// AddBatchInput describes a new lot.
type AddBatchInput struct {
	ItemCode   string
	Branch     string
	Quantity   types.Quantity
	ExpiryDate time.Time
	AddedDate  time.Time // defaults to today
}

// ReturnInput describes a return or waste booking.
type ReturnInput struct {
	ItemCode string
	ItemName string // defaults to the catalog name
	Branch   string
	Quantity types.Quantity
	Reason   string
	Date     time.Time // defaults to today
}

// RemainingUpdate is one item of an UpdateRemaining request.
type RemainingUpdate struct {
	ItemCode     string         `json:"itemCode"`
	NewRemaining types.Quantity `json:"newRemaining"`
}

// RemainingResult reports what UpdateRemaining did to one item.
type RemainingResult struct {
	ItemCode          string         `json:"itemCode"`
	PreviousRemaining types.Quantity `json:"previousRemaining"`
	NewRemaining      types.Quantity `json:"newRemaining"`
	SoldQty           types.Quantity `json:"soldQty"`
	TotalCash         types.Money    `json:"totalCash"`
	Batches           []*Batch       `json:"batches"`
}

// TransferInput describes a move of grocery stock between branches.
type TransferInput struct {
	Date       time.Time
	FromBranch string
	ToBranch   string
	ItemCode   string
	Quantity   types.Quantity
}

// BatchFilter selects lots for listing.
type BatchFilter struct {
	Branch       string
	ItemCode     string
	IncludeEmpty bool
}

// RecordFilter selects sales or returns.
type RecordFilter struct {
	Branches []string // nil means all
	From     time.Time
	To       time.Time
}

func remainingOf(batches []*Batch) []types.Quantity {
	out := make([]types.Quantity, len(batches))
	for i, b := range batches {
		out[i] = b.Remaining
	}
	return out
}
