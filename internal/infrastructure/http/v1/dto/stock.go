package dto

import (
	"time"

	"bakehouse/internal/core/types"
	"bakehouse/internal/domain/closing"
	"bakehouse/internal/domain/registers/stock"
	"bakehouse/internal/domain/registers/transfer"
)

// --- Request DTOs for the discrete ledger ---

// StockLineRequest is one item of a stock request.
type StockLineRequest struct {
	ItemCode string `json:"itemCode" binding:"required"`
	Quantity int64  `json:"quantity" binding:"required,gt=0"`
}

// StockUpdateRequest adds or returns stock for a (date, branch).
type StockUpdateRequest struct {
	Date   string             `json:"date" binding:"required,isodate"`
	Branch string             `json:"branch" binding:"required"`
	Items  []StockLineRequest `json:"items" binding:"required,min=1,dive"`
}

// Lines converts the request items to ledger lines.
func (r StockUpdateRequest) Lines() []stock.Line {
	return toLines(r.Items)
}

// StockTransferRequest moves discrete stock between branches.
type StockTransferRequest struct {
	Date       string             `json:"date" binding:"required,isodate"`
	FromBranch string             `json:"fromBranch" binding:"required"`
	ToBranch   string             `json:"toBranch" binding:"required"`
	Items      []StockLineRequest `json:"items" binding:"required,min=1,dive"`
}

// Lines converts the request items to ledger lines.
func (r StockTransferRequest) Lines() []stock.Line {
	return toLines(r.Items)
}

func toLines(items []StockLineRequest) []stock.Line {
	out := make([]stock.Line, len(items))
	for i, it := range items {
		out[i] = stock.Line{ItemCode: it.ItemCode, Quantity: it.Quantity}
	}
	return out
}

// --- Response DTOs ---

// StockEntryResponse is one row of the discrete ledger.
type StockEntryResponse struct {
	Date        string    `json:"date"`
	Branch      string    `json:"branch"`
	ItemCode    string    `json:"itemCode"`
	ItemName    string    `json:"itemName"`
	Added       int64     `json:"added"`
	Returned    int64     `json:"returned"`
	Transferred int64     `json:"transferred"`
	Sold        int64     `json:"sold"`
	Available   int64     `json:"available"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// FromStockEntry converts a ledger row to response DTO.
func FromStockEntry(e *stock.Entry) StockEntryResponse {
	return StockEntryResponse{
		Date:        Date(e.Date),
		Branch:      e.Branch,
		ItemCode:    e.ItemCode,
		ItemName:    e.ItemName,
		Added:       e.Added,
		Returned:    e.Returned,
		Transferred: e.Transferred,
		Sold:        e.Sold,
		Available:   e.Available(),
		UpdatedAt:   e.UpdatedAt,
	}
}

// FromStockEntries converts ledger rows; never returns nil.
func FromStockEntries(entries []*stock.Entry) []StockEntryResponse {
	out := make([]StockEntryResponse, len(entries))
	for i, e := range entries {
		out[i] = FromStockEntry(e)
	}
	return out
}

// StockSnapshotResponse is the GET /stocks payload.
type StockSnapshotResponse struct {
	Stocks     []StockEntryResponse `json:"stocks"`
	IsFinished bool                 `json:"isFinished"`
	FinishedAt *time.Time           `json:"finishedAt"`
}

// FromStockSnapshot converts a snapshot to response DTO.
func FromStockSnapshot(s *stock.Snapshot) StockSnapshotResponse {
	return StockSnapshotResponse{
		Stocks:     FromStockEntries(s.Stocks),
		IsFinished: s.IsFinished,
		FinishedAt: OptionalTime(s.FinishedAt),
	}
}

// FromFlag renders a freshly set finished flag.
func FromFlag(f *closing.Flag) BatchStatusResponse {
	at := f.FinishedAt
	return BatchStatusResponse{
		Date:       Date(f.Date),
		Branch:     f.Branch,
		ItemType:   string(f.ItemType),
		IsFinished: true,
		FinishedAt: &at,
		FinishedBy: f.FinishedBy,
	}
}

// FromStatus renders the state of a scope.
func FromStatus(date time.Time, branch, itemType string, st closing.Status) BatchStatusResponse {
	return BatchStatusResponse{
		Date:       Date(date),
		Branch:     branch,
		ItemType:   itemType,
		IsFinished: st.IsFinished,
		FinishedAt: OptionalTime(st.FinishedAt),
	}
}

// TransferResponse is one booked transfer.
type TransferResponse struct {
	ID         string         `json:"id"`
	Kind       string         `json:"kind"`
	Date       string         `json:"date"`
	FromBranch string         `json:"fromBranch"`
	ToBranch   string         `json:"toBranch"`
	ItemCode   string         `json:"itemCode"`
	Quantity   types.Quantity `json:"quantity"`
	CreatedBy  string         `json:"createdBy"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// FromTransfer converts a transfer to response DTO.
func FromTransfer(t *transfer.Transfer) TransferResponse {
	return TransferResponse{
		ID:         t.ID.String(),
		Kind:       string(t.Kind),
		Date:       Date(t.Date),
		FromBranch: t.FromBranch,
		ToBranch:   t.ToBranch,
		ItemCode:   t.ItemCode,
		Quantity:   t.Quantity,
		CreatedBy:  t.CreatedBy,
		CreatedAt:  t.CreatedAt,
	}
}

// FromTransfers converts transfers; never returns nil.
func FromTransfers(ts []*transfer.Transfer) []TransferResponse {
	out := make([]TransferResponse, len(ts))
	for i, t := range ts {
		out[i] = FromTransfer(t)
	}
	return out
}

// TransferQuery filters the transfer history; branch matches either side.
type TransferQuery struct {
	Date   string   `form:"date" binding:"omitempty,isodate"`
	Branch []string `form:"branch"`
	Kind   string   `form:"kind" binding:"omitempty,oneof=discrete grocery"`
}

// ToFilter converts the query to a transfer filter.
func (q TransferQuery) ToFilter() transfer.Filter {
	return transfer.Filter{
		Date:     ParseDate(q.Date),
		Branches: q.Branch,
		Kind:     transfer.Kind(q.Kind),
	}
}
