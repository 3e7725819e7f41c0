package dto

import (
	"encoding/json"
	"time"

	"bakehouse/internal/core/types"
	"bakehouse/internal/domain/registers/grocery"
)

// --- Request DTOs for the batch-expiry ledger ---

// GroceryBatchRequest adds a new lot.
type GroceryBatchRequest struct {
	ItemCode   string         `json:"itemCode" binding:"required"`
	Branch     string         `json:"branch" binding:"required"`
	Quantity   types.Quantity `json:"quantity" binding:"required"`
	ExpiryDate string         `json:"expiryDate" binding:"required,isodate"`
	Date       string         `json:"date" binding:"omitempty,isodate"`
}

// ToInput converts the request to a service input.
func (r GroceryBatchRequest) ToInput() grocery.AddBatchInput {
	return grocery.AddBatchInput{
		ItemCode:   r.ItemCode,
		Branch:     r.Branch,
		Quantity:   r.Quantity,
		ExpiryDate: ParseDate(r.ExpiryDate),
		AddedDate:  ParseDate(r.Date),
	}
}

// GroceryBatchQuery filters the lot listing.
type GroceryBatchQuery struct {
	Branch       string `form:"branch" binding:"required"`
	ItemCode     string `form:"itemCode"`
	IncludeEmpty bool   `form:"includeEmpty"`
}

// GroceryAvailableQuery addresses one item at one branch.
type GroceryAvailableQuery struct {
	ItemCode string `form:"itemCode" binding:"required"`
	Branch   string `form:"branch" binding:"required"`
}

// RemainingUpdateRequest is one item of a remaining update. NewRemaining
// is a pointer so an explicit 0 (sold out) binds while an absent field fails.
type RemainingUpdateRequest struct {
	ItemCode     string          `json:"itemCode" binding:"required"`
	NewRemaining *types.Quantity `json:"newRemaining" binding:"required"`
}

// GroceryRemainingRequest sets counted remaining stock per item.
type GroceryRemainingRequest struct {
	Branch  string                   `json:"branch" binding:"required"`
	Date    string                   `json:"date" binding:"omitempty,isodate"`
	Updates []RemainingUpdateRequest `json:"updates" binding:"required,min=1,dive"`
}

// ToUpdates converts the request items.
func (r GroceryRemainingRequest) ToUpdates() []grocery.RemainingUpdate {
	out := make([]grocery.RemainingUpdate, len(r.Updates))
	for i, u := range r.Updates {
		out[i] = grocery.RemainingUpdate{ItemCode: u.ItemCode, NewRemaining: *u.NewRemaining}
	}
	return out
}

// GroceryReturnRequest books a return or waste.
type GroceryReturnRequest struct {
	ItemCode    string         `json:"itemCode" binding:"required"`
	ItemName    string         `json:"itemName"`
	Branch      string         `json:"branch" binding:"required"`
	Date        string         `json:"date" binding:"omitempty,isodate"`
	ReturnedQty types.Quantity `json:"returnedQty" binding:"required"`
	Reason      string         `json:"reason" binding:"required"`
}

// ToInput converts the request to a service input.
func (r GroceryReturnRequest) ToInput() grocery.ReturnInput {
	return grocery.ReturnInput{
		ItemCode: r.ItemCode,
		ItemName: r.ItemName,
		Branch:   r.Branch,
		Quantity: r.ReturnedQty,
		Reason:   r.Reason,
		Date:     ParseDate(r.Date),
	}
}

// GroceryTransferRequest moves grocery stock between branches.
type GroceryTransferRequest struct {
	Date       string         `json:"date" binding:"omitempty,isodate"`
	FromBranch string         `json:"fromBranch" binding:"required"`
	ToBranch   string         `json:"toBranch" binding:"required"`
	ItemCode   string         `json:"itemCode" binding:"required"`
	Quantity   types.Quantity `json:"quantity" binding:"required"`
}

// ToInput converts the request to a service input.
func (r GroceryTransferRequest) ToInput() grocery.TransferInput {
	return grocery.TransferInput{
		Date:       ParseDate(r.Date),
		FromBranch: r.FromBranch,
		ToBranch:   r.ToBranch,
		ItemCode:   r.ItemCode,
		Quantity:   r.Quantity,
	}
}

// RecordQuery filters sales and returns.
type RecordQuery struct {
	Branch []string `form:"branch"`
	From   string   `form:"from" binding:"omitempty,isodate"`
	To     string   `form:"to" binding:"omitempty,isodate"`
}

// ToFilter converts the query to a record filter.
func (q RecordQuery) ToFilter() grocery.RecordFilter {
	return grocery.RecordFilter{
		Branches: q.Branch,
		From:     ParseDate(q.From),
		To:       ParseDate(q.To),
	}
}

// --- Response DTOs ---

// GroceryBatchResponse is one lot.
type GroceryBatchResponse struct {
	BatchID       string         `json:"batchId"`
	ItemCode      string         `json:"itemCode"`
	ItemName      string         `json:"itemName"`
	Branch        string         `json:"branch"`
	Quantity      types.Quantity `json:"quantity"`
	Remaining     types.Quantity `json:"remaining"`
	ExpiryDate    string         `json:"expiryDate"`
	AddedDate     string         `json:"addedDate"`
	SourceBatchID *string        `json:"sourceBatchId,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
}

// FromGroceryBatch converts a lot to response DTO.
func FromGroceryBatch(b *grocery.Batch) GroceryBatchResponse {
	return GroceryBatchResponse{
		BatchID:       b.BatchID,
		ItemCode:      b.ItemCode,
		ItemName:      b.ItemName,
		Branch:        b.Branch,
		Quantity:      b.Quantity,
		Remaining:     b.Remaining,
		ExpiryDate:    Date(b.ExpiryDate),
		AddedDate:     Date(b.AddedDate),
		SourceBatchID: b.SourceBatchID,
		CreatedAt:     b.CreatedAt,
	}
}

// FromGroceryBatches converts lots; never returns nil.
func FromGroceryBatches(bs []*grocery.Batch) []GroceryBatchResponse {
	out := make([]GroceryBatchResponse, len(bs))
	for i, b := range bs {
		out[i] = FromGroceryBatch(b)
	}
	return out
}

// AvailableResponse is the total remaining stock of an item.
type AvailableResponse struct {
	ItemCode  string         `json:"itemCode"`
	Branch    string         `json:"branch"`
	Available types.Quantity `json:"available"`
}

// RemainingResultResponse reports one updated item.
type RemainingResultResponse struct {
	ItemCode          string                 `json:"itemCode"`
	PreviousRemaining types.Quantity         `json:"previousRemaining"`
	NewRemaining      types.Quantity         `json:"newRemaining"`
	SoldQty           types.Quantity         `json:"soldQty"`
	TotalCash         json.Number            `json:"totalCash"`
	Batches           []GroceryBatchResponse `json:"batches"`
}

// FromRemainingResults converts update results.
func FromRemainingResults(rs []*grocery.RemainingResult) []RemainingResultResponse {
	out := make([]RemainingResultResponse, len(rs))
	for i, r := range rs {
		out[i] = RemainingResultResponse{
			ItemCode:          r.ItemCode,
			PreviousRemaining: r.PreviousRemaining,
			NewRemaining:      r.NewRemaining,
			SoldQty:           r.SoldQty,
			TotalCash:         Money(r.TotalCash),
			Batches:           FromGroceryBatches(r.Batches),
		}
	}
	return out
}

// GrocerySaleResponse is one derived sale.
type GrocerySaleResponse struct {
	ID        string         `json:"id"`
	ItemCode  string         `json:"itemCode"`
	ItemName  string         `json:"itemName"`
	Branch    string         `json:"branch"`
	Date      string         `json:"date"`
	SoldQty   types.Quantity `json:"soldQty"`
	UnitPrice json.Number    `json:"unitPrice"`
	TotalCash json.Number    `json:"totalCash"`
	CreatedBy string         `json:"createdBy"`
	CreatedAt time.Time      `json:"createdAt"`
}

// FromGrocerySales converts sales; never returns nil.
func FromGrocerySales(ss []*grocery.Sale) []GrocerySaleResponse {
	out := make([]GrocerySaleResponse, len(ss))
	for i, s := range ss {
		out[i] = GrocerySaleResponse{
			ID:        s.ID.String(),
			ItemCode:  s.ItemCode,
			ItemName:  s.ItemName,
			Branch:    s.Branch,
			Date:      Date(s.Date),
			SoldQty:   s.SoldQty,
			UnitPrice: Money(s.UnitPrice),
			TotalCash: Money(s.TotalCash),
			CreatedBy: s.CreatedBy,
			CreatedAt: s.CreatedAt,
		}
	}
	return out
}

// GroceryReturnResponse is one booked return.
type GroceryReturnResponse struct {
	ID          string         `json:"id"`
	ItemCode    string         `json:"itemCode"`
	ItemName    string         `json:"itemName"`
	Branch      string         `json:"branch"`
	Date        string         `json:"date"`
	ReturnedQty types.Quantity `json:"returnedQty"`
	Reason      string         `json:"reason"`
	TotalValue  json.Number    `json:"totalValue"`
	CreatedBy   string         `json:"createdBy"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// FromGroceryReturn converts a return to response DTO.
func FromGroceryReturn(r *grocery.Return) GroceryReturnResponse {
	return GroceryReturnResponse{
		ID:          r.ID.String(),
		ItemCode:    r.ItemCode,
		ItemName:    r.ItemName,
		Branch:      r.Branch,
		Date:        Date(r.Date),
		ReturnedQty: r.ReturnedQty,
		Reason:      r.Reason,
		TotalValue:  Money(r.TotalValue),
		CreatedBy:   r.CreatedBy,
		CreatedAt:   r.CreatedAt,
	}
}

// FromGroceryReturns converts returns; never returns nil.
func FromGroceryReturns(rs []*grocery.Return) []GroceryReturnResponse {
	out := make([]GroceryReturnResponse, len(rs))
	for i, r := range rs {
		out[i] = FromGroceryReturn(r)
	}
	return out
}

// GroceryTransferResponse reports a grocery transfer and the destination lots.
type GroceryTransferResponse struct {
	Transfer TransferResponse       `json:"transfer"`
	Batches  []GroceryBatchResponse `json:"batches"`
}

// FromGroceryTransfer converts a transfer result.
func FromGroceryTransfer(r *grocery.TransferResult) GroceryTransferResponse {
	return GroceryTransferResponse{
		Transfer: FromTransfer(r.Transfer),
		Batches:  FromGroceryBatches(r.Batches),
	}
}
