package dto

import (
	"encoding/json"

	"bakehouse/internal/core/types"
	"bakehouse/internal/domain/reports"
)

// --- Daily Summary ---

// DailySummaryRequest represents request for the daily summary.
type DailySummaryRequest struct {
	Date   string   `form:"date" binding:"required,isodate"`
	Branch []string `form:"branch"`
}

// DiscreteSummaryResponse is the discrete part of a branch summary.
type DiscreteSummaryResponse struct {
	Items       int         `json:"items"`
	Added       int64       `json:"added"`
	Returned    int64       `json:"returned"`
	Transferred int64       `json:"transferred"`
	Available   int64       `json:"available"`
	Sold        int64       `json:"sold"`
	SoldValue   json.Number `json:"soldValue"`
}

// GrocerySummaryResponse is the grocery part of a branch summary.
type GrocerySummaryResponse struct {
	SoldQty      types.Quantity `json:"soldQty"`
	SalesCash    json.Number    `json:"salesCash"`
	ReturnedQty  types.Quantity `json:"returnedQty"`
	ReturnsValue json.Number    `json:"returnsValue"`
}

// MachineSummaryResponse is the machine part of a branch summary.
type MachineSummaryResponse struct {
	Batches   int         `json:"batches"`
	SoldQty   int64       `json:"soldQty"`
	SalesCash json.Number `json:"salesCash"`
}

// BranchSummaryResponse is one branch of the daily summary.
type BranchSummaryResponse struct {
	Branch    string                  `json:"branch"`
	Discrete  DiscreteSummaryResponse `json:"discrete"`
	Grocery   GrocerySummaryResponse  `json:"grocery"`
	Machine   MachineSummaryResponse  `json:"machine"`
	Finished  []string                `json:"finished"`
	TotalCash json.Number             `json:"totalCash"`
}

// DailySummaryResponse represents the daily summary response.
type DailySummaryResponse struct {
	Date      string                  `json:"date"`
	Branches  []BranchSummaryResponse `json:"branches"`
	TotalCash json.Number             `json:"totalCash"`
}

// FromDailySummary converts domain report to response DTO.
func FromDailySummary(s *reports.DailySummary) *DailySummaryResponse {
	resp := &DailySummaryResponse{
		Date:      Date(s.Date),
		Branches:  make([]BranchSummaryResponse, len(s.Branches)),
		TotalCash: Money(s.TotalCash),
	}

	for i, b := range s.Branches {
		finished := make([]string, len(b.Finished))
		for j, t := range b.Finished {
			finished[j] = string(t)
		}
		resp.Branches[i] = BranchSummaryResponse{
			Branch: b.Branch,
			Discrete: DiscreteSummaryResponse{
				Items:       b.Discrete.Items,
				Added:       b.Discrete.Added,
				Returned:    b.Discrete.Returned,
				Transferred: b.Discrete.Transferred,
				Available:   b.Discrete.Available,
				Sold:        b.Discrete.Sold,
				SoldValue:   Money(b.Discrete.SoldValue),
			},
			Grocery: GrocerySummaryResponse{
				SoldQty:      b.Grocery.SoldQty,
				SalesCash:    Money(b.Grocery.SalesCash),
				ReturnedQty:  b.Grocery.ReturnedQty,
				ReturnsValue: Money(b.Grocery.ReturnsValue),
			},
			Machine: MachineSummaryResponse{
				Batches:   b.Machine.Batches,
				SoldQty:   b.Machine.SoldQty,
				SalesCash: Money(b.Machine.SalesCash),
			},
			Finished:  finished,
			TotalCash: Money(b.TotalCash),
		}
	}

	return resp
}

// --- Expiring Batches ---

// ExpiringBatchesRequest represents request for the expiring lots report.
type ExpiringBatchesRequest struct {
	Branch []string `form:"branch"`
	Days   int      `form:"days" binding:"omitempty,min=1,max=365"`
}

// ExpiringBatchResponse is one expiring lot.
type ExpiringBatchResponse struct {
	BatchID    string         `json:"batchId"`
	ItemCode   string         `json:"itemCode"`
	ItemName   string         `json:"itemName"`
	Branch     string         `json:"branch"`
	Remaining  types.Quantity `json:"remaining"`
	ExpiryDate string         `json:"expiryDate"`
	DaysLeft   int            `json:"daysLeft"`
	Expired    bool           `json:"expired"`
}

// ExpiringBatchesResponse represents the expiring lots report.
type ExpiringBatchesResponse struct {
	AsOf  string                  `json:"asOf"`
	Until string                  `json:"until"`
	Items []ExpiringBatchResponse `json:"items"`
}

// FromExpiringReport converts domain report to response DTO.
func FromExpiringReport(r *reports.ExpiringReport) *ExpiringBatchesResponse {
	resp := &ExpiringBatchesResponse{
		AsOf:  Date(r.AsOf),
		Until: Date(r.Until),
		Items: make([]ExpiringBatchResponse, len(r.Items)),
	}
	for i, b := range r.Items {
		resp.Items[i] = ExpiringBatchResponse{
			BatchID:    b.BatchID,
			ItemCode:   b.ItemCode,
			ItemName:   b.ItemName,
			Branch:     b.Branch,
			Remaining:  b.Remaining,
			ExpiryDate: Date(b.ExpiryDate),
			DaysLeft:   b.DaysLeft,
			Expired:    b.Expired,
		}
	}
	return resp
}
