package dto

import (
	"encoding/json"
	"time"

	"bakehouse/internal/domain/registers/machine"
)

// MachineStartRequest opens a machine batch.
type MachineStartRequest struct {
	MachineCode string `json:"machineCode" binding:"required"`
	Branch      string `json:"branch" binding:"required"`
	StartValue  int64  `json:"startValue" binding:"gte=0"`
	Date        string `json:"date" binding:"omitempty,isodate"`
}

// ToInput converts the request to a service input.
func (r MachineStartRequest) ToInput() machine.StartInput {
	return machine.StartInput{
		MachineCode: r.MachineCode,
		Branch:      r.Branch,
		StartValue:  r.StartValue,
		Date:        ParseDate(r.Date),
	}
}

// MachineFinishRequest closes a machine batch. EndValue is a pointer so 0 stays distinguishable from absent.
type MachineFinishRequest struct {
	EndValue *int64 `json:"endValue" binding:"required"`
}

// MachineBatchQuery filters the batch listing.
type MachineBatchQuery struct {
	Branch []string `form:"branch"`
	Status string   `form:"status" binding:"omitempty,oneof=active completed"`
	Date   string   `form:"date" binding:"omitempty,isodate"`
}

// ToFilter converts the query to a batch filter.
func (q MachineBatchQuery) ToFilter() machine.Filter {
	return machine.Filter{
		Branches: q.Branch,
		Status:   machine.Status(q.Status),
		Date:     ParseDate(q.Date),
	}
}

// MachineBatchResponse is one machine batch.
type MachineBatchResponse struct {
	BatchID     string     `json:"batchId"`
	MachineCode string     `json:"machineCode"`
	MachineName string     `json:"machineName"`
	Branch      string     `json:"branch"`
	Date        string     `json:"date"`
	StartValue  int64      `json:"startValue"`
	EndValue    *int64     `json:"endValue"`
	Status      string     `json:"status"`
	StartedBy   string     `json:"startedBy"`
	StartedAt   time.Time  `json:"startedAt"`
	FinishedBy  *string    `json:"finishedBy,omitempty"`
	FinishedAt  *time.Time `json:"finishedAt,omitempty"`
}

// FromMachineBatch converts a batch to response DTO.
func FromMachineBatch(b *machine.Batch) MachineBatchResponse {
	return MachineBatchResponse{
		BatchID:     b.BatchID,
		MachineCode: b.MachineCode,
		MachineName: b.MachineName,
		Branch:      b.Branch,
		Date:        Date(b.Date),
		StartValue:  b.StartValue,
		EndValue:    b.EndValue,
		Status:      string(b.Status),
		StartedBy:   b.StartedBy,
		StartedAt:   b.StartedAt,
		FinishedBy:  b.FinishedBy,
		FinishedAt:  b.FinishedAt,
	}
}

// FromMachineBatches converts batches; never returns nil.
func FromMachineBatches(bs []*machine.Batch) []MachineBatchResponse {
	out := make([]MachineBatchResponse, len(bs))
	for i, b := range bs {
		out[i] = FromMachineBatch(b)
	}
	return out
}

// MachineSaleResponse is the sale booked when a batch completes.
type MachineSaleResponse struct {
	BatchID   string      `json:"batchId"`
	SoldQty   int64       `json:"soldQty"`
	UnitPrice json.Number `json:"unitPrice"`
	TotalCash json.Number `json:"totalCash"`
}

// MachineFinishResponse is the POST /machines/batches/:batchId/finish payload.
type MachineFinishResponse struct {
	Batch MachineBatchResponse `json:"batch"`
	Sale  MachineSaleResponse  `json:"sale"`
}

// FromMachineFinish converts a finish result.
func FromMachineFinish(r *machine.FinishResult) MachineFinishResponse {
	return MachineFinishResponse{
		Batch: FromMachineBatch(r.Batch),
		Sale: MachineSaleResponse{
			BatchID:   r.Sale.BatchID,
			SoldQty:   r.Sale.SoldQty,
			UnitPrice: Money(r.Sale.UnitPrice),
			TotalCash: Money(r.Sale.TotalCash),
		},
	}
}
