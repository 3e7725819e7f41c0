// Package machine implements coffee-machine meter batches: a batch opens with a meter reading,
// closes with another, and the difference is booked as a sale.
package machine

import (
	"context"
	"errors"
	"time"

	"bakehouse/internal/core/id"
	"bakehouse/internal/core/types"
)

// Status of a machine batch. The only transition is active → completed.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusActive || s == StatusCompleted
}

// ErrActiveExists is returned by Repository.Insert when (machine, branch) already has an active batch.
var ErrActiveExists = errors.New("active machine batch exists")

// Batch is one meter-based sales lot.
type Batch struct {
	ID          id.ID      `db:"id" json:"id"`
	BatchID     string     `db:"batch_id" json:"batchId"`
	MachineCode string     `db:"machine_code" json:"machineCode"`
	MachineName string     `db:"machine_name" json:"machineName"`
	Branch      string     `db:"branch" json:"branch"`
	Date        time.Time  `db:"date" json:"date"`
	StartValue  int64      `db:"start_value" json:"startValue"`
	EndValue    *int64     `db:"end_value" json:"endValue"`
	Status      Status     `db:"status" json:"status"`
	StartedBy   string     `db:"started_by" json:"startedBy"`
	StartedAt   time.Time  `db:"started_at" json:"startedAt"`
	FinishedBy  *string    `db:"finished_by" json:"finishedBy,omitempty"`
	FinishedAt  *time.Time `db:"finished_at" json:"finishedAt,omitempty"`
}

// IsActive reports whether the batch can still be finished.
func (b *Batch) IsActive() bool {
	return b.Status == StatusActive
}

// Sale is derived when a batch completes.
type Sale struct {
	ID          id.ID       `db:"id" json:"id"`
	BatchID     string      `db:"batch_id" json:"batchId"`
	MachineCode string      `db:"machine_code" json:"machineCode"`
	Branch      string      `db:"branch" json:"branch"`
	Date        time.Time   `db:"date" json:"date"`
	SoldQty     int64       `db:"sold_qty" json:"soldQty"`
	UnitPrice   types.Money `db:"unit_price" json:"unitPrice"`
	TotalCash   types.Money `db:"total_cash" json:"totalCash"`
	CreatedBy   string      `db:"created_by" json:"createdBy"`
	CreatedAt   time.Time   `db:"created_at" json:"createdAt"`
}

// StartInput opens a batch.
type StartInput struct {
	MachineCode string
	Branch      string
	StartValue  int64
	Date        time.Time // defaults to today
}

// FinishResult is the completed batch with its sale.
type FinishResult struct {
	Batch *Batch `json:"batch"`
	Sale  *Sale  `json:"sale"`
}

// Filter selects batches for listing.
type Filter struct {
	Branches []string // nil means all
	Status   Status
	Date     time.Time
}

// Repository defines persistence for machine batches.
type Repository interface {
	// Insert stores a new active batch; returns ErrActiveExists on the (machine, branch) guard.
	Insert(ctx context.Context, b *Batch) error
	// LockActive returns the active batch of (machine, branch) FOR UPDATE, or nil.
	LockActive(ctx context.Context, machineCode, branch string) (*Batch, error)
	// LockByBatchID returns the batch FOR UPDATE; not found is an apperror NotFound.
	LockByBatchID(ctx context.Context, batchID string) (*Batch, error)
	// Complete persists end value, status and finish stamps.
	Complete(ctx context.Context, b *Batch) error
	InsertSale(ctx context.Context, s *Sale) error
	List(ctx context.Context, f Filter) ([]*Batch, error)
}
