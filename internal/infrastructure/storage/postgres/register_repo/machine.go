package register_repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"bakehouse/internal/core/apperror"
	"bakehouse/internal/domain/registers/machine"
	"bakehouse/internal/infrastructure/storage/postgres"
)

const (
	machineBatchesTable = "machine_batches"
	machineSalesTable   = "machine_sales"

	// machineActiveIndex is the partial unique index on (machine_code, branch) WHERE status = 'active'.
	machineActiveIndex = "machine_batches_one_active_idx"
)

var machineBatchColumns = []string{
	"id", "batch_id", "machine_code", "machine_name", "branch", "date",
	"start_value", "end_value", "status", "started_by", "started_at", "finished_by", "finished_at",
}

var machineSaleColumns = []string{
	"id", "batch_id", "machine_code", "branch", "date",
	"sold_qty", "unit_price", "total_cash", "created_by", "created_at",
}

// MachineRepo implements machine.Repository.
type MachineRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

var _ machine.Repository = (*MachineRepo)(nil)

// NewMachineRepo creates a new machine batch repository.
func NewMachineRepo(txManager *postgres.TxManager) *MachineRepo {
	return &MachineRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Insert stores a new batch. The partial unique index turns a second active batch into ErrActiveExists.
func (r *MachineRepo) Insert(ctx context.Context, b *machine.Batch) error {
	sql, args, err := r.builder.
		Insert(machineBatchesTable).
		Columns(machineBatchColumns...).
		Values(b.ID, b.BatchID, b.MachineCode, b.MachineName, b.Branch, b.Date,
			b.StartValue, b.EndValue, string(b.Status), b.StartedBy, b.StartedAt, b.FinishedBy, b.FinishedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		if postgres.IsUniqueViolation(err, machineActiveIndex) {
			return errors.Join(machine.ErrActiveExists, err)
		}
		return fmt.Errorf("insert machine batch: %w", err)
	}
	return nil
}

// LockActive returns the active batch of (machine, branch) FOR UPDATE, or nil.
func (r *MachineRepo) LockActive(ctx context.Context, machineCode, branch string) (*machine.Batch, error) {
	tx, err := r.txManager.RequireTx(ctx, "LockActive")
	if err != nil {
		return nil, err
	}

	sql, args, err := r.builder.
		Select(machineBatchColumns...).
		From(machineBatchesTable).
		Where(squirrel.Eq{"machine_code": machineCode, "branch": branch, "status": string(machine.StatusActive)}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var b machine.Batch
	if err := pgxscan.Get(ctx, tx, &b, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("lock active machine batch: %w", err)
	}
	return &b, nil
}

// LockByBatchID returns the batch FOR UPDATE.
func (r *MachineRepo) LockByBatchID(ctx context.Context, batchID string) (*machine.Batch, error) {
	tx, err := r.txManager.RequireTx(ctx, "LockByBatchID")
	if err != nil {
		return nil, err
	}

	sql, args, err := r.builder.
		Select(machineBatchColumns...).
		From(machineBatchesTable).
		Where(squirrel.Eq{"batch_id": batchID}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var b machine.Batch
	if err := pgxscan.Get(ctx, tx, &b, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("machine batch", batchID)
		}
		return nil, fmt.Errorf("lock machine batch: %w", err)
	}
	return &b, nil
}

// Complete stores the finish fields; only an active row is updated.
func (r *MachineRepo) Complete(ctx context.Context, b *machine.Batch) error {
	sql, args, err := r.builder.
		Update(machineBatchesTable).
		Set("end_value", b.EndValue).
		Set("status", string(b.Status)).
		Set("finished_by", b.FinishedBy).
		Set("finished_at", b.FinishedAt).
		Where(squirrel.Eq{"id": b.ID, "status": string(machine.StatusActive)}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("complete machine batch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("machine batch", b.BatchID)
	}
	return nil
}

// InsertSale appends the sale derived from a completed batch.
func (r *MachineRepo) InsertSale(ctx context.Context, s *machine.Sale) error {
	sql, args, err := r.builder.
		Insert(machineSalesTable).
		Columns(machineSaleColumns...).
		Values(s.ID, s.BatchID, s.MachineCode, s.Branch, s.Date,
			s.SoldQty, s.UnitPrice, s.TotalCash, s.CreatedBy, s.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert machine sale: %w", err)
	}
	return nil
}

// List returns batches matching the filter, newest first.
func (r *MachineRepo) List(ctx context.Context, f machine.Filter) ([]*machine.Batch, error) {
	q := r.builder.
		Select(machineBatchColumns...).
		From(machineBatchesTable).
		OrderBy("started_at DESC", "batch_id DESC")
	if f.Branches != nil {
		q = q.Where(squirrel.Eq{"branch": f.Branches})
	}
	if f.Status != "" {
		q = q.Where(squirrel.Eq{"status": string(f.Status)})
	}
	if !f.Date.IsZero() {
		q = q.Where(squirrel.Eq{"date": f.Date})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []*machine.Batch
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("list machine batches: %w", err)
	}
	return out, nil
}
