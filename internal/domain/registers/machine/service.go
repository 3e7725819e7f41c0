package machine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bakehouse/internal/core/apperror"
	appctx "bakehouse/internal/core/context"
	"bakehouse/internal/core/events"
	"bakehouse/internal/core/id"
	"bakehouse/internal/core/lock"
	"bakehouse/internal/core/numerator"
	"bakehouse/internal/core/security"
	"bakehouse/internal/core/tx"
	"bakehouse/internal/core/types"
	"bakehouse/internal/domain/activity"
	"bakehouse/internal/domain/catalogs/branch"
	"bakehouse/internal/domain/catalogs/item"
	"bakehouse/pkg/logger"
)

// Event types emitted by machine batches.
const (
	EventStarted  = "machine.batch_started"
	EventFinished = "machine.batch_finished"
)

// BatchPrefix is the numerator prefix of machine batch tokens.
const BatchPrefix = "MB"

const startLockTTL = 30 * time.Second

// ServiceConfig wires the machine batch service.
type ServiceConfig struct {
	Repo      Repository
	TxManager tx.Manager
	Items     item.Lookup
	Branches  branch.Lookup
	Numerator numerator.Generator
	// Locker guards StartBatch across instances; defaults to lock.NoopLocker.
	Locker    lock.Locker
	Publisher events.Publisher
	Activity  activity.Recorder
	Now       func() time.Time
}

// Service provides machine batch operations.
type Service struct {
	repo      Repository
	txManager tx.Manager
	items     item.Lookup
	branches  branch.Lookup
	numerator numerator.Generator
	locker    lock.Locker
	publisher events.Publisher
	activity  activity.Recorder
	now       func() time.Time
}

// NewService creates a new machine batch service.
func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		repo:      cfg.Repo,
		txManager: cfg.TxManager,
		items:     cfg.Items,
		branches:  cfg.Branches,
		numerator: cfg.Numerator,
		locker:    cfg.Locker,
		publisher: cfg.Publisher,
		activity:  cfg.Activity,
		now:       cfg.Now,
	}
	if s.locker == nil {
		s.locker = lock.NoopLocker{}
	}
	if s.publisher == nil {
		s.publisher = events.NopPublisher{}
	}
	if s.activity == nil {
		s.activity = activity.Nop{}
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	return s
}

func startLockKey(machineCode, branchCode string) string {
	return "machine:" + machineCode + ":" + branchCode
}

func activeConflict(b *Batch) error {
	return apperror.NewConflict("machine already has an active batch at this branch").
		WithDetail("machine_code", b.MachineCode).
		WithDetail("branch", b.Branch).
		WithDetail("batch_id", b.BatchID)
}

// StartBatch opens a batch for (machine, branch). At most one batch per pair is active.
func (s *Service) StartBatch(ctx context.Context, in StartInput) (*Batch, error) {
	in.MachineCode = strings.TrimSpace(in.MachineCode)
	in.Branch = strings.TrimSpace(in.Branch)
	if in.MachineCode == "" {
		return nil, apperror.NewValidation("machineCode is required").WithDetail("field", "machineCode")
	}
	if in.Branch == "" {
		return nil, apperror.NewValidation("branch is required").WithDetail("field", "branch")
	}
	if in.StartValue < 0 {
		return nil, apperror.NewInvalidQuantity(in.MachineCode, "startValue must not be negative").
			WithDetail("startValue", in.StartValue)
	}
	if in.Date.IsZero() {
		in.Date = s.now()
	}
	in.Date = types.TruncateDate(in.Date)
	if err := security.RequireBranch(ctx, in.Branch); err != nil {
		return nil, err
	}

	lk, err := s.locker.Obtain(ctx, startLockKey(in.MachineCode, in.Branch), startLockTTL)
	if errors.Is(err, lock.ErrNotObtained) {
		return nil, apperror.NewConflict("machine batch start already in progress").
			WithDetail("machine_code", in.MachineCode).
			WithDetail("branch", in.Branch)
	}
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := lk.Release(context.WithoutCancel(ctx)); err != nil {
			logger.Warn(ctx, "release machine start lock", "error", err)
		}
	}()

	var batch *Batch
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.branches.Require(ctx, in.Branch); err != nil {
			return err
		}
		items, err := s.items.RequireTyped(ctx, item.TypeMachine, in.MachineCode)
		if err != nil {
			return err
		}
		it := items[in.MachineCode]

		active, err := s.repo.LockActive(ctx, in.MachineCode, in.Branch)
		if err != nil {
			return fmt.Errorf("find active batch: %w", err)
		}
		if active != nil {
			return activeConflict(active)
		}

		token, err := s.numerator.Next(ctx, numerator.LotSequence(BatchPrefix), in.Date)
		if err != nil {
			return fmt.Errorf("generate batch id: %w", err)
		}
		batch = &Batch{
			ID:          id.New(),
			BatchID:     token,
			MachineCode: it.Code,
			MachineName: it.Name,
			Branch:      in.Branch,
			Date:        in.Date,
			StartValue:  in.StartValue,
			Status:      StatusActive,
			StartedBy:   appctx.GetUserID(ctx),
			StartedAt:   s.now(),
		}
		if err := s.repo.Insert(ctx, batch); err != nil {
			if errors.Is(err, ErrActiveExists) {
				return activeConflict(batch)
			}
			return fmt.Errorf("insert machine batch: %w", err)
		}

		return s.emit(ctx, batch, EventStarted, activity.ActionMachineStart, batch)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "machine batch started",
		"batch_id", batch.BatchID,
		"machine_code", batch.MachineCode,
		"branch", batch.Branch,
		"start_value", batch.StartValue,
	)
	return batch, nil
}

// FinishBatch completes an active batch and books soldQty = endValue − startValue.
func (s *Service) FinishBatch(ctx context.Context, batchID string, endValue int64) (*FinishResult, error) {
	batchID = strings.TrimSpace(batchID)
	if batchID == "" {
		return nil, apperror.NewValidation("batchId is required").WithDetail("field", "batchId")
	}

	var result *FinishResult
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		b, err := s.repo.LockByBatchID(ctx, batchID)
		if err != nil {
			if apperror.IsNotFound(err) {
				return apperror.NewNotFound("machine batch", batchID)
			}
			return fmt.Errorf("lock machine batch: %w", err)
		}
		if err := security.RequireBranch(ctx, b.Branch); err != nil {
			return err
		}
		if !b.IsActive() {
			return apperror.NewConflict("machine batch is already completed").
				WithDetail("batch_id", b.BatchID)
		}
		if endValue < b.StartValue {
			return apperror.NewInvalidQuantity(b.MachineCode, "endValue must not be less than startValue").
				WithDetail("startValue", b.StartValue).
				WithDetail("endValue", endValue)
		}

		items, err := s.items.RequireTyped(ctx, item.TypeMachine, b.MachineCode)
		if err != nil {
			return err
		}
		it := items[b.MachineCode]

		now := s.now()
		userID := appctx.GetUserID(ctx)
		b.EndValue = &endValue
		b.Status = StatusCompleted
		b.FinishedAt = &now
		b.FinishedBy = &userID
		if err := s.repo.Complete(ctx, b); err != nil {
			return fmt.Errorf("complete machine batch: %w", err)
		}

		sold := endValue - b.StartValue
		sale := &Sale{
			ID:          id.New(),
			BatchID:     b.BatchID,
			MachineCode: b.MachineCode,
			Branch:      b.Branch,
			Date:        b.Date,
			SoldQty:     sold,
			UnitPrice:   it.Price,
			TotalCash:   types.NewQuantityFromUnits(sold).Amount(it.Price),
			CreatedBy:   userID,
			CreatedAt:   now,
		}
		if err := s.repo.InsertSale(ctx, sale); err != nil {
			return fmt.Errorf("insert machine sale: %w", err)
		}

		result = &FinishResult{Batch: b, Sale: sale}
		return s.emit(ctx, b, EventFinished, activity.ActionMachineFinish, result)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "machine batch finished",
		"batch_id", result.Batch.BatchID,
		"sold_qty", result.Sale.SoldQty,
		"total_cash", result.Sale.TotalCash.String(),
	)
	return result, nil
}

// ListBatches lists batches visible to the caller, newest first.
func (s *Service) ListBatches(ctx context.Context, f Filter) ([]*Batch, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, apperror.NewValidation("unknown status").WithDetail("status", string(f.Status))
	}
	branches, ok := security.GetScope(ctx).FilterBranches(f.Branches)
	if !ok {
		return nil, apperror.NewForbidden("no access to the requested branches")
	}
	f.Branches = branches
	if !f.Date.IsZero() {
		f.Date = types.TruncateDate(f.Date)
	}

	batches, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list machine batches: %w", err)
	}
	if batches == nil {
		batches = []*Batch{}
	}
	return batches, nil
}

func (s *Service) emit(ctx context.Context, b *Batch, eventType string, action activity.Action, payload any) error {
	if err := s.publisher.Publish(ctx, events.Event{
		AggregateType: "machine_batch",
		AggregateID:   b.BatchID,
		Type:          eventType,
		Payload:       payload,
	}); err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	return s.activity.Record(ctx, b.Branch, action, "machine_batch", b.BatchID, payload)
}
