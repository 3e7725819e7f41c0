package stock

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"bakehouse/internal/core/apperror"
	appctx "bakehouse/internal/core/context"
	"bakehouse/internal/core/events"
	"bakehouse/internal/core/security"
	"bakehouse/internal/core/tx"
	"bakehouse/internal/core/types"
	"bakehouse/internal/domain/activity"
	"bakehouse/internal/domain/catalogs/branch"
	"bakehouse/internal/domain/catalogs/item"
	"bakehouse/internal/domain/closing"
	"bakehouse/internal/domain/registers/transfer"
	"bakehouse/pkg/logger"
)

// Event types emitted by the discrete ledger.
const (
	EventAdded       = "stock.added"
	EventReturned    = "stock.returned"
	EventTransferred = "stock.transferred"
)

// ServiceConfig wires the discrete ledger service.
type ServiceConfig struct {
	Repo      Repository
	TxManager tx.Manager
	Closing   *closing.Coordinator
	Items     item.Lookup
	Branches  branch.Lookup
	Transfers transfer.Repository
	Publisher events.Publisher
	Activity  activity.Recorder
}

// Service provides business operations for the discrete ledger.
// Every mutation runs in one transaction and is all-or-nothing.
type Service struct {
	repo      Repository
	txManager tx.Manager
	closing   *closing.Coordinator
	items     item.Lookup
	branches  branch.Lookup
	transfers transfer.Repository
	publisher events.Publisher
	activity  activity.Recorder
}

// NewService creates a new discrete ledger service.
func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		repo:      cfg.Repo,
		txManager: cfg.TxManager,
		closing:   cfg.Closing,
		items:     cfg.Items,
		branches:  cfg.Branches,
		transfers: cfg.Transfers,
		publisher: cfg.Publisher,
		activity:  cfg.Activity,
	}
	if s.publisher == nil {
		s.publisher = events.NopPublisher{}
	}
	if s.activity == nil {
		s.activity = activity.Nop{}
	}
	return s
}

func scopeOf(date time.Time, branchCode string) (closing.Scope, error) {
	scope := closing.NewScope(date, branchCode, item.TypeNormal)
	return scope, scope.Validate()
}

// AddStock adds quantities to (date, branch). Blocked once the scope is finished.
func (s *Service) AddStock(ctx context.Context, date time.Time, branchCode string, lines []Line) ([]*Entry, error) {
	scope, err := scopeOf(date, branchCode)
	if err != nil {
		return nil, err
	}
	if err := security.RequireBranch(ctx, scope.Branch); err != nil {
		return nil, err
	}
	merged, err := mergeLines(lines)
	if err != nil {
		return nil, err
	}

	var entries []*Entry
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.closing.EnsureOpen(ctx, scope); err != nil {
			return err
		}
		if err := s.branches.Require(ctx, scope.Branch); err != nil {
			return err
		}
		items, err := s.items.RequireTyped(ctx, item.TypeNormal, codesOf(merged)...)
		if err != nil {
			return err
		}

		adds := make([]Addition, len(merged))
		for i, l := range merged {
			adds[i] = Addition{ItemCode: l.ItemCode, ItemName: items[l.ItemCode].Name, Quantity: l.Quantity}
		}
		entries, err = s.repo.AddQuantities(ctx, scope.Date, scope.Branch, adds)
		if err != nil {
			return fmt.Errorf("add quantities: %w", err)
		}

		return s.emit(ctx, scope, EventAdded, activity.ActionStockAdd, merged)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "stock added", "scope", scope.Key(), "items", len(merged))
	return entries, nil
}

// RecordReturns books returned quantities. The whole request is validated against
// locked rows before anything is written.
func (s *Service) RecordReturns(ctx context.Context, date time.Time, branchCode string, lines []Line) ([]*Entry, error) {
	scope, err := scopeOf(date, branchCode)
	if err != nil {
		return nil, err
	}
	if err := security.RequireBranch(ctx, scope.Branch); err != nil {
		return nil, err
	}
	merged, err := mergeLines(lines)
	if err != nil {
		return nil, err
	}

	var changed []*Entry
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.closing.EnsureOpen(ctx, scope); err != nil {
			return err
		}

		rows, err := s.repo.LockEntries(ctx, scope.Date, scope.Branch, codesOf(merged))
		if err != nil {
			return fmt.Errorf("lock entries: %w", err)
		}
		if changed, err = debit(rows, merged, func(e *Entry, q int64) { e.Returned += q }); err != nil {
			return err
		}
		if err := s.repo.SaveCounters(ctx, changed); err != nil {
			return fmt.Errorf("save counters: %w", err)
		}

		return s.emit(ctx, scope, EventReturned, activity.ActionStockReturn, merged)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "stock returns recorded", "scope", scope.Key(), "items", len(merged))
	return changed, nil
}

// FinishBatch finishes the Normal Item scope of (date, branch) and fixes sold quantities.
func (s *Service) FinishBatch(ctx context.Context, date time.Time, branchCode string) (*closing.Flag, error) {
	scope, err := scopeOf(date, branchCode)
	if err != nil {
		return nil, err
	}
	if err := security.RequireBranch(ctx, scope.Branch); err != nil {
		return nil, err
	}

	return s.closing.Finish(ctx, scope, func(ctx context.Context) error {
		n, err := s.repo.RecomputeSold(ctx, scope.Date, scope.Branch)
		if err != nil {
			return fmt.Errorf("recompute sold: %w", err)
		}
		logger.Debug(ctx, "sold recomputed", "scope", scope.Key(), "rows", n)
		return nil
	})
}

// GetStocks returns the ledger rows of (date, branch) with the finish state.
func (s *Service) GetStocks(ctx context.Context, date time.Time, branchCode string) (*Snapshot, error) {
	scope, err := scopeOf(date, branchCode)
	if err != nil {
		return nil, err
	}
	if err := security.RequireBranch(ctx, scope.Branch); err != nil {
		return nil, err
	}

	entries, err := s.repo.ListEntries(ctx, scope.Date, scope.Branch)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	status, err := s.closing.Status(ctx, scope)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []*Entry{}
	}
	return &Snapshot{Stocks: entries, Status: status}, nil
}

// GetBatchStatus reports whether (date, branch) is finished for Normal Items.
func (s *Service) GetBatchStatus(ctx context.Context, date time.Time, branchCode string) (closing.Status, error) {
	scope, err := scopeOf(date, branchCode)
	if err != nil {
		return closing.Status{}, err
	}
	if err := security.RequireBranch(ctx, scope.Branch); err != nil {
		return closing.Status{}, err
	}
	return s.closing.Status(ctx, scope)
}

// TransferStock moves available quantities from one branch to another on the same date.
// Both scopes must be open.
func (s *Service) TransferStock(ctx context.Context, date time.Time, fromBranch, toBranch string, lines []Line) ([]*transfer.Transfer, error) {
	from, err := scopeOf(date, fromBranch)
	if err != nil {
		return nil, err
	}
	to, err := scopeOf(date, toBranch)
	if err != nil {
		return nil, err
	}
	if from.Branch == to.Branch {
		return nil, apperror.NewValidation("fromBranch and toBranch must differ").
			WithDetail("branch", from.Branch)
	}
	if err := security.RequireBranch(ctx, from.Branch, to.Branch); err != nil {
		return nil, err
	}
	merged, err := mergeLines(lines)
	if err != nil {
		return nil, err
	}
	codes := codesOf(merged)

	var records []*transfer.Transfer
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.closing.EnsureOpen(ctx, from, to); err != nil {
			return err
		}
		if err := s.branches.Require(ctx, from.Branch, to.Branch); err != nil {
			return err
		}
		items, err := s.items.RequireTyped(ctx, item.TypeNormal, codes...)
		if err != nil {
			return err
		}

		// Lock both sides in branch order so opposite transfers cannot deadlock.
		var source []*Entry
		for _, b := range orderedPair(from.Branch, to.Branch) {
			rows, err := s.repo.LockEntries(ctx, from.Date, b, codes)
			if err != nil {
				return fmt.Errorf("lock entries %s: %w", b, err)
			}
			if b == from.Branch {
				source = rows
			}
		}

		changed, err := debit(source, merged, func(e *Entry, q int64) { e.Transferred += q })
		if err != nil {
			return err
		}
		if err := s.repo.SaveCounters(ctx, changed); err != nil {
			return fmt.Errorf("save counters: %w", err)
		}

		adds := make([]Addition, len(merged))
		userID := appctx.GetUserID(ctx)
		for i, l := range merged {
			adds[i] = Addition{ItemCode: l.ItemCode, ItemName: items[l.ItemCode].Name, Quantity: l.Quantity}
			records = append(records, transfer.New(transfer.KindDiscrete, from.Date, from.Branch, to.Branch,
				l.ItemCode, types.NewQuantityFromUnits(l.Quantity), userID))
		}
		if _, err := s.repo.AddQuantities(ctx, to.Date, to.Branch, adds); err != nil {
			return fmt.Errorf("add quantities: %w", err)
		}
		if err := s.transfers.Insert(ctx, records...); err != nil {
			return fmt.Errorf("insert transfers: %w", err)
		}

		if err := s.publisher.Publish(ctx, events.Event{
			AggregateType: "stock",
			AggregateID:   from.Key(),
			Type:          EventTransferred,
			Payload:       records,
		}); err != nil {
			return fmt.Errorf("publish %s: %w", EventTransferred, err)
		}
		return s.activity.Record(ctx, from.Branch, activity.ActionStockTransfer, "stock", from.Key(), records)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "stock transferred", "from", from.Key(), "to", to.Branch, "items", len(merged))
	return records, nil
}

// debit checks every line against the locked rows before applying any of them.
func debit(rows []*Entry, lines []Line, apply func(e *Entry, q int64)) ([]*Entry, error) {
	byCode := make(map[string]*Entry, len(rows))
	for _, e := range rows {
		byCode[e.ItemCode] = e
	}

	for _, l := range lines {
		var available int64
		if e, ok := byCode[l.ItemCode]; ok {
			available = e.Available()
		}
		if l.Quantity > available {
			return nil, apperror.NewInsufficientStock(l.ItemCode,
				strconv.FormatInt(l.Quantity, 10), strconv.FormatInt(available, 10))
		}
	}

	changed := make([]*Entry, 0, len(lines))
	for _, l := range lines {
		e := byCode[l.ItemCode]
		apply(e, l.Quantity)
		e.recomputeSold()
		changed = append(changed, e)
	}
	return changed, nil
}

func (s *Service) emit(ctx context.Context, scope closing.Scope, eventType string, action activity.Action, lines []Line) error {
	payload := map[string]any{
		"date":   types.FormatDate(scope.Date),
		"branch": scope.Branch,
		"items":  lines,
	}
	if err := s.publisher.Publish(ctx, events.Event{
		AggregateType: "stock",
		AggregateID:   scope.Key(),
		Type:          eventType,
		Payload:       payload,
	}); err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	return s.activity.Record(ctx, scope.Branch, action, "stock", scope.Key(), payload)
}

func orderedPair(a, b string) [2]string {
	if strings.Compare(a, b) > 0 {
		return [2]string{b, a}
	}
	return [2]string{a, b}
}
