package grocery

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"bakehouse/internal/core/apperror"
	appctx "bakehouse/internal/core/context"
	"bakehouse/internal/core/events"
	"bakehouse/internal/core/id"
	"bakehouse/internal/core/numerator"
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

// Event types emitted by the grocery ledger.
const (
	EventBatchAdded  = "grocery.batch_added"
	EventReturned    = "grocery.returned"
	EventSold        = "grocery.sold"
	EventTransferred = "grocery.transferred"
)

// BatchPrefix is the numerator prefix of lot tokens.
const BatchPrefix = "GB"

// ServiceConfig wires the grocery ledger service.
type ServiceConfig struct {
	Repo      Repository
	TxManager tx.Manager
	Closing   *closing.Coordinator
	Items     item.Lookup
	Branches  branch.Lookup
	Transfers transfer.Repository
	Numerator numerator.Generator
	Publisher events.Publisher
	Activity  activity.Recorder
	// Now is overridable in tests.
	Now func() time.Time
}

// Service provides business operations for the batch-expiry ledger.
type Service struct {
	repo      Repository
	txManager tx.Manager
	closing   *closing.Coordinator
	items     item.Lookup
	branches  branch.Lookup
	transfers transfer.Repository
	numerator numerator.Generator
	publisher events.Publisher
	activity  activity.Recorder
	now       func() time.Time
}

// NewService creates a new grocery ledger service.
func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		repo:      cfg.Repo,
		txManager: cfg.TxManager,
		closing:   cfg.Closing,
		items:     cfg.Items,
		branches:  cfg.Branches,
		transfers: cfg.Transfers,
		numerator: cfg.Numerator,
		publisher: cfg.Publisher,
		activity:  cfg.Activity,
		now:       cfg.Now,
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

func (s *Service) today() time.Time {
	return types.TruncateDate(s.now())
}

func scopeOf(date time.Time, branchCode string) closing.Scope {
	return closing.NewScope(date, branchCode, item.TypeGrocery)
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return apperror.NewValidation(field + " is required").WithDetail("field", field)
	}
	return nil
}

func (s *Service) nextBatchID(ctx context.Context, period time.Time) (string, error) {
	token, err := s.numerator.Next(ctx, numerator.LotSequence(BatchPrefix), period)
	if err != nil {
		return "", fmt.Errorf("generate batch id: %w", err)
	}
	return token, nil
}

// AddBatch creates a new lot with remaining = quantity. Lots are never merged.
func (s *Service) AddBatch(ctx context.Context, in AddBatchInput) (*Batch, error) {
	in.ItemCode = strings.TrimSpace(in.ItemCode)
	in.Branch = strings.TrimSpace(in.Branch)
	if err := errors.Join(required("itemCode", in.ItemCode), required("branch", in.Branch)); err != nil {
		return nil, firstAppError(err)
	}
	if !in.Quantity.IsPositive() {
		return nil, apperror.NewInvalidQuantity(in.ItemCode, "quantity must be positive").
			WithDetail("quantity", in.Quantity.String())
	}
	if in.ExpiryDate.IsZero() {
		return nil, apperror.NewValidation("expiryDate is required").WithDetail("field", "expiryDate")
	}
	if in.AddedDate.IsZero() {
		in.AddedDate = s.today()
	}
	in.AddedDate = types.TruncateDate(in.AddedDate)
	in.ExpiryDate = types.TruncateDate(in.ExpiryDate)
	if in.ExpiryDate.Before(in.AddedDate) {
		return nil, apperror.NewValidation("expiryDate must not be before the added date").
			WithDetail("field", "expiryDate")
	}
	if err := security.RequireBranch(ctx, in.Branch); err != nil {
		return nil, err
	}

	scope := scopeOf(in.AddedDate, in.Branch)
	var batch *Batch
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.closing.EnsureOpen(ctx, scope); err != nil {
			return err
		}
		if err := s.branches.Require(ctx, in.Branch); err != nil {
			return err
		}
		items, err := s.items.RequireTyped(ctx, item.TypeGrocery, in.ItemCode)
		if err != nil {
			return err
		}
		it := items[in.ItemCode]
		if err := it.CheckQuantity(in.Quantity); err != nil {
			return err
		}

		token, err := s.nextBatchID(ctx, in.AddedDate)
		if err != nil {
			return err
		}
		batch = &Batch{
			ID:         id.New(),
			BatchID:    token,
			ItemCode:   it.Code,
			ItemName:   it.Name,
			Branch:     in.Branch,
			Quantity:   in.Quantity,
			Remaining:  in.Quantity,
			ExpiryDate: in.ExpiryDate,
			AddedDate:  in.AddedDate,
			CreatedAt:  s.now(),
		}
		if err := s.repo.InsertBatches(ctx, batch); err != nil {
			return fmt.Errorf("insert batch: %w", err)
		}

		return s.emit(ctx, in.Branch, "grocery_batch", batch.BatchID, EventBatchAdded, activity.ActionGroceryAdd, batch)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "grocery batch added",
		"batch_id", batch.BatchID,
		"item_code", batch.ItemCode,
		"branch", batch.Branch,
		"quantity", batch.Quantity.String(),
	)
	return batch, nil
}

// RecordReturn FIFO-consumes quantity from the item's lots and appends a return fact.
// The finished flag does not gate returns.
func (s *Service) RecordReturn(ctx context.Context, in ReturnInput) (*Return, error) {
	in.ItemCode = strings.TrimSpace(in.ItemCode)
	in.Branch = strings.TrimSpace(in.Branch)
	in.Reason = strings.TrimSpace(in.Reason)
	if err := errors.Join(required("itemCode", in.ItemCode), required("branch", in.Branch), required("reason", in.Reason)); err != nil {
		return nil, firstAppError(err)
	}
	if !in.Quantity.IsPositive() {
		return nil, apperror.NewInvalidQuantity(in.ItemCode, "returned quantity must be positive").
			WithDetail("quantity", in.Quantity.String())
	}
	if in.Date.IsZero() {
		in.Date = s.today()
	}
	if err := security.RequireBranch(ctx, in.Branch); err != nil {
		return nil, err
	}

	var ret *Return
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		items, err := s.items.RequireTyped(ctx, item.TypeGrocery, in.ItemCode)
		if err != nil {
			return err
		}
		it := items[in.ItemCode]
		if err := it.CheckQuantity(in.Quantity); err != nil {
			return err
		}

		batches, err := s.repo.LockBatches(ctx, in.Branch, in.ItemCode)
		if err != nil {
			return fmt.Errorf("lock batches: %w", err)
		}
		changed, _, err := consume(batches, in.ItemCode, in.Quantity)
		if err != nil {
			return err
		}
		if err := s.repo.SaveRemaining(ctx, changed); err != nil {
			return fmt.Errorf("save remaining: %w", err)
		}

		name := in.ItemName
		if name == "" {
			name = it.Name
		}
		ret = &Return{
			ID:          id.New(),
			ItemCode:    it.Code,
			ItemName:    name,
			Branch:      in.Branch,
			Date:        types.TruncateDate(in.Date),
			ReturnedQty: in.Quantity,
			Reason:      in.Reason,
			TotalValue:  in.Quantity.Amount(it.Price),
			CreatedBy:   appctx.GetUserID(ctx),
			CreatedAt:   s.now(),
		}
		if err := s.repo.InsertReturn(ctx, ret); err != nil {
			return fmt.Errorf("insert return: %w", err)
		}

		return s.emit(ctx, in.Branch, "grocery_item", in.Branch+"/"+in.ItemCode, EventReturned, activity.ActionGroceryReturn, ret)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "grocery return recorded",
		"item_code", ret.ItemCode,
		"branch", ret.Branch,
		"quantity", ret.ReturnedQty.String(),
	)
	return ret, nil
}

// UpdateRemaining sets the aggregate remaining of each item, spreading it over the item's lots
// and booking the difference as a sale. Any rejected update aborts the whole request.
func (s *Service) UpdateRemaining(ctx context.Context, branchCode string, date time.Time, updates []RemainingUpdate) ([]*RemainingResult, error) {
	branchCode = strings.TrimSpace(branchCode)
	if err := required("branch", branchCode); err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return nil, apperror.NewValidation("updates must not be empty").WithDetail("field", "updates")
	}
	if date.IsZero() {
		date = s.today()
	}
	date = types.TruncateDate(date)

	seen := make(map[string]bool, len(updates))
	codes := make([]string, 0, len(updates))
	for i := range updates {
		u := &updates[i]
		u.ItemCode = strings.TrimSpace(u.ItemCode)
		if u.ItemCode == "" {
			return nil, apperror.NewValidation("itemCode is required").WithDetail("index", i)
		}
		if seen[u.ItemCode] {
			return nil, apperror.NewValidation("duplicate itemCode in updates").WithDetail("item_code", u.ItemCode)
		}
		if u.NewRemaining.IsNegative() {
			return nil, apperror.NewInvalidQuantity(u.ItemCode, "newRemaining must not be negative").
				WithDetail("newRemaining", u.NewRemaining.String())
		}
		seen[u.ItemCode] = true
		codes = append(codes, u.ItemCode)
	}
	sort.Slice(updates, func(i, j int) bool { return updates[i].ItemCode < updates[j].ItemCode })
	if err := security.RequireBranch(ctx, branchCode); err != nil {
		return nil, err
	}

	scope := scopeOf(date, branchCode)
	var results []*RemainingResult
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.closing.EnsureOpen(ctx, scope); err != nil {
			return err
		}
		items, err := s.items.RequireTyped(ctx, item.TypeGrocery, codes...)
		if err != nil {
			return err
		}

		// Plan every update before writing any of them.
		results = make([]*RemainingResult, 0, len(updates))
		for _, u := range updates {
			it := items[u.ItemCode]
			batches, err := s.repo.LockBatches(ctx, branchCode, u.ItemCode)
			if err != nil {
				return fmt.Errorf("lock batches: %w", err)
			}
			res, err := reallocate(it, batches, u.NewRemaining)
			if err != nil {
				return err
			}
			results = append(results, res)
		}

		userID := appctx.GetUserID(ctx)
		for _, res := range results {
			if err := s.repo.SaveRemaining(ctx, res.Batches); err != nil {
				return fmt.Errorf("save remaining: %w", err)
			}
			if !res.SoldQty.IsPositive() {
				continue
			}
			it := items[res.ItemCode]
			sale := &Sale{
				ID:        id.New(),
				ItemCode:  it.Code,
				ItemName:  it.Name,
				Branch:    branchCode,
				Date:      date,
				SoldQty:   res.SoldQty,
				UnitPrice: it.Price,
				TotalCash: res.TotalCash,
				CreatedBy: userID,
				CreatedAt: s.now(),
			}
			if err := s.repo.InsertSale(ctx, sale); err != nil {
				return fmt.Errorf("insert sale: %w", err)
			}
			if err := s.publisher.Publish(ctx, events.Event{
				AggregateType: "grocery_item",
				AggregateID:   branchCode + "/" + it.Code,
				Type:          EventSold,
				Payload:       sale,
			}); err != nil {
				return fmt.Errorf("publish %s: %w", EventSold, err)
			}
		}

		return s.activity.Record(ctx, branchCode, activity.ActionGroceryRemaining, "scope", scope.Key(), results)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "grocery remaining updated", "scope", scope.Key(), "items", len(results))
	return results, nil
}

// reallocate computes the new remaining of every lot without writing anything.
func reallocate(it *item.Item, batches []*Batch, newRemaining types.Quantity) (*RemainingResult, error) {
	current := remainingOf(batches)
	total := sum(current)

	alloc, err := Allocate(current, newRemaining, it.UnitKind)
	switch {
	case errors.Is(err, ErrExceedsRemaining):
		return nil, apperror.NewInvalidQuantity(it.Code, "newRemaining exceeds total remaining stock").
			WithDetail("newRemaining", newRemaining.String()).
			WithDetail("totalRemaining", total.String())
	case errors.Is(err, ErrFractionalTarget):
		return nil, apperror.NewInvalidQuantity(it.Code, "newRemaining must be a whole number for count items").
			WithDetail("newRemaining", newRemaining.String())
	case errors.Is(err, ErrNegativeTarget):
		return nil, apperror.NewInvalidQuantity(it.Code, "newRemaining must not be negative")
	case err != nil:
		return nil, err
	}

	changed := make([]*Batch, 0, len(batches))
	for i, b := range batches {
		if b.Remaining == alloc[i] {
			continue
		}
		b.Remaining = alloc[i]
		changed = append(changed, b)
	}

	sold := total - newRemaining
	return &RemainingResult{
		ItemCode:          it.Code,
		PreviousRemaining: total,
		NewRemaining:      newRemaining,
		SoldQty:           sold,
		TotalCash:         sold.Amount(it.Price),
		Batches:           changed,
	}, nil
}

// consume applies FIFO consumption to the lots. It returns the lots that changed
// and how much each of them gave up.
func consume(batches []*Batch, itemCode string, qty types.Quantity) ([]*Batch, []types.Quantity, error) {
	current := remainingOf(batches)
	taken, err := ConsumeFIFO(current, qty)
	if errors.Is(err, ErrShortfall) {
		return nil, nil, apperror.NewInsufficientStock(itemCode, qty.String(), sum(current).String())
	}
	if err != nil {
		return nil, nil, apperror.NewInvalidQuantity(itemCode, err.Error())
	}

	var changed []*Batch
	var amounts []types.Quantity
	for i, b := range batches {
		if taken[i] == 0 {
			continue
		}
		b.Remaining -= taken[i]
		changed = append(changed, b)
		amounts = append(amounts, taken[i])
	}
	return changed, amounts, nil
}

// GetAvailableStock returns the sum of remaining over the item's lots at a branch.
func (s *Service) GetAvailableStock(ctx context.Context, itemCode, branchCode string) (types.Quantity, error) {
	if err := firstAppError(errors.Join(required("itemCode", itemCode), required("branch", branchCode))); err != nil {
		return 0, err
	}
	if err := security.RequireBranch(ctx, branchCode); err != nil {
		return 0, err
	}
	total, err := s.repo.SumRemaining(ctx, branchCode, itemCode)
	if err != nil {
		return 0, fmt.Errorf("sum remaining: %w", err)
	}
	return total, nil
}

// ListBatches lists lots of a branch in FIFO order. Empty lots are listed when asked for.
func (s *Service) ListBatches(ctx context.Context, f BatchFilter) ([]*Batch, error) {
	if err := required("branch", f.Branch); err != nil {
		return nil, err
	}
	if err := security.RequireBranch(ctx, f.Branch); err != nil {
		return nil, err
	}
	batches, err := s.repo.ListBatches(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	if batches == nil {
		batches = []*Batch{}
	}
	return batches, nil
}

// FinishBatch finishes the Grocery Item scope of (date, branch).
func (s *Service) FinishBatch(ctx context.Context, date time.Time, branchCode string) (*closing.Flag, error) {
	scope := scopeOf(date, branchCode)
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if err := security.RequireBranch(ctx, scope.Branch); err != nil {
		return nil, err
	}
	return s.closing.Finish(ctx, scope, nil)
}

// GetBatchStatus reports whether (date, branch) is finished for Grocery Items.
func (s *Service) GetBatchStatus(ctx context.Context, date time.Time, branchCode string) (closing.Status, error) {
	scope := scopeOf(date, branchCode)
	if err := scope.Validate(); err != nil {
		return closing.Status{}, err
	}
	if err := security.RequireBranch(ctx, scope.Branch); err != nil {
		return closing.Status{}, err
	}
	return s.closing.Status(ctx, scope)
}

// TransferResult is the outcome of TransferStock.
type TransferResult struct {
	Transfer *transfer.Transfer `json:"transfer"`
	Batches  []*Batch           `json:"batches"` // lots created at the destination
}

// TransferStock FIFO-consumes from the source branch and recreates each consumed portion
// as a lot at the destination with the same expiry date.
func (s *Service) TransferStock(ctx context.Context, in TransferInput) (*TransferResult, error) {
	in.ItemCode = strings.TrimSpace(in.ItemCode)
	in.FromBranch = strings.TrimSpace(in.FromBranch)
	in.ToBranch = strings.TrimSpace(in.ToBranch)
	if err := firstAppError(errors.Join(
		required("itemCode", in.ItemCode),
		required("fromBranch", in.FromBranch),
		required("toBranch", in.ToBranch),
	)); err != nil {
		return nil, err
	}
	if in.FromBranch == in.ToBranch {
		return nil, apperror.NewValidation("fromBranch and toBranch must differ").WithDetail("branch", in.FromBranch)
	}
	if !in.Quantity.IsPositive() {
		return nil, apperror.NewInvalidQuantity(in.ItemCode, "quantity must be positive").
			WithDetail("quantity", in.Quantity.String())
	}
	if in.Date.IsZero() {
		in.Date = s.today()
	}
	in.Date = types.TruncateDate(in.Date)
	if err := security.RequireBranch(ctx, in.FromBranch, in.ToBranch); err != nil {
		return nil, err
	}

	from := scopeOf(in.Date, in.FromBranch)
	to := scopeOf(in.Date, in.ToBranch)
	var result *TransferResult
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.closing.EnsureOpen(ctx, from, to); err != nil {
			return err
		}
		if err := s.branches.Require(ctx, in.FromBranch, in.ToBranch); err != nil {
			return err
		}
		items, err := s.items.RequireTyped(ctx, item.TypeGrocery, in.ItemCode)
		if err != nil {
			return err
		}
		it := items[in.ItemCode]
		if err := it.CheckQuantity(in.Quantity); err != nil {
			return err
		}

		source, err := s.repo.LockBatches(ctx, in.FromBranch, in.ItemCode)
		if err != nil {
			return fmt.Errorf("lock batches: %w", err)
		}
		changed, amounts, err := consume(source, in.ItemCode, in.Quantity)
		if err != nil {
			return err
		}
		if err := s.repo.SaveRemaining(ctx, changed); err != nil {
			return fmt.Errorf("save remaining: %w", err)
		}

		created := make([]*Batch, 0, len(changed))
		for i, src := range changed {
			token, err := s.nextBatchID(ctx, in.Date)
			if err != nil {
				return err
			}
			origin := src.BatchID
			created = append(created, &Batch{
				ID:            id.New(),
				BatchID:       token,
				ItemCode:      it.Code,
				ItemName:      it.Name,
				Branch:        in.ToBranch,
				Quantity:      amounts[i],
				Remaining:     amounts[i],
				ExpiryDate:    src.ExpiryDate,
				AddedDate:     in.Date,
				SourceBatchID: &origin,
				CreatedAt:     s.now(),
			})
		}
		if err := s.repo.InsertBatches(ctx, created...); err != nil {
			return fmt.Errorf("insert batches: %w", err)
		}

		rec := transfer.New(transfer.KindGrocery, in.Date, in.FromBranch, in.ToBranch, it.Code, in.Quantity, appctx.GetUserID(ctx))
		if err := s.transfers.Insert(ctx, rec); err != nil {
			return fmt.Errorf("insert transfer: %w", err)
		}
		result = &TransferResult{Transfer: rec, Batches: created}

		return s.emit(ctx, in.FromBranch, "grocery_item", in.FromBranch+"/"+it.Code, EventTransferred, activity.ActionGroceryTransfer, result)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "grocery stock transferred",
		"item_code", in.ItemCode,
		"from", in.FromBranch,
		"to", in.ToBranch,
		"quantity", in.Quantity.String(),
	)
	return result, nil
}

// ListSales lists sales facts visible to the caller.
func (s *Service) ListSales(ctx context.Context, f RecordFilter) ([]*Sale, error) {
	f, err := s.scopeRecords(ctx, f)
	if err != nil {
		return nil, err
	}
	sales, err := s.repo.ListSales(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	if sales == nil {
		sales = []*Sale{}
	}
	return sales, nil
}

// ListReturns lists return facts visible to the caller.
func (s *Service) ListReturns(ctx context.Context, f RecordFilter) ([]*Return, error) {
	f, err := s.scopeRecords(ctx, f)
	if err != nil {
		return nil, err
	}
	returns, err := s.repo.ListReturns(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list returns: %w", err)
	}
	if returns == nil {
		returns = []*Return{}
	}
	return returns, nil
}

func (s *Service) scopeRecords(ctx context.Context, f RecordFilter) (RecordFilter, error) {
	branches, ok := security.GetScope(ctx).FilterBranches(f.Branches)
	if !ok {
		return f, apperror.NewForbidden("no access to the requested branches")
	}
	f.Branches = branches
	if !f.From.IsZero() && !f.To.IsZero() && f.From.After(f.To) {
		return f, apperror.NewValidation("from must not be after to")
	}
	return f, nil
}

func (s *Service) emit(ctx context.Context, branchCode, aggregateType, aggregateID, eventType string, action activity.Action, payload any) error {
	if err := s.publisher.Publish(ctx, events.Event{
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		Type:          eventType,
		Payload:       payload,
	}); err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	return s.activity.Record(ctx, branchCode, action, aggregateType, aggregateID, payload)
}

// firstAppError unwraps the first *AppError of a joined error.
func firstAppError(err error) error {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			if e != nil {
				return e
			}
		}
	}
	return err
}
