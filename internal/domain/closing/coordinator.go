package closing

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	appctx "bakehouse/internal/core/context"
	"bakehouse/internal/core/events"
	"bakehouse/internal/core/tx"
	"bakehouse/internal/domain/activity"
	"bakehouse/pkg/logger"
)

// Repository persists finished flags and serializes writers against finish.
type Repository interface {
	// LockScope takes a transaction-scoped lock on the scope: shared for writers, exclusive for finish.
	LockScope(ctx context.Context, scope Scope, exclusive bool) error

	// Get returns the flag or nil when the scope is open.
	Get(ctx context.Context, scope Scope) (*Flag, error)

	// Insert stores a flag; returns ErrFlagExists on duplicates.
	Insert(ctx context.Context, f *Flag) error

	// ListByDate returns flags for a date; nil branches means all.
	ListByDate(ctx context.Context, date time.Time, branches []string) ([]*Flag, error)
}

// Coordinator gates ledger mutations on the finished flag.
type Coordinator struct {
	repo      Repository
	txManager tx.Manager
	publisher events.Publisher
	activity  activity.Recorder
}

// NewCoordinator creates a new coordinator.
func NewCoordinator(repo Repository, txManager tx.Manager, publisher events.Publisher, recorder activity.Recorder) *Coordinator {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if recorder == nil {
		recorder = activity.Nop{}
	}
	return &Coordinator{
		repo:      repo,
		txManager: txManager,
		publisher: publisher,
		activity:  recorder,
	}
}

// EnsureOpen fails with BATCH_LOCKED if any scope is finished.
// Must be called inside the mutating transaction: the shared locks it takes are held until commit,
// so a concurrent Finish waits for the writer.
func (c *Coordinator) EnsureOpen(ctx context.Context, scopes ...Scope) error {
	for _, s := range sortedUnique(scopes) {
		if err := s.Validate(); err != nil {
			return err
		}
		if err := c.repo.LockScope(ctx, s, false); err != nil {
			return fmt.Errorf("lock scope %s: %w", s.Key(), err)
		}
		flag, err := c.repo.Get(ctx, s)
		if err != nil {
			return fmt.Errorf("get finished flag %s: %w", s.Key(), err)
		}
		if flag != nil {
			return s.lockedErr()
		}
	}
	return nil
}

// Finish marks the scope finished and runs onFinish in the same transaction.
// A second call fails with ALREADY_FINISHED and changes nothing.
func (c *Coordinator) Finish(ctx context.Context, scope Scope, onFinish func(ctx context.Context) error) (*Flag, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	flag := &Flag{
		Date:       scope.Date,
		Branch:     scope.Branch,
		ItemType:   scope.ItemType,
		FinishedAt: time.Now().UTC(),
		FinishedBy: appctx.GetUserID(ctx),
	}

	err := c.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := c.repo.LockScope(ctx, scope, true); err != nil {
			return fmt.Errorf("lock scope %s: %w", scope.Key(), err)
		}

		existing, err := c.repo.Get(ctx, scope)
		if err != nil {
			return fmt.Errorf("get finished flag %s: %w", scope.Key(), err)
		}
		if existing != nil {
			return scope.finishedErr()
		}

		if err := c.repo.Insert(ctx, flag); err != nil {
			if errors.Is(err, ErrFlagExists) {
				return scope.finishedErr()
			}
			return fmt.Errorf("insert finished flag: %w", err)
		}

		if onFinish != nil {
			if err := onFinish(ctx); err != nil {
				return err
			}
		}

		if err := c.publisher.Publish(ctx, events.Event{
			AggregateType: "scope",
			AggregateID:   scope.Key(),
			Type:          "batch.finished",
			Payload:       flag,
		}); err != nil {
			return fmt.Errorf("publish batch.finished: %w", err)
		}

		return c.activity.Record(ctx, scope.Branch, activity.ActionBatchFinish, "scope", scope.Key(), flag)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "batch finished", "scope", scope.Key(), "finished_by", flag.FinishedBy)
	return flag, nil
}

// Status reports whether the scope is finished.
func (c *Coordinator) Status(ctx context.Context, scope Scope) (Status, error) {
	if err := scope.Validate(); err != nil {
		return Status{}, err
	}
	flag, err := c.repo.Get(ctx, scope)
	if err != nil {
		return Status{}, fmt.Errorf("get finished flag %s: %w", scope.Key(), err)
	}
	return StatusOf(flag), nil
}

// ListFinished returns the finished flags of a date.
func (c *Coordinator) ListFinished(ctx context.Context, date time.Time, branches []string) ([]*Flag, error) {
	return c.repo.ListByDate(ctx, date, branches)
}

// sortedUnique orders scopes by key so multi-scope writers lock in a stable order.
func sortedUnique(scopes []Scope) []Scope {
	seen := make(map[string]struct{}, len(scopes))
	out := make([]Scope, 0, len(scopes))
	for _, s := range scopes {
		k := s.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}
