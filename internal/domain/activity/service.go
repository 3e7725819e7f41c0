package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"bakehouse/internal/core/apperror"
	appctx "bakehouse/internal/core/context"
	"bakehouse/internal/core/id"
	"bakehouse/internal/core/security"
)

// Repository persists entries.
type Repository interface {
	Insert(ctx context.Context, e *Entry) error
	List(ctx context.Context, f Filter) ([]*Entry, error)
}

// Recorder is what ledger services depend on.
type Recorder interface {
	Record(ctx context.Context, branch string, action Action, entityType, entityID string, payload any) error
}

// Service implements Recorder and the listing endpoint.
type Service struct {
	repo Repository
}

var _ Recorder = (*Service)(nil)

// NewService creates a new activity service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Record appends an entry. Runs in the caller's transaction when ctx carries one.
func (s *Service) Record(ctx context.Context, branch string, action Action, entityType, entityID string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal activity payload: %w", err)
	}

	e := &Entry{
		ID:         id.New(),
		Branch:     branch,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		UserID:     appctx.GetUserID(ctx),
		Payload:    raw,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.repo.Insert(ctx, e); err != nil {
		return fmt.Errorf("record activity %s: %w", action, err)
	}
	return nil
}

// List returns entries visible to the caller, newest first.
func (s *Service) List(ctx context.Context, f Filter) ([]*Entry, error) {
	branches, ok := security.GetScope(ctx).FilterBranches(f.Branches)
	if !ok {
		return nil, apperror.NewForbidden("no access to the requested branches")
	}
	f.Branches = branches

	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return nil, apperror.NewValidation("from must not be after to")
	}
	if f.Limit <= 0 {
		f.Limit = 100
	}
	if f.Limit > 1000 {
		f.Limit = 1000
	}

	return s.repo.List(ctx, f)
}

// Nop discards entries.
type Nop struct{}

func (Nop) Record(context.Context, string, Action, string, string, any) error { return nil }
