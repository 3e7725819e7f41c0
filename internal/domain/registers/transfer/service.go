package transfer

import (
	"context"
	"fmt"

	"bakehouse/internal/core/apperror"
	"bakehouse/internal/core/security"
)

// Service reads the transfer history. Transfers are written by the
// ledger services inside their own transactions.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns transfers touching any branch the caller may see,
// oldest first.
func (s *Service) List(ctx context.Context, f Filter) ([]*Transfer, error) {
	switch f.Kind {
	case "", KindDiscrete, KindGrocery:
	default:
		return nil, apperror.NewValidation("kind must be discrete or grocery").WithDetail("kind", string(f.Kind))
	}

	branches, ok := security.GetScope(ctx).FilterBranches(f.Branches)
	if !ok {
		return nil, apperror.NewForbidden("no access to the requested branches")
	}
	f.Branches = branches

	out, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	if out == nil {
		out = []*Transfer{}
	}
	return out, nil
}
