package branch

import (
	"context"

	"bakehouse/internal/core/apperror"
	"bakehouse/internal/core/tx"
	"bakehouse/internal/domain"
	"bakehouse/internal/domain/activity"
)

// Lookup checks branch codes used by the ledgers.
type Lookup interface {
	// Require fails with NOT_FOUND on the first unknown or inactive branch.
	Require(ctx context.Context, codes ...string) error
}

// Service provides business logic for Branch catalog.
type Service struct {
	*domain.CatalogService[*Branch]
	activity activity.Recorder
}

var _ Lookup = (*Service)(nil)

// NewService creates a new Branch service.
func NewService(repo Repository, txManager tx.Manager, recorder activity.Recorder) *Service {
	if recorder == nil {
		recorder = activity.Nop{}
	}
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Branch]{
		Repo:       repo,
		TxManager:  txManager,
		EntityName: "branch",
		CodeOf:     func(b *Branch) string { return b.Code },
	})
	svc := &Service{CatalogService: base, activity: recorder}

	base.Hooks().On(domain.AfterCreate, func(ctx context.Context, b *Branch) error {
		return svc.activity.Record(ctx, b.Code, activity.ActionBranchCreate, "branch", b.Code, b)
	})

	return svc
}

// Require implements Lookup.
func (s *Service) Require(ctx context.Context, codes ...string) error {
	found, err := s.GetByCodes(ctx, codes)
	if err != nil {
		return err
	}
	for _, c := range codes {
		if _, ok := found[c]; !ok {
			return apperror.NewNotFound("branch", c)
		}
	}
	return nil
}
