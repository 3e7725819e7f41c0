package item

import (
	"context"
	"fmt"
	"sort"

	"bakehouse/internal/core/apperror"
	"bakehouse/internal/core/tx"
	"bakehouse/internal/domain"
	"bakehouse/internal/domain/activity"
	"bakehouse/internal/domain/filter"
)

// Lookup resolves item codes for the ledgers.
type Lookup interface {
	// RequireTyped returns active items of the given type keyed by code.
	// Unknown codes yield NOT_FOUND, items of another type VALIDATION_ERROR.
	RequireTyped(ctx context.Context, itemType Type, codes ...string) (map[string]*Item, error)
}

// Service provides business logic for Item catalog.
type Service struct {
	*domain.CatalogService[*Item]
	activity activity.Recorder
}

var _ Lookup = (*Service)(nil)

// NewService creates a new Item service.
func NewService(repo Repository, txManager tx.Manager, recorder activity.Recorder) *Service {
	if recorder == nil {
		recorder = activity.Nop{}
	}
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Item]{
		Repo:       repo,
		TxManager:  txManager,
		EntityName: "item",
		CodeOf:     func(it *Item) string { return it.Code },
	})

	svc := &Service{
		CatalogService: base,
		activity:       recorder,
	}

	base.Hooks().On(domain.AfterCreate, svc.record(activity.ActionItemCreate))
	base.Hooks().On(domain.AfterUpdate, svc.record(activity.ActionItemUpdate))
	base.Hooks().On(domain.AfterDelete, svc.record(activity.ActionItemDelete))

	return svc
}

func (s *Service) record(action activity.Action) domain.Hook[*Item] {
	return func(ctx context.Context, it *Item) error {
		return s.activity.Record(ctx, "", action, "item", it.Code, it)
	}
}

// ListByType lists active items of one type.
func (s *Service) ListByType(ctx context.Context, itemType Type, f domain.ListFilter) (domain.ListResult[*Item], error) {
	if itemType != "" {
		if !itemType.Valid() {
			return domain.ListResult[*Item]{}, apperror.NewValidation("invalid item type").
				WithDetail("value", string(itemType))
		}
		f.AdvancedFilters = append(f.AdvancedFilters, filter.Eq("item_type", string(itemType)))
	}
	return s.List(ctx, f)
}

// RequireTyped implements Lookup.
func (s *Service) RequireTyped(ctx context.Context, itemType Type, codes ...string) (map[string]*Item, error) {
	items, err := s.GetByCodes(ctx, uniqueCodes(codes))
	if err != nil {
		return nil, err
	}
	for _, code := range codes {
		it, ok := items[code]
		if !ok {
			return nil, apperror.NewNotFound("item", code)
		}
		if it.ItemType != itemType {
			return nil, apperror.NewValidation(fmt.Sprintf("item %s is not a %s", code, itemType)).
				WithDetail("item_code", code).
				WithDetail("item_type", string(it.ItemType))
		}
	}
	return items, nil
}

func uniqueCodes(codes []string) []string {
	seen := make(map[string]struct{}, len(codes))
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
