package domain

import (
	"context"
	"fmt"

	"bakehouse/internal/core/apperror"
	"bakehouse/internal/core/entity"
	"bakehouse/internal/core/tx"
)

// CatalogService is the CRUD core of the item and branch catalogs. Codes are
// unique across active and deactivated rows; deletion only deactivates.
type CatalogService[T entity.Validatable] struct {
	repo       CatalogRepository[T]
	txManager  tx.Manager
	hooks      Hooks[T]
	entityName string
	codeOf     func(T) string
}

type CatalogServiceConfig[T entity.Validatable] struct {
	Repo      CatalogRepository[T]
	TxManager tx.Manager
	// EntityName appears in not-found and duplicate errors.
	EntityName string
	CodeOf     func(T) string
}

func NewCatalogService[T entity.Validatable](cfg CatalogServiceConfig[T]) *CatalogService[T] {
	return &CatalogService[T]{
		repo:       cfg.Repo,
		txManager:  cfg.TxManager,
		entityName: cfg.EntityName,
		codeOf:     cfg.CodeOf,
	}
}

// Hooks exposes the hook registry to the concrete catalog services.
func (s *CatalogService[T]) Hooks() *Hooks[T] {
	return &s.hooks
}

// Create validates e, rejects a taken code and inserts it.
func (s *CatalogService[T]) Create(ctx context.Context, e T) error {
	if err := s.validate(ctx, e); err != nil {
		return err
	}
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		code := s.codeOf(e)
		exists, err := s.repo.ExistsByCode(ctx, code)
		if err != nil {
			return fmt.Errorf("check %s code: %w", s.entityName, err)
		}
		if exists {
			return apperror.NewDuplicate(s.entityName, "code", code)
		}
		return s.write(ctx, BeforeCreate, AfterCreate, e, "create", s.repo.Create)
	})
}

// Update saves e; the repository enforces the optimistic version check.
func (s *CatalogService[T]) Update(ctx context.Context, e T) error {
	if err := s.validate(ctx, e); err != nil {
		return err
	}
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.write(ctx, BeforeUpdate, AfterUpdate, e, "update", s.repo.Update)
	})
}

// Delete deactivates the entity with code.
func (s *CatalogService[T]) Delete(ctx context.Context, code string) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		e, err := s.GetByCode(ctx, code)
		if err != nil {
			return err
		}
		return s.write(ctx, BeforeDelete, AfterDelete, e, "delete", func(ctx context.Context, _ T) error {
			return s.repo.SetActive(ctx, code, false)
		})
	})
}

func (s *CatalogService[T]) write(ctx context.Context, before, after Stage, e T, op string, fn func(context.Context, T) error) error {
	if err := s.hooks.run(ctx, before, e); err != nil {
		return err
	}
	if err := fn(ctx, e); err != nil {
		if apperror.IsAppError(err) {
			return err
		}
		return fmt.Errorf("%s %s: %w", op, s.entityName, err)
	}
	return s.hooks.run(ctx, after, e)
}

func (s *CatalogService[T]) validate(ctx context.Context, e T) error {
	err := e.Validate(ctx)
	if err == nil || apperror.IsAppError(err) {
		return err
	}
	return apperror.NewValidation(err.Error())
}

// GetByCode returns the active entity with code.
func (s *CatalogService[T]) GetByCode(ctx context.Context, code string) (T, error) {
	e, err := s.repo.GetByCode(ctx, code)
	switch {
	case err == nil:
		return e, nil
	case apperror.IsNotFound(err):
		return e, apperror.NewNotFound(s.entityName, code)
	case apperror.IsAppError(err):
		return e, err
	default:
		return e, apperror.NewInternal(err).WithDetail("entity", s.entityName)
	}
}

// GetByCodes indexes the active entities among codes by code.
func (s *CatalogService[T]) GetByCodes(ctx context.Context, codes []string) (map[string]T, error) {
	out := make(map[string]T, len(codes))
	if len(codes) == 0 {
		return out, nil
	}
	list, err := s.repo.GetByCodes(ctx, codes)
	if err != nil {
		return nil, fmt.Errorf("get %s by codes: %w", s.entityName, err)
	}
	for _, e := range list {
		out[s.codeOf(e)] = e
	}
	return out, nil
}

func (s *CatalogService[T]) List(ctx context.Context, filter ListFilter) (ListResult[T], error) {
	filter.Normalize()
	return s.repo.List(ctx, filter)
}

func (s *CatalogService[T]) ExistsByCode(ctx context.Context, code string) (bool, error) {
	return s.repo.ExistsByCode(ctx, code)
}
