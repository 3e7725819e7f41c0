package domain

import "context"

// Stage is a point in a catalog write where hooks run.
type Stage int

const (
	BeforeCreate Stage = iota
	AfterCreate
	BeforeUpdate
	AfterUpdate
	BeforeDelete
	AfterDelete
	stageCount
)

// Hook runs inside the write transaction; an error rolls the write back.
type Hook[T any] func(ctx context.Context, entity T) error

// Hooks holds the registered hooks per stage, run in registration order.
type Hooks[T any] struct {
	byStage [stageCount][]Hook[T]
}

func (h *Hooks[T]) On(stage Stage, hook Hook[T]) {
	h.byStage[stage] = append(h.byStage[stage], hook)
}

func (h *Hooks[T]) run(ctx context.Context, stage Stage, entity T) error {
	for _, hook := range h.byStage[stage] {
		if err := hook(ctx, entity); err != nil {
			return err
		}
	}
	return nil
}
