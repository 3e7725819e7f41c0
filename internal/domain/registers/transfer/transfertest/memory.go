// Package transfertest provides an in-memory transfer.Repository.
package transfertest

import (
	"context"
	"slices"
	"sync"

	"bakehouse/internal/domain/registers/transfer"
)

// MemoryRepository keeps transfers in a slice.
type MemoryRepository struct {
	mu        sync.Mutex
	Transfers []*transfer.Transfer
}

var _ transfer.Repository = (*MemoryRepository)(nil)

func (m *MemoryRepository) Insert(_ context.Context, transfers ...*transfer.Transfer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Transfers = append(m.Transfers, transfers...)
	return nil
}

func (m *MemoryRepository) List(_ context.Context, f transfer.Filter) ([]*transfer.Transfer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*transfer.Transfer
	for _, t := range m.Transfers {
		if !f.Date.IsZero() && !t.Date.Equal(f.Date) {
			continue
		}
		if f.Kind != "" && t.Kind != f.Kind {
			continue
		}
		if f.Branches != nil && !slices.Contains(f.Branches, t.FromBranch) && !slices.Contains(f.Branches, t.ToBranch) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}
