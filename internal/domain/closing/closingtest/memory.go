// Package closingtest provides an in-memory closing.Repository.
package closingtest

import (
	"context"
	"sync"
	"time"

	"bakehouse/internal/domain/closing"
)

// MemoryRepository keeps flags in a map. LockScope only records the call;
// callers are expected to be single-threaded.
type MemoryRepository struct {
	mu    sync.Mutex
	flags map[string]*closing.Flag
	// Locks records LockScope calls as "key:shared" or "key:exclusive".
	Locks []string
}

var _ closing.Repository = (*MemoryRepository)(nil)

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{flags: make(map[string]*closing.Flag)}
}

func (m *MemoryRepository) LockScope(_ context.Context, scope closing.Scope, exclusive bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mode := "shared"
	if exclusive {
		mode = "exclusive"
	}
	m.Locks = append(m.Locks, scope.Key()+":"+mode)
	return nil
}

func (m *MemoryRepository) Get(_ context.Context, scope closing.Scope) (*closing.Flag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.flags[scope.Key()], nil
}

func (m *MemoryRepository) Insert(_ context.Context, f *closing.Flag) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := f.Scope().Key()
	if _, ok := m.flags[k]; ok {
		return closing.ErrFlagExists
	}
	m.flags[k] = f
	return nil
}

func (m *MemoryRepository) ListByDate(_ context.Context, date time.Time, branches []string) ([]*closing.Flag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	allowed := make(map[string]bool, len(branches))
	for _, b := range branches {
		allowed[b] = true
	}
	var out []*closing.Flag
	for _, f := range m.flags {
		if !f.Date.Equal(date) {
			continue
		}
		if branches != nil && !allowed[f.Branch] {
			continue
		}
		out = append(out, f)
	}
	return out, nil
}
