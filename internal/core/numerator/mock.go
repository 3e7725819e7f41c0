package numerator

import (
	"context"
	"sync"
	"time"
)

// MemoryGenerator counts in memory, per sequence key. For tests and tools
// that run without a database.
type MemoryGenerator struct {
	// Err, when set, is returned by every call.
	Err error

	mu       sync.Mutex
	counters map[string]int64
}

var _ Generator = (*MemoryGenerator)(nil)

// Next implements Generator.
func (g *MemoryGenerator) Next(_ context.Context, seq Sequence, period time.Time) (string, error) {
	if g.Err != nil {
		return "", g.Err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.counters == nil {
		g.counters = make(map[string]int64)
	}
	key := seq.Key(period)
	g.counters[key]++
	return seq.Format(period, g.counters[key]), nil
}
