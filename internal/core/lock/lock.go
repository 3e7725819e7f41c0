// Package lock defines a distributed lock contract for critical sections that
// span more than one row (e.g. "only one active machine batch").
package lock

import (
	"context"
	"errors"
	"time"
)

// ErrNotObtained is returned when the lock is held by someone else.
var ErrNotObtained = errors.New("lock not obtained")

// Lock is a held lock.
type Lock interface {
	Release(ctx context.Context) error
}

// Locker obtains named locks with a TTL.
type Locker interface {
	Obtain(ctx context.Context, key string, ttl time.Duration) (Lock, error)
}

// NoopLocker always succeeds. Used when Redis is not configured; the database
// constraints remain the final guard.
type NoopLocker struct{}

func (NoopLocker) Obtain(context.Context, string, time.Duration) (Lock, error) {
	return noopLock{}, nil
}

type noopLock struct{}

func (noopLock) Release(context.Context) error { return nil }
