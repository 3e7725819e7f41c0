// Package tx declares the transaction contract used by domain services.
package tx

import "context"

// Manager runs fn in one database transaction: committed when fn returns nil,
// rolled back otherwise. A call inside an active transaction joins it, so a
// service can compose repository calls and other services' operations atomically.
type Manager interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Snapshotter runs read-only work against one consistent snapshot, so
// multi-query reads (reports) never observe a half-applied mutation.
type Snapshotter interface {
	Snapshot(ctx context.Context, fn func(ctx context.Context) error) error
}
