package main

import (
	"context"
	"errors"
	"time"

	"bakehouse/internal/config"
	corelock "bakehouse/internal/core/lock"
	"bakehouse/internal/infrastructure/storage/postgres"
	"bakehouse/pkg/logger"
)

// Relay is the outbox side of the worker.
type Relay interface {
	ProcessBatch(ctx context.Context) (int, error)
	MoveToDLQ(ctx context.Context) (int64, error)
	PurgePublished(ctx context.Context, olderThan time.Duration) (int64, error)
}

// KeyCleaner purges expired idempotency keys.
type KeyCleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

var (
	_ Relay      = (*postgres.OutboxRelay)(nil)
	_ KeyCleaner = (*postgres.IdempotencyStore)(nil)
)

// WorkerConfig wires the worker's jobs.
type WorkerConfig struct {
	Relay       Relay
	Idempotency KeyCleaner
	Locker      corelock.Locker
	Settings    config.WorkerConfig
	Logger      *logger.Logger
}

// Worker runs the periodic jobs. With a shared Locker only one instance
// relays at a time.
type Worker struct {
	relay       Relay
	idempotency KeyCleaner
	locker      corelock.Locker
	settings    config.WorkerConfig
	log         *logger.Logger
}

const (
	relayLockKey   = "worker:outbox"
	cleanupLockKey = "worker:cleanup"
)

// NewWorker creates a worker.
func NewWorker(cfg WorkerConfig) *Worker {
	if cfg.Locker == nil {
		cfg.Locker = corelock.NoopLocker{}
	}
	if cfg.Settings.OutboxInterval <= 0 {
		cfg.Settings.OutboxInterval = time.Second
	}
	if cfg.Settings.IdempotencyInterval <= 0 {
		cfg.Settings.IdempotencyInterval = time.Hour
	}
	return &Worker{
		relay:       cfg.Relay,
		idempotency: cfg.Idempotency,
		locker:      cfg.Locker,
		settings:    cfg.Settings,
		log:         cfg.Logger.WithComponent("worker"),
	}
}

// Run blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	relayTicker := time.NewTicker(w.settings.OutboxInterval)
	defer relayTicker.Stop()

	cleanupTicker := time.NewTicker(w.settings.IdempotencyInterval)
	defer cleanupTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-relayTicker.C:
			w.withLock(ctx, relayLockKey, 10*w.settings.OutboxInterval, w.relayOnce)
		case <-cleanupTicker.C:
			w.withLock(ctx, cleanupLockKey, 5*time.Minute, w.cleanupOnce)
		}
	}
}

// withLock runs fn when this instance obtains key; a held lock skips the tick.
func (w *Worker) withLock(ctx context.Context, key string, ttl time.Duration, fn func(ctx context.Context)) {
	lk, err := w.locker.Obtain(ctx, key, ttl)
	if errors.Is(err, corelock.ErrNotObtained) {
		return
	}
	if err != nil {
		w.log.Warnw("failed to obtain worker lock", "key", key, "error", err)
		return
	}
	defer func() {
		if err := lk.Release(context.WithoutCancel(ctx)); err != nil {
			w.log.Debugw("release worker lock", "key", key, "error", err)
		}
	}()
	fn(ctx)
}

func (w *Worker) relayOnce(ctx context.Context) {
	n, err := w.relay.ProcessBatch(ctx)
	if err != nil {
		w.log.Errorw("outbox batch failed", "error", err)
		return
	}
	if n > 0 {
		w.log.Debugw("relayed outbox batch", "count", n)
	}

	moved, err := w.relay.MoveToDLQ(ctx)
	if err != nil {
		w.log.Errorw("outbox dlq move failed", "error", err)
	} else if moved > 0 {
		w.log.Warnw("outbox messages moved to dlq", "count", moved)
	}
}

func (w *Worker) cleanupOnce(ctx context.Context) {
	if n, err := w.idempotency.CleanupExpired(ctx); err != nil {
		w.log.Errorw("idempotency cleanup failed", "error", err)
	} else if n > 0 {
		w.log.Infow("cleaned up idempotency keys", "count", n)
	}

	if w.settings.OutboxRetention > 0 {
		if n, err := w.relay.PurgePublished(ctx, w.settings.OutboxRetention); err != nil {
			w.log.Errorw("outbox purge failed", "error", err)
		} else if n > 0 {
			w.log.Infow("purged published outbox messages", "count", n)
		}
	}
}
