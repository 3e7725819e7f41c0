// Package main is the entry point for the bakehouse background worker.
// It relays outbox events and purges expired idempotency keys.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/redis/go-redis/v9"

	"bakehouse/internal/config"
	corelock "bakehouse/internal/core/lock"
	"bakehouse/internal/infrastructure/lock"
	"bakehouse/internal/infrastructure/storage/postgres"
	"bakehouse/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		Service:     "bakehouse-worker",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Info("starting bakehouse worker")

	poolCfg := postgres.DefaultPoolConfig(cfg.Postgres.DSN)
	poolCfg.ApplicationName = "bakehouse-worker"
	poolCfg.MaxConns = 5
	poolCfg.MinConns = 1
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	var (
		rdb    *redis.Client
		locker corelock.Locker = corelock.NoopLocker{}
	)
	if cfg.Redis.Enabled() {
		rdb, err = lock.NewRedisClient(ctx, lock.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: 4,
		})
		if err != nil {
			log.Fatalw("failed to connect to redis", "error", err)
		}
		defer func() { _ = rdb.Close() }()
		locker = lock.NewRedisLocker(rdb, cfg.Redis.Prefix)
	}

	var sink EventSink = logSink{log: log.WithComponent("events")}
	if rdb != nil {
		sink = &redisSink{rdb: rdb, channelPrefix: "bakehouse:events:"}
	}

	txManager := postgres.NewTxManager(pool)
	relay := postgres.NewOutboxRelay(txManager, postgres.OutboxRelayConfig{
		BatchSize:  cfg.Worker.OutboxBatchSize,
		MaxRetries: cfg.Worker.OutboxMaxRetries,
	}, relayHandler(sink))

	worker := NewWorker(WorkerConfig{
		Relay:       relay,
		Idempotency: postgres.NewIdempotencyStore(txManager, cfg.IdempotencyTTL),
		Locker:      locker,
		Settings:    cfg.Worker,
		Logger:      log,
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Run(ctx)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()

	wg.Wait()
	log.Info("worker stopped")
}
