// Package main is the entry point for the bakehouse API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"bakehouse/internal/config"
	corelock "bakehouse/internal/core/lock"
	"bakehouse/internal/domain/auth"
	v1 "bakehouse/internal/infrastructure/http/v1"
	"bakehouse/internal/infrastructure/http/v1/handlers"
	"bakehouse/internal/infrastructure/http/v1/middleware"
	"bakehouse/internal/infrastructure/lock"
	"bakehouse/internal/infrastructure/numerator"
	"bakehouse/internal/infrastructure/storage/postgres"
	"bakehouse/pkg/logger"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		Service:     "bakehouse-api",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx := context.Background()
	log.Infow("starting bakehouse server", "version", version, "env", cfg.Env)

	// --- Database ---
	poolCfg := postgres.DefaultPoolConfig(cfg.Postgres.DSN)
	poolCfg.MaxConns = cfg.Postgres.MaxConns
	poolCfg.MinConns = cfg.Postgres.MinConns
	poolCfg.MaxConnLifetime = cfg.Postgres.MaxConnLifetime

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	txManager := postgres.NewTxManager(pool).WithTimeouts(cfg.Postgres.StatementTimeout, 0)

	// --- Redis (optional) ---
	var (
		rdb    *redis.Client
		locker corelock.Locker = corelock.NoopLocker{}
	)
	healthChecks := []handlers.HealthCheck{}
	if cfg.Redis.Enabled() {
		rdb, err = lock.NewRedisClient(ctx, lock.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Fatalw("failed to connect to redis", "error", err)
		}
		defer func() { _ = rdb.Close() }()

		locker = lock.NewRedisLocker(rdb, cfg.Redis.Prefix)
		healthChecks = append(healthChecks, handlers.HealthCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
		log.Infow("redis locks enabled", "addr", cfg.Redis.Addr)
	} else {
		log.Warn("REDIS_ADDR not set, machine batch locks are process-local")
	}

	// --- Services ---
	services, err := v1.BuildServices(v1.ServicesConfig{
		TxManager: txManager,
		Numerator: numerator.NewTransactional(txManager),
		Locker:    locker,
	})
	if err != nil {
		log.Fatalw("failed to build services", "error", err)
	}

	jwtConfig := auth.DefaultJWTConfig(cfg.JWT.Secret)
	jwtConfig.Issuer = cfg.JWT.Issuer
	jwtService := auth.NewJWTService(jwtConfig)

	var idempotency middleware.IdempotencyStore
	if cfg.IdempotencyEnabled {
		idempotency = postgres.NewIdempotencyStore(txManager, cfg.IdempotencyTTL)
	}

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Logger:       log,
		JWTValidator: jwtService,
		Services:     services,
		Health:       handlers.NewHealthHandler(version, pool, healthChecks...),
		Idempotency:  idempotency,
	})

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		log.Infow("server starting", "port", cfg.HTTP.Port, "idempotency", cfg.IdempotencyEnabled)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}
