package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tidemarkdata/clickstream-engine/internal/engine"
	"github.com/tidemarkdata/clickstream-engine/internal/warehouse"
	"github.com/tidemarkdata/clickstream-engine/pkg/config"
	"github.com/tidemarkdata/clickstream-engine/pkg/db"
	"github.com/tidemarkdata/clickstream-engine/pkg/logger"
	"github.com/tidemarkdata/clickstream-engine/pkg/metrics"
	"github.com/tidemarkdata/clickstream-engine/pkg/migrate"
	"github.com/tidemarkdata/clickstream-engine/pkg/redis"
)

// cmd/engine executes one batch computation and exits: acquire the run lock,
// load accepted events, compute the derived tables, replace them atomically,
// record the audit row. Retries belong to the external orchestrator.
func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "engine"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "engine",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx = logg.WithField(ctx, "env", cfg.App.Env)

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	lock, err := engine.NewRedisLock(redisClient, cfg.Engine.RunLockKey, cfg.Engine.RunLockTTL)
	requireResource(ctx, logg, "run lock", err)

	acquired, err := lock.Acquire(ctx)
	requireResource(ctx, logg, "run lock acquire", err)
	if !acquired {
		logg.Warn(ctx, "another engine run holds the lock, exiting")
		return
	}
	defer func() {
		if err := lock.Release(ctx); err != nil {
			logg.Error(ctx, "failed to release run lock", err)
		}
	}()

	repo, err := warehouse.NewRepo(dbClient, cfg.Engine.WriteBatchSize)
	requireResource(ctx, logg, "warehouse repo", err)

	runMetrics := metrics.NewEngineRunMetrics(prometheus.DefaultRegisterer)

	svc, err := engine.NewService(repo, cfg.Engine, logg, runMetrics)
	requireResource(ctx, logg, "engine service", err)

	run, err := svc.Run(ctx)
	if err != nil {
		logg.Error(ctx, "engine run failed", err)
		os.Exit(1)
	}

	ctx = logg.WithRunID(ctx, run.ID.String())
	logg.Info(ctx, "engine run finished")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	ctx = logg.WithField(ctx, "resource", resource)
	logg.Error(ctx, "failed to bootstrap resource", err)
	os.Exit(1)
}
