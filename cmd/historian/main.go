// cmd/historian/main.go drains launched games from Redis into Postgres.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/jason-s-yu/erps/internal/cache"
	"github.com/jason-s-yu/erps/internal/config"
	"github.com/jason-s-yu/erps/internal/database"
	"github.com/jason-s-yu/erps/internal/historian"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("invalid configuration: %v", err)
	}
	logger.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.ConnectDB(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatalf("database: %v", err)
	}
	defer pool.Close()
	if err := database.EnsureSchema(ctx, pool); err != nil {
		logger.Fatalf("schema: %v", err)
	}

	rdb, err := cache.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		logger.Fatalf("redis: %v", err)
	}
	defer rdb.Close()

	hs := historian.New(rdb, &database.GameStore{Pool: pool}, historian.Config{
		Queue:         cfg.GameHistoryQueue,
		BatchSize:     cfg.HistorianBatchSize,
		FlushInterval: cfg.HistorianFlushInterval,
	}, logger.WithField("component", "historian"))

	if err := hs.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("historian exited: %v", err)
	}
	logger.Info("historian shutdown complete")
}
