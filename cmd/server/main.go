// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/erps/internal/auth"
	"github.com/jason-s-yu/erps/internal/bus"
	"github.com/jason-s-yu/erps/internal/cache"
	"github.com/jason-s-yu/erps/internal/config"
	"github.com/jason-s-yu/erps/internal/database"
	"github.com/jason-s-yu/erps/internal/handlers"
	"github.com/jason-s-yu/erps/internal/matchmaking"
	"github.com/jason-s-yu/erps/internal/provision"
	"github.com/jason-s-yu/erps/internal/router"
	_ "github.com/joho/godotenv/autoload"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("invalid configuration: %v", err)
	}
	logger.SetLevel(cfg.LogLevel)

	switch {
	case cfg.JWTPrivateKey != "":
		err = auth.InitFromPath(cfg.JWTPrivateKey, cfg.JWTPublicKey, cfg.TokenExpire)
	case cfg.JWTPublicKey != "":
		err = auth.InitFromPublicKey(cfg.JWTPublicKey)
	default:
		logger.Warn("no JWT_PUBLIC_KEY_PATH set, websocket gateway disabled")
	}
	if err != nil {
		logger.Fatalf("auth init: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.ConnectDB(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatalf("database: %v", err)
	}
	defer pool.Close()

	rdb, err := cache.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		logger.Fatalf("redis: %v", err)
	}
	defer rdb.Close()

	b, err := openBus(cfg, rdb, logger.WithField("component", "bus"))
	if err != nil {
		logger.Fatalf("bus: %v", err)
	}
	defer b.Close()

	outbox := bus.NewOutbox(b, cfg.OutboxSize, logger.WithField("component", "outbox"))
	engine := matchmaking.NewEngine(cfg.Matchmaking, matchmaking.Options{
		Notifier: outbox,
		Launcher: provision.NewLauncher(cfg.GameServerBin, logger.WithField("component", "launcher")),
		Roster:   provision.NewRosterBuilder(&database.NameStore{Pool: pool}, logger.WithField("component", "roster")),
		Recorder: cache.NewGameHistory(rdb, cfg.GameHistoryQueue),
		Logger:   logger.WithField("component", "matchmaking"),
	})
	dispatcher := matchmaking.NewDispatcher(engine)
	listener := router.NewListener(b, dispatcher, logger.WithField("component", "router"))

	go outbox.Run(ctx)
	go dispatcher.Run(ctx)
	go func() {
		if err := listener.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.WithError(err).Error("listener stopped")
			stop()
		}
	}()

	var gateway bus.Bus
	if auth.CanVerify() {
		gateway = b
	}
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           handlers.NewAPIMux(logger.WithField("component", "http"), dispatcher, gateway),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, 5*time.Second, logger)
	}()

	logger.WithFields(logrus.Fields{
		"addr":       srv.Addr,
		"bus":        cfg.BusDriver,
		"gateway":    gateway != nil,
		"team_size":  cfg.Matchmaking.TeamSize,
		"match_size": cfg.Matchmaking.MatchSize,
	}).Info("erps orchestrator running")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("server exited: %v", err)
	}
	logger.Info("erps orchestrator stopped")
}

// shutdownHTTP stops srv, giving in-flight requests up to grace to finish.
func shutdownHTTP(srv *http.Server, grace time.Duration, logger logrus.FieldLogger) {
	ctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Warn("http shutdown incomplete")
		return
	}
	logger.Info("http server shut down")
}

func openBus(cfg config.Config, rdb *redis.Client, logger logrus.FieldLogger) (bus.Bus, error) {
	switch cfg.BusDriver {
	case config.BusNATS:
		return bus.ConnectNATS(cfg.NatsURL, logger)
	case config.BusMemory:
		return bus.NewMemoryBus(), nil
	default:
		return bus.NewRedisBus(rdb, logger), nil
	}
}
