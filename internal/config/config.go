// Package config reads the orchestrator's environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jason-s-yu/erps/internal/database"
	"github.com/jason-s-yu/erps/internal/matchmaking"
	"github.com/sirupsen/logrus"
)

// Bus drivers.
const (
	BusRedis  = "redis"
	BusNATS   = "nats"
	BusMemory = "memory"
)

type Config struct {
	Matchmaking matchmaking.Config

	HTTPPort   string
	OutboxSize int
	LogLevel   logrus.Level

	BusDriver string
	RedisAddr string
	RedisDB   int
	NatsURL   string

	GameServerBin    string
	GameHistoryQueue string

	Postgres database.Config

	TokenExpire   string
	JWTPrivateKey string
	JWTPublicKey  string

	HistorianBatchSize     int
	HistorianFlushInterval time.Duration
}

// Load builds a Config from the environment, applying defaults for anything
// unset, and validates it.
func Load() (Config, error) {
	mm := matchmaking.DefaultConfig()
	mm.TeamSize = getEnvInt("TEAM_SIZE", mm.TeamSize)
	mm.MatchSize = getEnvInt("MATCH_SIZE", mm.MatchSize)
	mm.TickInterval = time.Duration(getEnvInt("TICK_MS", int(mm.TickInterval/time.Millisecond))) * time.Millisecond
	mm.ConfirmTimeout = getEnvDuration("PRESTART_TIMEOUT", mm.ConfirmTimeout)
	mm.SettleDelay = getEnvDuration("SETTLE_DELAY", mm.SettleDelay)
	mm.PortFloor = getEnvInt("GAME_PORT_FLOOR", mm.PortFloor)
	mm.PortCeiling = getEnvInt("GAME_PORT_CEILING", mm.PortCeiling)
	mm.ServerHost = getEnv("GAME_SERVER_HOST", mm.ServerHost)
	mm.PackOrder = matchmaking.PackOrder(strings.ToLower(getEnv("PACK_ORDER", string(mm.PackOrder))))
	mm.InboxSize = getEnvInt("INBOX_SIZE", mm.InboxSize)

	level, err := logrus.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	cfg := Config{
		Matchmaking: mm,
		HTTPPort:    getEnv("HTTP_PORT", "8080"),
		OutboxSize:  getEnvInt("OUTBOX_SIZE", 1000),
		LogLevel:    level,

		BusDriver: strings.ToLower(getEnv("BUS_DRIVER", BusRedis)),
		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:   getEnvInt("REDIS_DB", 0),
		NatsURL:   getEnv("NATS_URL", "nats://localhost:4222"),

		GameServerBin:    getEnv("GAME_SERVER_BIN", ""),
		GameHistoryQueue: getEnv("GAME_HISTORY_QUEUE", "erps_games"),

		Postgres: database.Config{
			User:     getEnv("POSTGRES_USER", "postgres"),
			Password: getEnv("POSTGRES_PASSWORD", ""),
			Host:     getEnv("PG_HOST", "localhost"),
			Port:     getEnv("PG_PORT", "5432"),
			Database: getEnv("PG_DATABASE", "erps"),
			MaxConns: int32(getEnvInt("PG_MAX_CONNS", 10)),
		},

		TokenExpire:   getEnv("TOKEN_EXPIRE_TIME", "never"),
		JWTPrivateKey: getEnv("JWT_PRIVATE_KEY_PATH", ""),
		JWTPublicKey:  getEnv("JWT_PUBLIC_KEY_PATH", ""),

		HistorianBatchSize:     getEnvInt("HISTORIAN_BATCH_SIZE", 20),
		HistorianFlushInterval: time.Duration(getEnvInt("HISTORIAN_FLUSH_MS", 500)) * time.Millisecond,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := c.Matchmaking.Validate(); err != nil {
		return err
	}
	switch c.BusDriver {
	case BusRedis, BusNATS, BusMemory:
	default:
		return fmt.Errorf("unknown BUS_DRIVER %q", c.BusDriver)
	}
	if c.OutboxSize < 1 {
		return fmt.Errorf("OUTBOX_SIZE must be at least 1, got %d", c.OutboxSize)
	}
	return nil
}

// getEnv retrieves an environment variable's value or returns a default.
func getEnv(key, defVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defVal
}

// getEnvInt parses an integer environment variable, falling back to defVal
// when unset or malformed.
func getEnvInt(key string, defVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defVal
	}
	return i
}

// getEnvDuration accepts Go durations ("20s") or bare seconds ("20").
func getEnvDuration(key string, defVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defVal
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defVal
}
