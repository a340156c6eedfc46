package config

import (
	"testing"
	"time"

	"github.com/jason-s-yu/erps/internal/matchmaking"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"TEAM_SIZE", "MATCH_SIZE", "TICK_MS", "PACK_ORDER", "BUS_DRIVER", "LOG_LEVEL", "PRESTART_TIMEOUT"} {
		t.Setenv(k, "")
	}
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, matchmaking.DefaultConfig(), cfg.Matchmaking)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, BusRedis, cfg.BusDriver)
	assert.Equal(t, logrus.InfoLevel, cfg.LogLevel)
	assert.Equal(t, 1000, cfg.OutboxSize)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("TEAM_SIZE", "5")
	t.Setenv("MATCH_SIZE", "2")
	t.Setenv("TICK_MS", "50")
	t.Setenv("PRESTART_TIMEOUT", "30")
	t.Setenv("SETTLE_DELAY", "2s")
	t.Setenv("PACK_ORDER", "FIFO")
	t.Setenv("BUS_DRIVER", "nats")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("INBOX_SIZE", "oops")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Matchmaking.TeamSize)
	assert.Equal(t, 50*time.Millisecond, cfg.Matchmaking.TickInterval)
	assert.Equal(t, 30*time.Second, cfg.Matchmaking.ConfirmTimeout)
	assert.Equal(t, 2*time.Second, cfg.Matchmaking.SettleDelay)
	assert.Equal(t, matchmaking.PackFIFO, cfg.Matchmaking.PackOrder)
	assert.Equal(t, BusNATS, cfg.BusDriver)
	assert.Equal(t, logrus.DebugLevel, cfg.LogLevel)
	assert.Equal(t, 1000, cfg.Matchmaking.InboxSize, "malformed values fall back")
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("BUS_DRIVER", "kafka")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("BUS_DRIVER", "memory")
	t.Setenv("TEAM_SIZE", "0")
	_, err = Load()
	assert.Error(t, err)

	t.Setenv("TEAM_SIZE", "1")
	t.Setenv("LOG_LEVEL", "chatty")
	_, err = Load()
	assert.Error(t, err)
}
