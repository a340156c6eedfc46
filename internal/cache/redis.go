// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jason-s-yu/erps/internal/models"
	"github.com/redis/go-redis/v9"
)

// DefaultQueueName is the Redis list launched games are pushed onto.
const DefaultQueueName = "erps_games"

// ConnectRedis opens a client and pings it.
func ConnectRedis(ctx context.Context, addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// GameHistory queues launched sessions for the historian.
type GameHistory struct {
	rdb   *redis.Client
	queue string
}

func NewGameHistory(rdb *redis.Client, queue string) *GameHistory {
	if queue == "" {
		queue = DefaultQueueName
	}
	return &GameHistory{rdb: rdb, queue: queue}
}

// RecordLaunch serializes the session and pushes it to the tail of the queue.
func (h *GameHistory) RecordLaunch(ctx context.Context, s models.GameSession) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal game session: %w", err)
	}
	if err := h.rdb.RPush(ctx, h.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", h.queue, err)
	}
	return nil
}
