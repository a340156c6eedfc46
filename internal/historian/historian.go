// Package historian drains the launched-game queue into Postgres.
package historian

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/jason-s-yu/erps/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Store persists a batch of sessions atomically.
type Store interface {
	SaveGames(ctx context.Context, sessions []models.GameSession) error
}

type Config struct {
	Queue         string
	BatchSize     int
	FlushInterval time.Duration
	// PopTimeout bounds each BLPop so shutdown is noticed promptly.
	PopTimeout time.Duration
}

// Service pops launch records from Redis, batches them and flushes to the
// store when the batch fills or the flush interval elapses.
type Service struct {
	rdb   *redis.Client
	store Store
	cfg   Config
	log   logrus.FieldLogger

	batchMu sync.Mutex
	batch   []models.GameSession
}

func New(rdb *redis.Client, store Store, cfg Config, logger logrus.FieldLogger) *Service {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 20
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 500 * time.Millisecond
	}
	if cfg.PopTimeout <= 0 {
		cfg.PopTimeout = 3 * time.Second
	}
	return &Service{
		rdb:   rdb,
		store: store,
		cfg:   cfg,
		log:   logger,
		batch: make([]models.GameSession, 0, cfg.BatchSize),
	}
}

// Run consumes until ctx is cancelled, then flushes what it holds.
func (hs *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(hs.cfg.FlushInterval)
	defer ticker.Stop()

	hs.log.WithField("queue", hs.cfg.Queue).Info("historian started")
	for {
		select {
		case <-ctx.Done():
			hs.flush(context.Background())
			hs.log.Info("historian stopped")
			return ctx.Err()

		case <-ticker.C:
			hs.flush(ctx)

		default:
			res, err := hs.rdb.BLPop(ctx, hs.cfg.PopTimeout, hs.cfg.Queue).Result()
			if err != nil {
				if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
					hs.log.WithError(err).Error("BLPop failed")
					time.Sleep(hs.cfg.FlushInterval)
				}
				continue
			}
			// res[0] is the queue name, res[1] the payload
			if len(res) < 2 {
				continue
			}
			var s models.GameSession
			if err := json.Unmarshal([]byte(res[1]), &s); err != nil {
				hs.log.WithError(err).Warn("invalid launch record")
				continue
			}
			hs.append(ctx, s)
		}
	}
}

func (hs *Service) append(ctx context.Context, s models.GameSession) {
	hs.batchMu.Lock()
	hs.batch = append(hs.batch, s)
	full := len(hs.batch) >= hs.cfg.BatchSize
	hs.batchMu.Unlock()
	if full {
		hs.flush(ctx)
	}
}

// flush writes the pending batch. On failure the records stay queued in
// memory for the next attempt.
func (hs *Service) flush(ctx context.Context) {
	hs.batchMu.Lock()
	defer hs.batchMu.Unlock()

	if len(hs.batch) == 0 {
		return
	}
	if err := hs.store.SaveGames(ctx, hs.batch); err != nil {
		hs.log.WithError(err).WithField("pending", len(hs.batch)).Error("failed to flush games")
		return
	}
	hs.log.WithField("count", len(hs.batch)).Debug("flushed games")
	hs.batch = hs.batch[:0]
}
