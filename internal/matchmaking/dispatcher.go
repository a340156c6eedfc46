package matchmaking

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrInboxFull is returned by TrySubmit when the worker is saturated.
var ErrInboxFull = errors.New("matchmaking inbox full")

// Dispatcher serializes commands and ticks onto a single worker goroutine that
// owns the Engine. Producers only ever touch the inbox channel.
type Dispatcher struct {
	engine   *Engine
	inbox    chan Command
	interval time.Duration
	now      func() time.Time
	log      logrus.FieldLogger
}

func NewDispatcher(engine *Engine) *Dispatcher {
	size := engine.cfg.InboxSize
	if size < 1 {
		size = 1
	}
	return &Dispatcher{
		engine:   engine,
		inbox:    make(chan Command, size),
		interval: engine.cfg.TickInterval,
		now:      time.Now,
		log:      engine.log,
	}
}

// Submit enqueues cmd, blocking while the inbox is full.
func (d *Dispatcher) Submit(ctx context.Context, cmd Command) error {
	select {
	case d.inbox <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrySubmit enqueues cmd without blocking.
func (d *Dispatcher) TrySubmit(cmd Command) error {
	select {
	case d.inbox <- cmd:
		return nil
	default:
		return ErrInboxFull
	}
}

// Snapshot asks the worker for its current registry sizes.
func (d *Dispatcher) Snapshot(ctx context.Context) (Stats, error) {
	reply := make(chan Stats, 1)
	if err := d.Submit(ctx, Snapshot{Reply: reply}); err != nil {
		return Stats{}, err
	}
	select {
	case s := <-reply:
		return s, nil
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	}
}

// Run drives the engine until ctx is cancelled. Commands are applied in arrival
// order; a tick fires every interval regardless of inbox traffic.
func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.log.WithField("interval", d.interval).Info("matchmaking worker started")
	for {
		select {
		case <-ctx.Done():
			d.log.Info("matchmaking worker stopped")
			return ctx.Err()
		case cmd := <-d.inbox:
			d.engine.Handle(ctx, cmd)
		case <-ticker.C:
			d.engine.Tick(ctx, d.now())
		}
	}
}
