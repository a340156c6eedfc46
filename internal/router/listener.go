package router

import (
	"context"
	"fmt"

	"github.com/jason-s-yu/erps/internal/bus"
	"github.com/jason-s-yu/erps/internal/matchmaking"
	"github.com/sirupsen/logrus"
)

// Submitter accepts commands for the matchmaking worker.
type Submitter interface {
	Submit(ctx context.Context, cmd matchmaking.Command) error
}

// Listener feeds bus traffic into a Submitter.
type Listener struct {
	bus  bus.Bus
	sink Submitter
	log  logrus.FieldLogger
}

func NewListener(b bus.Bus, sink Submitter, logger logrus.FieldLogger) *Listener {
	return &Listener{bus: b, sink: sink, log: logger}
}

// Run subscribes and forwards until ctx is cancelled or the subscription
// ends. Malformed messages are logged and skipped.
func (l *Listener) Run(ctx context.Context) error {
	sub, err := l.bus.Subscribe(ctx, Subscriptions()...)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	defer sub.Close()
	l.log.WithField("patterns", len(Subscriptions())).Info("listening for member commands")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-sub.Messages():
			if !ok {
				return fmt.Errorf("subscription closed")
			}
			cmd, err := Parse(m.Topic, m.Payload)
			if err != nil {
				l.log.WithError(err).WithField("topic", m.Topic).Warn("dropping inbound message")
				continue
			}
			if err := l.sink.Submit(ctx, cmd); err != nil {
				return err
			}
		}
	}
}
