package bus

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// Outbox decouples the matchmaking worker from broker latency. Notify blocks
// while the buffer is full, so notifications are never dropped while Run is
// alive; once Run returns they are discarded.
type Outbox struct {
	bus  Bus
	ch   chan Message
	done chan struct{}
	once sync.Once
	log  logrus.FieldLogger
}

func NewOutbox(b Bus, size int, logger logrus.FieldLogger) *Outbox {
	if size < 1 {
		size = 1
	}
	return &Outbox{
		bus:  b,
		ch:   make(chan Message, size),
		done: make(chan struct{}),
		log:  logger,
	}
}

func (o *Outbox) Notify(topic string, payload []byte) {
	select {
	case <-o.done:
		o.log.WithField("topic", topic).Warn("outbox stopped, notification dropped")
		return
	default:
	}
	select {
	case o.ch <- Message{Topic: topic, Payload: payload}:
	case <-o.done:
		o.log.WithField("topic", topic).Warn("outbox stopped, notification dropped")
	}
}

// Run publishes queued messages until ctx is cancelled, then flushes what is
// already buffered.
func (o *Outbox) Run(ctx context.Context) error {
	defer o.once.Do(func() { close(o.done) })
	for {
		select {
		case <-ctx.Done():
			o.flush()
			return ctx.Err()
		case m := <-o.ch:
			o.publish(ctx, m)
		}
	}
}

func (o *Outbox) flush() {
	for {
		select {
		case m := <-o.ch:
			o.publish(context.Background(), m)
		default:
			return
		}
	}
}

func (o *Outbox) publish(ctx context.Context, m Message) {
	if err := o.bus.Publish(ctx, m.Topic, m.Payload); err != nil {
		o.log.WithError(err).WithField("topic", m.Topic).Error("failed to publish notification")
	}
}

// Len reports how many messages are waiting.
func (o *Outbox) Len() int {
	return len(o.ch)
}
