package bus

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// NatsBus maps topics onto NATS subjects: levels become tokens, `+` becomes
// `*` and `#` becomes `>`. A leading slash has no subject equivalent and is
// restored on delivery from the subscribing pattern.
type NatsBus struct {
	nc  *nats.Conn
	log logrus.FieldLogger
}

// ConnectNATS dials url and keeps reconnecting for the life of the process.
func ConnectNATS(url string, logger logrus.FieldLogger) (*NatsBus, error) {
	nc, err := nats.Connect(url,
		nats.Name("erps-"+uuid.NewString()),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.WithError(err).Warn("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.WithField("url", nc.ConnectedUrl()).Info("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats at %s: %w", url, err)
	}
	return &NatsBus{nc: nc, log: logger}, nil
}

func (b *NatsBus) Publish(_ context.Context, topic string, payload []byte) error {
	subject := Subject(topic)
	if err := b.nc.Publish(subject, payload); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	return nil
}

func (b *NatsBus) Subscribe(_ context.Context, patterns ...string) (Subscription, error) {
	if err := validatePatterns(patterns); err != nil {
		return nil, err
	}
	s := &natsSub{
		out:  make(chan Message, memoryBuffer),
		done: make(chan struct{}),
	}
	for _, p := range patterns {
		raw := make(chan *nats.Msg, memoryBuffer)
		sub, err := b.nc.ChanSubscribe(Subject(p), raw)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to subscribe to %s: %w", p, err)
		}
		s.subs = append(s.subs, sub)
		s.wg.Add(1)
		go s.forward(raw, strings.HasPrefix(p, "/"))
	}
	return s, nil
}

func (b *NatsBus) Close() error {
	return b.nc.Drain()
}

type natsSub struct {
	subs []*nats.Subscription
	out  chan Message
	done chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

func (s *natsSub) forward(raw <-chan *nats.Msg, leadingSlash bool) {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		case m := <-raw:
			topic := Topic(m.Subject)
			if leadingSlash {
				topic = "/" + topic
			}
			select {
			case s.out <- Message{Topic: topic, Payload: m.Data}:
			case <-s.done:
				return
			}
		}
	}
}

func (s *natsSub) Messages() <-chan Message { return s.out }

func (s *natsSub) Close() error {
	var err error
	s.once.Do(func() {
		for _, sub := range s.subs {
			if uerr := sub.Unsubscribe(); uerr != nil && err == nil {
				err = uerr
			}
		}
		close(s.done)
		s.wg.Wait()
		close(s.out)
	})
	return err
}

// Subject converts a topic or pattern to a NATS subject.
func Subject(topic string) string {
	segs := strings.Split(strings.TrimPrefix(topic, "/"), "/")
	for i, seg := range segs {
		switch seg {
		case "+":
			segs[i] = "*"
		case "#":
			segs[i] = ">"
		}
	}
	return strings.Join(segs, ".")
}

// Topic converts a delivered subject back to a slash separated topic.
func Topic(subject string) string {
	return strings.ReplaceAll(subject, ".", "/")
}
