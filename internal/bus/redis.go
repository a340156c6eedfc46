package bus

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisBus maps topics one-to-one onto Redis pub/sub channels. The client is
// owned by the caller.
type RedisBus struct {
	rdb *redis.Client
	log logrus.FieldLogger
}

func NewRedisBus(rdb *redis.Client, logger logrus.FieldLogger) *RedisBus {
	return &RedisBus{rdb: rdb, log: logger}
}

func (b *RedisBus) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := b.rdb.Publish(ctx, topic, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

// Subscribe opens one PSUBSCRIBE covering every pattern. Redis globs are
// looser than MQTT levels, so deliveries are re-checked with Match.
func (b *RedisBus) Subscribe(ctx context.Context, patterns ...string) (Subscription, error) {
	if err := validatePatterns(patterns); err != nil {
		return nil, err
	}
	globs := make([]string, len(patterns))
	for i, p := range patterns {
		globs[i] = redisGlob(p)
	}

	ps := b.rdb.PSubscribe(ctx, globs...)
	for range globs {
		if _, err := ps.Receive(ctx); err != nil {
			ps.Close()
			return nil, fmt.Errorf("failed to subscribe to %v: %w", patterns, err)
		}
	}

	s := &redisSub{
		ps:   ps,
		out:  make(chan Message, memoryBuffer),
		done: make(chan struct{}),
	}
	s.wg.Add(1)
	go s.forward(append([]string(nil), patterns...), b.log)
	return s, nil
}

func (b *RedisBus) Close() error { return nil }

type redisSub struct {
	ps   *redis.PubSub
	out  chan Message
	done chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

func (s *redisSub) forward(patterns []string, logger logrus.FieldLogger) {
	defer s.wg.Done()
	in := s.ps.Channel()
	for {
		select {
		case <-s.done:
			return
		case m, ok := <-in:
			if !ok {
				return
			}
			if !matchAny(patterns, m.Channel) {
				logger.WithField("topic", m.Channel).Debug("dropping glob-only match")
				continue
			}
			select {
			case s.out <- Message{Topic: m.Channel, Payload: []byte(m.Payload)}:
			case <-s.done:
				return
			}
		}
	}
}

func (s *redisSub) Messages() <-chan Message { return s.out }

func (s *redisSub) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.ps.Close()
		s.wg.Wait()
		close(s.out)
	})
	return err
}

// redisGlob widens an MQTT pattern to a Redis glob. A trailing `/#` becomes
// `*` so the parent level matches too.
func redisGlob(pattern string) string {
	segs := strings.Split(pattern, "/")
	var sb strings.Builder
	for i, seg := range segs {
		if seg == "#" {
			sb.WriteByte('*')
			break
		}
		if i > 0 {
			sb.WriteByte('/')
		}
		if seg == "+" {
			sb.WriteByte('*')
			continue
		}
		sb.WriteString(escapeGlob(seg))
	}
	return sb.String()
}

func escapeGlob(s string) string {
	if !strings.ContainsAny(s, `*?[]\`) {
		return s
	}
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
