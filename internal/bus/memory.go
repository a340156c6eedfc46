package bus

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

const memoryBuffer = 256

// ErrSlowSubscriber is returned by MemoryBus.Publish when a subscriber's
// buffer was full and the message was dropped for it.
var ErrSlowSubscriber = errors.New("subscriber buffer full, message dropped")

// MemoryBus is an in-process broker for development and tests. Like Redis
// pub/sub it never waits on a slow subscriber.
type MemoryBus struct {
	mu   sync.RWMutex
	subs map[*memorySub]struct{}
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[*memorySub]struct{})}
}

type memorySub struct {
	bus      *MemoryBus
	patterns []string
	ch       chan Message
	done     chan struct{}
	once     sync.Once
	wg       sync.WaitGroup
}

// Publish delivers to every matching subscriber that has room. The others
// miss the message and the publish reports ErrSlowSubscriber.
func (b *MemoryBus) Publish(_ context.Context, topic string, payload []byte) error {
	b.mu.RLock()
	targets := make([]*memorySub, 0, len(b.subs))
	for s := range b.subs {
		if matchAny(s.patterns, topic) {
			s.wg.Add(1)
			targets = append(targets, s)
		}
	}
	b.mu.RUnlock()

	dropped := 0
	for _, s := range targets {
		msg := Message{Topic: topic, Payload: append([]byte(nil), payload...)}
		select {
		case <-s.done:
		case s.ch <- msg:
		default:
			dropped++
		}
		s.wg.Done()
	}
	if dropped > 0 {
		return fmt.Errorf("%w: %s to %d of %d", ErrSlowSubscriber, topic, dropped, len(targets))
	}
	return nil
}

func (b *MemoryBus) Subscribe(_ context.Context, patterns ...string) (Subscription, error) {
	if err := validatePatterns(patterns); err != nil {
		return nil, err
	}
	s := &memorySub{
		bus:      b,
		patterns: append([]string(nil), patterns...),
		ch:       make(chan Message, memoryBuffer),
		done:     make(chan struct{}),
	}
	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()
	return s, nil
}

func (b *MemoryBus) Close() error {
	b.mu.RLock()
	subs := make([]*memorySub, 0, len(b.subs))
	for s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.RUnlock()
	for _, s := range subs {
		s.Close()
	}
	return nil
}

func (s *memorySub) Messages() <-chan Message { return s.ch }

func (s *memorySub) Close() error {
	s.once.Do(func() {
		s.bus.mu.Lock()
		delete(s.bus.subs, s)
		s.bus.mu.Unlock()
		close(s.done)
		s.wg.Wait()
		close(s.ch)
	})
	return nil
}
