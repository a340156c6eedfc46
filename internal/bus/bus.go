// Package bus carries matchmaking traffic over a topic-based pub/sub broker.
// Topics are slash separated; subscription patterns use MQTT wildcards, `+`
// for exactly one level and a trailing `#` for any number of levels.
package bus

import (
	"context"
	"fmt"
	"strings"
)

type Message struct {
	Topic   string
	Payload []byte
}

// Subscription delivers messages matching the patterns it was opened with.
// Messages is closed once Close returns.
type Subscription interface {
	Messages() <-chan Message
	Close() error
}

type Bus interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Subscribe(ctx context.Context, patterns ...string) (Subscription, error)
	Close() error
}

// Match reports whether topic is covered by pattern.
func Match(pattern, topic string) bool {
	p := strings.Split(pattern, "/")
	t := strings.Split(topic, "/")
	for i, seg := range p {
		if seg == "#" {
			return i == len(p)-1
		}
		if i >= len(t) {
			return false
		}
		if seg != "+" && seg != t[i] {
			return false
		}
	}
	return len(p) == len(t)
}

func matchAny(patterns []string, topic string) bool {
	for _, p := range patterns {
		if Match(p, topic) {
			return true
		}
	}
	return false
}

// ValidatePattern rejects a `#` anywhere but the last level and wildcards
// mixed into a level.
func ValidatePattern(pattern string) error {
	segs := strings.Split(pattern, "/")
	for i, seg := range segs {
		switch {
		case seg == "#" && i != len(segs)-1:
			return fmt.Errorf("invalid pattern %q: # must be the last level", pattern)
		case seg != "#" && seg != "+" && strings.ContainsAny(seg, "#+"):
			return fmt.Errorf("invalid pattern %q: wildcard inside level %q", pattern, seg)
		}
	}
	return nil
}

func validatePatterns(patterns []string) error {
	if len(patterns) == 0 {
		return fmt.Errorf("no patterns given")
	}
	for _, p := range patterns {
		if err := ValidatePattern(p); err != nil {
			return err
		}
	}
	return nil
}
