package matchmaking

import (
	"fmt"
	"time"
)

// PackOrder selects how Stage A walks the queue.
type PackOrder string

const (
	// PackByRank walks queued rooms by ascending average rank, FIFO on ties.
	PackByRank PackOrder = "rank"
	// PackFIFO walks queued rooms in the order they were queued.
	PackFIFO PackOrder = "fifo"
)

// Config holds the matchmaking knobs.
type Config struct {
	TeamSize  int
	MatchSize int

	TickInterval time.Duration
	// ConfirmTimeout bounds the pre-start handshake; 0 waits forever.
	ConfirmTimeout time.Duration
	// SettleDelay is how long after launch the roster announcement goes out,
	// giving the game server time to bind its port.
	SettleDelay time.Duration

	PortFloor   int
	PortCeiling int
	ServerHost  string

	PackOrder PackOrder
	InboxSize int
}

func DefaultConfig() Config {
	return Config{
		TeamSize:       1,
		MatchSize:      2,
		TickInterval:   200 * time.Millisecond,
		ConfirmTimeout: 20 * time.Second,
		SettleDelay:    10 * time.Second,
		PortFloor:      7777,
		PortCeiling:    65500,
		ServerHost:     "127.0.0.1",
		PackOrder:      PackByRank,
		InboxSize:      1000,
	}
}

func (c Config) Validate() error {
	if c.TeamSize < 1 {
		return fmt.Errorf("team size must be at least 1, got %d", c.TeamSize)
	}
	if c.MatchSize < 1 {
		return fmt.Errorf("match size must be at least 1, got %d", c.MatchSize)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick interval must be positive, got %s", c.TickInterval)
	}
	if c.PortFloor < 1 || c.PortCeiling <= c.PortFloor+1 || c.PortCeiling > 65536 {
		return fmt.Errorf("invalid game port range [%d, %d)", c.PortFloor, c.PortCeiling)
	}
	switch c.PackOrder {
	case PackByRank, PackFIFO:
	default:
		return fmt.Errorf("unknown pack order %q", c.PackOrder)
	}
	if c.InboxSize < 1 {
		return fmt.Errorf("inbox size must be at least 1, got %d", c.InboxSize)
	}
	return nil
}
