package models

import "fmt"

// RoomStatus tracks where a room is in the matchmaking pipeline.
type RoomStatus int

const (
	RoomIdle RoomStatus = iota
	RoomQueued
	RoomLocked
)

func (s RoomStatus) String() string {
	switch s {
	case RoomIdle:
		return "idle"
	case RoomQueued:
		return "queued"
	case RoomLocked:
		return "locked"
	}
	return "unknown"
}

func (s RoomStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// TeamStatus tracks a fight group.
//
// Forming covers both the accumulator and a sealed team waiting in the ready
// list; PendingConfirm means the team was claimed by a match that is waiting
// for confirmations; Locked means the match launched.
type TeamStatus int

const (
	TeamForming TeamStatus = iota
	TeamPendingConfirm
	TeamLocked
)

func (s TeamStatus) String() string {
	switch s {
	case TeamForming:
		return "forming"
	case TeamPendingConfirm:
		return "pending_confirm"
	case TeamLocked:
		return "locked"
	}
	return "unknown"
}

func (s TeamStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// MatchStatus tracks a fight game.
type MatchStatus int

const (
	MatchAwaitingConfirmation MatchStatus = iota
	MatchReady
	MatchCancelled
	MatchLaunching
	MatchActive
)

func (s MatchStatus) String() string {
	switch s {
	case MatchAwaitingConfirmation:
		return "awaiting_confirmation"
	case MatchReady:
		return "ready"
	case MatchCancelled:
		return "cancelled"
	case MatchLaunching:
		return "launching"
	case MatchActive:
		return "active"
	}
	return "unknown"
}

func (s MatchStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText lets history consumers decode recorded sessions.
func (s *MatchStatus) UnmarshalText(b []byte) error {
	for c := MatchAwaitingConfirmation; c <= MatchActive; c++ {
		if c.String() == string(b) {
			*s = c
			return nil
		}
	}
	return fmt.Errorf("unknown match status %q", b)
}

// Confirmation is a single user's answer to the pre-start prompt.
type Confirmation int

const (
	ConfirmPending Confirmation = iota
	ConfirmAccepted
	ConfirmDeclined
)

func (c Confirmation) String() string {
	switch c {
	case ConfirmPending:
		return "pending"
	case ConfirmAccepted:
		return "accepted"
	case ConfirmDeclined:
		return "declined"
	}
	return "unknown"
}

func (c Confirmation) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Verdict is the outcome of evaluating a match's confirmations.
type Verdict int

const (
	VerdictWait Verdict = iota
	VerdictReady
	VerdictCancel
)

func (v Verdict) String() string {
	switch v {
	case VerdictWait:
		return "wait"
	case VerdictReady:
		return "ready"
	case VerdictCancel:
		return "cancel"
	}
	return "unknown"
}
