package models

import "time"

// Match is a fight game: a fixed set of teams going through the pre-start
// handshake and, once everyone accepts, a running game session.
type Match struct {
	ID        uint64   `json:"id"`
	Teams     []uint64 `json:"teams"`
	RoomNames []string `json:"room_names"`

	Confirmations map[string]Confirmation `json:"confirmations"`
	Status        MatchStatus             `json:"status"`
	OpenedAt      time.Time               `json:"opened_at"`

	Port   int    `json:"port,omitempty"`
	GameID uint64 `json:"game_id,omitempty"`
}

func NewMatch(id uint64) *Match {
	return &Match{
		ID:            id,
		Teams:         []uint64{},
		RoomNames:     []string{},
		Confirmations: make(map[string]Confirmation),
		Status:        MatchAwaitingConfirmation,
	}
}

// AddTeam appends a team id.
func (m *Match) AddTeam(id uint64) {
	m.Teams = append(m.Teams, id)
}

// Open starts the confirmation window at the given tick and tracks every
// listed user as pending.
func (m *Match) Open(now time.Time, users []string) {
	for _, id := range users {
		m.Confirmations[id] = ConfirmPending
	}
	m.Status = MatchAwaitingConfirmation
	m.OpenedAt = now
}

// RecordConfirmation stores a user's answer. Users that are not part of the
// match are ignored.
func (m *Match) RecordConfirmation(userID string, accepted bool) bool {
	if _, ok := m.Confirmations[userID]; !ok {
		return false
	}
	if accepted {
		m.Confirmations[userID] = ConfirmAccepted
	} else {
		m.Confirmations[userID] = ConfirmDeclined
	}
	return true
}

// Evaluate decides whether the match can launch. A decline cancels at once;
// pending entries cancel once timeout has elapsed since Open. A timeout of 0
// disables the deadline. An empty ledger cancels since nobody is left to play.
func (m *Match) Evaluate(now time.Time, timeout time.Duration) Verdict {
	if len(m.Confirmations) == 0 {
		return VerdictCancel
	}
	pending := 0
	for _, c := range m.Confirmations {
		switch c {
		case ConfirmDeclined:
			return VerdictCancel
		case ConfirmPending:
			pending++
		}
	}
	if pending == 0 {
		return VerdictReady
	}
	if timeout > 0 && now.Sub(m.OpenedAt) >= timeout {
		return VerdictCancel
	}
	return VerdictWait
}

// UpdateNames rebuilds the room name cache from the resolved member rooms, in
// team order.
func (m *Match) UpdateNames(rooms []*Room) {
	m.RoomNames = m.RoomNames[:0]
	for _, r := range rooms {
		m.RoomNames = append(m.RoomNames, r.Key)
	}
}

// Launch records the allocated endpoint and moves the match to Launching.
func (m *Match) Launch(port int, gameID uint64) {
	m.Port = port
	m.GameID = gameID
	m.Status = MatchLaunching
}
