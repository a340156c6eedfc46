package models

import (
	"errors"
	"slices"
)

// ErrTeamOverflow is returned when a room would push a team past capacity.
// Callers are expected to check Fits first.
var ErrTeamOverflow = errors.New("room does not fit in team")

// Team is a fight group: rooms whose combined members fill one side of a match.
type Team struct {
	ID          uint64     `json:"id"`
	Rooms       []uint32   `json:"rooms"`
	MemberCount int        `json:"member_count"`
	Capacity    int        `json:"capacity"`
	Status      TeamStatus `json:"status"`

	// MatchID is the match that claimed this team, 0 while unmatched.
	MatchID uint64 `json:"match_id,omitempty"`
}

// NewTeam returns an empty forming team. The id is assigned when the team is
// sealed.
func NewTeam(capacity int) *Team {
	return &Team{
		Rooms:    []uint32{},
		Capacity: capacity,
		Status:   TeamForming,
	}
}

// Fits reports whether r can join without exceeding capacity.
func (t *Team) Fits(r *Room) bool {
	return t.MemberCount+r.Size() <= t.Capacity
}

// AddRoom appends r to the team.
func (t *Team) AddRoom(r *Room) error {
	if !t.Fits(r) {
		return ErrTeamOverflow
	}
	t.Rooms = append(t.Rooms, r.ID)
	t.MemberCount += r.Size()
	return nil
}

// Full reports whether the team is at exact capacity.
func (t *Team) Full() bool {
	return t.MemberCount == t.Capacity
}

func (t *Team) HasRoom(id uint32) bool {
	return slices.Contains(t.Rooms, id)
}

// LockForConfirmation moves a forming team into PendingConfirm, locks every
// member room and returns the ids of every member user so the owning match
// can start tracking them. rooms must be this team's rooms. Calling it on a
// team that already left Forming does nothing and returns nil.
func (t *Team) LockForConfirmation(matchID uint64, rooms []*Room) []string {
	if t.Status != TeamForming {
		return nil
	}
	var users []string
	for _, r := range rooms {
		r.Status = RoomLocked
		users = append(users, r.Members...)
	}
	t.Status = TeamPendingConfirm
	t.MatchID = matchID
	return users
}
