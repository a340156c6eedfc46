package models

import "slices"

// Rating holds the per-member inputs a room averages over.
type Rating struct {
	Skill int `json:"skill"`
	Rank  int `json:"rank"`
}

// Room is a pre-match party of users sharing one queue slot. Members are
// stored as user ids; the user registry owns the users themselves.
type Room struct {
	ID uint32 `json:"id"`
	// Key is the id of the room's master: its creator until a handover.
	// Rooms are addressed by it on the bus, e.g. room/<key>/res/start.
	Key    string `json:"key"`
	Master string `json:"master"`

	Members  []string `json:"members"`
	AvgSkill float64  `json:"avg_skill"`
	AvgRank  float64  `json:"avg_rank"`

	Status RoomStatus `json:"status"`

	// TeamID is the team this room was packed into, 0 if none.
	TeamID uint64 `json:"team_id,omitempty"`

	ratings map[string]Rating
}

// NewRoom creates an empty idle room owned by master.
func NewRoom(id uint32, master string) *Room {
	return &Room{
		ID:      id,
		Key:     master,
		Master:  master,
		Members: []string{},
		Status:  RoomIdle,
		ratings: make(map[string]Rating),
	}
}

// AddUser appends u to the members and recomputes the averages. It is a no-op
// if u is already a member.
func (r *Room) AddUser(u *User) bool {
	if r.HasUser(u.ID) {
		return false
	}
	r.Members = append(r.Members, u.ID)
	r.ratings[u.ID] = Rating{Skill: u.Skill, Rank: u.Rank}
	r.recompute()
	return true
}

// RemoveUser removes the member with the given id. An emptied room is left
// for the caller to collect.
func (r *Room) RemoveUser(id string) bool {
	idx := slices.Index(r.Members, id)
	if idx < 0 {
		return false
	}
	r.Members = slices.Delete(r.Members, idx, idx+1)
	delete(r.ratings, id)
	r.recompute()
	return true
}

func (r *Room) HasUser(id string) bool {
	return slices.Contains(r.Members, id)
}

func (r *Room) Size() int {
	return len(r.Members)
}

func (r *Room) IsEmpty() bool {
	return len(r.Members) == 0
}

func (r *Room) recompute() {
	if len(r.Members) == 0 {
		r.AvgSkill, r.AvgRank = 0, 0
		return
	}
	var skill, rank int
	for _, id := range r.Members {
		rt := r.ratings[id]
		skill += rt.Skill
		rank += rt.Rank
	}
	n := float64(len(r.Members))
	r.AvgSkill = float64(skill) / n
	r.AvgRank = float64(rank) / n
}
