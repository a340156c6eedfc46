package models

// User is a logged-in player as tracked by the matchmaking worker.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Hero string `json:"hero"`

	// Skill and Rank are pre-computed rating inputs supplied at login. They are
	// opaque to matchmaking and only used to order rooms.
	Skill int `json:"skill"`
	Rank  int `json:"rank"`

	// RoomID is the room this user currently belongs to, 0 if none.
	RoomID uint32 `json:"room_id,omitempty"`
}

// InRoom reports whether the user is a member of any room.
func (u *User) InRoom() bool {
	return u.RoomID != 0
}
