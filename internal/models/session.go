package models

import "time"

// GameSession is the record of a launched match, kept in the active-games
// registry and pushed to the history queue. Teams capture the roster as it
// was at launch time.
type GameSession struct {
	GameID     uint64        `json:"game_id"`
	MatchID    uint64        `json:"match_id"`
	Port       int           `json:"port"`
	Server     string        `json:"server"`
	RoomNames  []string      `json:"rooms"`
	Teams      []SessionTeam `json:"teams"`
	Status     MatchStatus   `json:"status"`
	LaunchedAt time.Time     `json:"launched_at"`
}

type SessionTeam struct {
	Rooms []SessionRoom `json:"rooms"`
}

type SessionRoom struct {
	Key     string          `json:"key"`
	Members []SessionMember `json:"members"`
}

type SessionMember struct {
	ID   string `json:"id"`
	Hero string `json:"hero"`
}

// Roster is the post-launch announcement listing every player per team.
type Roster struct {
	Game  uint64          `json:"game"`
	Teams [][]RosterEntry `json:"teams"`
}

type RosterEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Hero string `json:"hero"`
}
