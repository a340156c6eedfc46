package matchmaking

// Stats is a point-in-time view of the registries, served by the admin API.
type Stats struct {
	Users        int    `json:"users"`
	Rooms        int    `json:"rooms"`
	QueuedRooms  int    `json:"queued_rooms"`
	ReadyTeams   int    `json:"ready_teams"`
	PendingGames int    `json:"pending_matches"`
	ActiveGames  int    `json:"active_games"`
	LastPort     int    `json:"last_port"`
	LastGameID   uint64 `json:"last_game_id"`
}

func (e *Engine) Stats() Stats {
	return Stats{
		Users:        len(e.users),
		Rooms:        len(e.rooms),
		QueuedRooms:  len(e.queue),
		ReadyTeams:   len(e.readyTeams),
		PendingGames: len(e.pending),
		ActiveGames:  len(e.active),
		LastPort:     e.ports.Last(),
		LastGameID:   e.gameIDs.Last(),
	}
}
