package provision

import (
	"context"

	"github.com/jason-s-yu/erps/internal/models"
	"github.com/sirupsen/logrus"
)

// NameLookup resolves display names for a set of user ids. Ids it does not
// know are simply absent from the result.
type NameLookup interface {
	LookupNames(ctx context.Context, ids []string) (map[string]string, error)
}

// RosterBuilder assembles the post-launch roster announcement.
type RosterBuilder struct {
	Names NameLookup
	Log   logrus.FieldLogger
}

func NewRosterBuilder(names NameLookup, logger logrus.FieldLogger) *RosterBuilder {
	return &RosterBuilder{Names: names, Log: logger}
}

// BuildRoster issues one lookup per room. A failed lookup leaves that room's
// names blank and moves on.
func (b *RosterBuilder) BuildRoster(ctx context.Context, s models.GameSession) models.Roster {
	roster := models.Roster{Game: s.GameID, Teams: make([][]models.RosterEntry, 0, len(s.Teams))}
	for _, team := range s.Teams {
		entries := []models.RosterEntry{}
		for _, room := range team.Rooms {
			names := b.lookup(ctx, s.GameID, room)
			for _, m := range room.Members {
				entries = append(entries, models.RosterEntry{ID: m.ID, Name: names[m.ID], Hero: m.Hero})
			}
		}
		roster.Teams = append(roster.Teams, entries)
	}
	return roster
}

func (b *RosterBuilder) lookup(ctx context.Context, gameID uint64, room models.SessionRoom) map[string]string {
	if b.Names == nil || len(room.Members) == 0 {
		return nil
	}
	ids := make([]string, len(room.Members))
	for i, m := range room.Members {
		ids[i] = m.ID
	}
	names, err := b.Names.LookupNames(ctx, ids)
	if err != nil {
		b.Log.WithFields(logrus.Fields{"game": gameID, "room": room.Key}).WithError(err).Warn("name lookup failed")
		return nil
	}
	return names
}
