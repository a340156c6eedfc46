package database

import (
	"context"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/erps/internal/models"
)

// GameStore persists launched games.
type GameStore struct {
	Pool *pgxpool.Pool
}

func insertGameQuery(s models.GameSession) (sq.InsertBuilder, error) {
	rooms, err := json.Marshal(s.RoomNames)
	if err != nil {
		return sq.InsertBuilder{}, err
	}
	teams, err := json.Marshal(s.Teams)
	if err != nil {
		return sq.InsertBuilder{}, err
	}
	return psql.Insert("games").
		Columns("game_id", "match_id", "port", "server", "rooms", "teams", "launched_at").
		Values(s.GameID, s.MatchID, s.Port, s.Server, rooms, teams, s.LaunchedAt).
		Suffix("ON CONFLICT (game_id, launched_at) DO NOTHING"), nil
}

// SaveGames writes a batch of sessions in one transaction. Replays of the same
// record are ignored.
func (g *GameStore) SaveGames(ctx context.Context, sessions []models.GameSession) error {
	return pgx.BeginTxFunc(ctx, g.Pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, s := range sessions {
			q, err := insertGameQuery(s)
			if err != nil {
				return fmt.Errorf("failed to encode game %d: %w", s.GameID, err)
			}
			if _, err := qExec(ctx, tx, q); err != nil {
				return fmt.Errorf("failed to insert game %d: %w", s.GameID, err)
			}
		}
		return nil
	})
}
