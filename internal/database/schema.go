package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const gamesSchema = `
CREATE TABLE IF NOT EXISTS games (
	game_id     NUMERIC(20) NOT NULL,
	match_id    NUMERIC(20) NOT NULL,
	port        INTEGER     NOT NULL,
	server      TEXT        NOT NULL,
	rooms       JSONB       NOT NULL,
	teams       JSONB       NOT NULL,
	launched_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (game_id, launched_at)
)`

// EnsureSchema creates the games table if it is missing. The users table is
// owned by the account service and only read here.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, gamesSchema); err != nil {
		return fmt.Errorf("failed to create games table: %w", err)
	}
	return nil
}
