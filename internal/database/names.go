package database

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NameStore reads display names from the users table.
type NameStore struct {
	Pool *pgxpool.Pool
}

func namesQuery(ids []string) sq.SelectBuilder {
	return psql.Select("userid", "name").From("users").Where(sq.Eq{"userid": ids})
}

// LookupNames returns userid -> name for the ids that exist. Missing rows are
// not an error.
func (s *NameStore) LookupNames(ctx context.Context, ids []string) (map[string]string, error) {
	names := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	rows, err := qQuery(ctx, s.Pool, namesQuery(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to query names: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("failed to scan name row: %w", err)
		}
		names[id] = name
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read names: %w", err)
	}
	return names, nil
}
