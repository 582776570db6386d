package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcdev12/studysync/go/internal/dbconfig"
	"github.com/rs/zerolog/log"
)

// setupDatabase opens both database handles the hub needs: the pgx pool
// backing the roster service and a database/sql handle for the stats
// recorder.
func setupDatabase(ctx context.Context) (*pgxpool.Pool, *sql.DB, error) {
	cfg := dbconfig.NewConfigFromEnv()

	pool, err := cfg.OpenPool(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open roster pool: %w", err)
	}

	db, err := cfg.OpenSQL()
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to open stats handle: %w", err)
	}

	log.Info().
		Str("host", cfg.Host).
		Str("database", cfg.Database).
		Msg("connected to database")
	return pool, db, nil
}
