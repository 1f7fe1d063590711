package db

import (
	"context"
	"database/sql"
	"os"

	"github.com/DanielBergThomsen/tentahjalpen/internal/logger"
)

// InitSchema executes the SQL script at path verbatim. The script drops and recreates
// both tables, so re-running it is destructive.
func InitSchema(ctx context.Context, db *sql.DB, path string) error {
	script, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, string(script))
	return err
}

// EnsureSchema probes the results table and runs the schema script when it is missing.
// Called once at startup so a fresh database is usable without manual steps.
func EnsureSchema(ctx context.Context, db *sql.DB, path string) error {
	log := logger.With("db")

	var one int
	err := db.QueryRowContext(ctx, `SELECT 1 FROM results LIMIT 1`).Scan(&one)
	if err == nil || err == sql.ErrNoRows {
		return nil
	}

	log.Info().Str("schema", path).Msg("Initializing database schema")
	return InitSchema(ctx, db, path)
}
