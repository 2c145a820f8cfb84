// Package postgres opens the shared database/sql pool and applies the schema
// owned by this service.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"propcheck/internal/platform/config"
)

const driverName = "pgx"

// Open connects, pings and migrates.
func Open(ctx context.Context, cfg config.PostgresConfig) (*sql.DB, error) {
	db, err := sql.Open(driverName, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate creates the tables if they do not exist. Statements are idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS inspections (
		id TEXT PRIMARY KEY,
		property_id TEXT NOT NULL,
		inspection_completed BOOLEAN NOT NULL DEFAULT FALSE,
		creation_date BIGINT NOT NULL DEFAULT 0,
		updated_last_date BIGINT NOT NULL DEFAULT 0,
		score DOUBLE PRECISION NOT NULL DEFAULT 0,
		template JSONB
	)`,
	`CREATE INDEX IF NOT EXISTS inspections_property_idx ON inspections (property_id)`,
	`CREATE TABLE IF NOT EXISTS deficient_items (
		id TEXT PRIMARY KEY,
		property_id TEXT NOT NULL,
		inspection_id TEXT NOT NULL,
		item_id TEXT NOT NULL,
		state TEXT NOT NULL,
		archive BOOLEAN NOT NULL DEFAULT FALSE,
		document JSONB NOT NULL,
		created_at BIGINT NOT NULL DEFAULT 0,
		updated_at BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS deficient_items_inspection_idx ON deficient_items (inspection_id)`,
	`CREATE INDEX IF NOT EXISTS deficient_items_property_state_idx ON deficient_items (property_id, state)`,
}
