package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// SchemaVersion is the latest schema version supported by the migrator.
const SchemaVersion = 1

// Migrate ensures the schema exists and is upgraded to SchemaVersion.
func Migrate(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return fmt.Errorf("migrate: db is nil")
	}

	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY);`)
	if err != nil {
		return fmt.Errorf("migrate: create schema_migrations: %w", err)
	}

	var current int
	err = db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations;`).Scan(&current)
	if err != nil {
		return fmt.Errorf("migrate: read current version: %w", err)
	}
	if current >= SchemaVersion {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migrate: begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	steps := []struct {
		name string
		stmt string
	}{
		{"create entries table", `
			CREATE TABLE IF NOT EXISTS entries (
				seq        INTEGER PRIMARY KEY AUTOINCREMENT,
				user_id    TEXT NOT NULL,
				id         TEXT NOT NULL,
				created_at INTEGER NOT NULL,
				body       TEXT NOT NULL,
				UNIQUE(user_id, id)
			);`},
		{"create events table", `
			CREATE TABLE IF NOT EXISTS events (
				seq        INTEGER PRIMARY KEY AUTOINCREMENT,
				user_id    TEXT NOT NULL,
				id         TEXT NOT NULL,
				type       TEXT NOT NULL,
				created_at INTEGER NOT NULL,
				body       TEXT NOT NULL,
				UNIQUE(user_id, id)
			);`},
		{"create idx_entries_user_created", `CREATE INDEX IF NOT EXISTS idx_entries_user_created ON entries(user_id, created_at);`},
		{"create idx_events_user_created", `CREATE INDEX IF NOT EXISTS idx_events_user_created ON events(user_id, created_at);`},
	}
	for _, s := range steps {
		if _, err := tx.ExecContext(ctx, s.stmt); err != nil {
			return fmt.Errorf("migrate: %s: %w", s.name, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations(version) VALUES (?);`, SchemaVersion); err != nil {
		return fmt.Errorf("migrate: record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("migrate: commit transaction: %w", err)
	}
	return nil
}
