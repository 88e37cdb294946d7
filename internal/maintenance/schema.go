package maintenance

import (
	"database/sql"
	"fmt"
)

// snapshotSchema holds the rollback store: one row per (handle, turn id)
// capturing that turn's complete pre-`apply` metadata, so `rollback` can
// restore it verbatim (spec.md §4.13).
const snapshotSchema = `
CREATE TABLE IF NOT EXISTS snapshots (
	handle     TEXT NOT NULL,
	turn_id    TEXT NOT NULL,
	metadata   TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	PRIMARY KEY (handle, turn_id)
);
CREATE INDEX IF NOT EXISTS idx_snapshots_handle ON snapshots(handle);
`

func initializeSchema(db *sql.DB) error {
	if _, err := db.Exec(snapshotSchema); err != nil {
		return fmt.Errorf("maintenance: create schema: %w", err)
	}
	return nil
}

// configureSQLite sets the pragmas appropriate for a small, write-light
// rollback log: WAL so a concurrent scan can read while a snapshot is being
// written, NORMAL synchronous since a snapshot is a convenience log rather
// than the system of record (C10's vector store is).
func configureSQLite(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("maintenance: execute %s: %w", p, err)
		}
	}
	return nil
}
