package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "learnings table",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS learnings (
    position INTEGER NOT NULL,
    learning_id TEXT NOT NULL DEFAULT '',
    type TEXT NOT NULL DEFAULT '',
    audience_segment TEXT NOT NULL DEFAULT '',
    insight TEXT NOT NULL DEFAULT '',
    salience REAL NOT NULL DEFAULT 0,
    evidence_count INTEGER NOT NULL DEFAULT 0,
    created_date TEXT NOT NULL DEFAULT '',
    last_validated TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_learnings_position ON learnings(position);
CREATE INDEX IF NOT EXISTS idx_learnings_identity ON learnings(type, insight, audience_segment);
`)
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
