package database

import (
	"fmt"

	"github.com/TobiSchelling/learnloop/internal/learnings"
)

// Load returns every learning in stored order.
func (db *DB) Load() ([]learnings.Record, error) {
	rows, err := db.conn.Query(`
SELECT learning_id, type, audience_segment, insight, salience, evidence_count, created_date, last_validated
FROM learnings ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("querying learnings: %w", err)
	}
	defer rows.Close()

	var out []learnings.Record
	for rows.Next() {
		var r learnings.Record
		if err := rows.Scan(&r.LearningID, &r.Type, &r.AudienceSegment, &r.Insight,
			&r.Salience, &r.EvidenceCount, &r.CreatedDate, &r.LastValidated); err != nil {
			return nil, fmt.Errorf("scanning learning: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Save replaces the whole learning set in one transaction.
func (db *DB) Save(records []learnings.Record) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM learnings"); err != nil {
		return fmt.Errorf("clearing learnings: %w", err)
	}

	stmt, err := tx.Prepare(`
INSERT INTO learnings (position, learning_id, type, audience_segment, insight, salience, evidence_count, created_date, last_validated)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range records {
		if _, err := stmt.Exec(i, r.LearningID, r.Type, r.AudienceSegment, r.Insight,
			r.Salience, r.EvidenceCount, r.CreatedDate, r.LastValidated); err != nil {
			return fmt.Errorf("inserting learning %s: %w", r.LearningID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}
