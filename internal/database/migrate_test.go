package database

import (
	"database/sql"
	"path/filepath"
	"strings"
	"testing"
)

func rawConn(t *testing.T, path string) *sql.DB {
	t.Helper()
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open raw db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestOpenMigratesToLatest(t *testing.T) {
	db := openTestDB(t)

	v, err := schemaVersion(db.conn)
	if err != nil {
		t.Fatalf("schemaVersion: %v", err)
	}
	if v != latestVersion() {
		t.Errorf("expected version %d, got %d", latestVersion(), v)
	}
}

func TestReopenKeepsVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.db")
	for i := 0; i < 2; i++ {
		db, err := Open(path)
		if err != nil {
			t.Fatalf("open %d: %v", i, err)
		}
		v, _ := schemaVersion(db.conn)
		db.Close()
		if v != latestVersion() {
			t.Errorf("open %d: expected version %d, got %d", i, latestVersion(), v)
		}
	}
}

func TestMigrateAdoptsExistingTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")

	// Table present, user_version never set.
	conn := rawConn(t, path)
	if _, err := conn.Exec(`CREATE TABLE learnings (position INTEGER NOT NULL, learning_id TEXT NOT NULL DEFAULT '',
type TEXT NOT NULL DEFAULT '', audience_segment TEXT NOT NULL DEFAULT '', insight TEXT NOT NULL DEFAULT '',
salience REAL NOT NULL DEFAULT 0, evidence_count INTEGER NOT NULL DEFAULT 0,
created_date TEXT NOT NULL DEFAULT '', last_validated TEXT NOT NULL DEFAULT '')`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	if _, err := conn.Exec(`INSERT INTO learnings (position, learning_id) VALUES (0, 'keep-me')`); err != nil {
		t.Fatalf("insert: %v", err)
	}
	conn.Close()

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	out, err := db.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(out) != 1 || out[0].LearningID != "keep-me" {
		t.Errorf("expected existing row kept, got %+v", out)
	}
}

func TestMigrateRejectsNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "future.db")
	conn := rawConn(t, path)
	if _, err := conn.Exec("PRAGMA user_version = 99"); err != nil {
		t.Fatalf("set version: %v", err)
	}
	conn.Close()

	_, err := Open(path)
	if err == nil || !strings.Contains(err.Error(), "newer than supported") {
		t.Errorf("expected newer-schema error, got %v", err)
	}
}

func TestSchemaVersionOfEmptyDB(t *testing.T) {
	conn := rawConn(t, filepath.Join(t.TempDir(), "empty.db"))

	v, err := schemaVersion(conn)
	if err != nil {
		t.Fatalf("schemaVersion: %v", err)
	}
	if v != 0 {
		t.Errorf("expected version 0, got %d", v)
	}
}
