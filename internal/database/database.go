// Package database keeps the learning set in a single SQLite table.
package database

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/TobiSchelling/learnloop/internal/learnings"
)

var _ learnings.Store = (*DB)(nil)

// pragmas are applied to every connection through the DSN.
var pragmas = []string{"busy_timeout(5000)", "journal_mode(WAL)", "synchronous(NORMAL)"}

// DB is a learning store backed by one SQLite file.
type DB struct {
	conn *sql.DB
	path string
}

// Open opens the learning store at dbPath, creating the file and its
// directory when missing, and brings the schema up to date.
func Open(dbPath string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("opening learning store: %w", err)
	}
	// Save replaces the table in one transaction; one connection is enough.
	conn.SetMaxOpenConns(1)

	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrating learning store %s: %w", dbPath, err)
	}
	return &DB{conn: conn, path: dbPath}, nil
}

func dsn(path string) string {
	q := url.Values{}
	for _, p := range pragmas {
		q.Add("_pragma", p)
	}
	return "file:" + path + "?" + q.Encode()
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}
