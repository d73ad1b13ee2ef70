package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// WAL lets parleyctl read while parley runs. Transactions take the write
// lock up front.
const dsnOptions = "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on&_txlock=immediate"

// DB wraps the SQLite connection for parley.db.
type DB struct {
	*sql.DB
	path string
}

// Open connects to the database at path, creating the file if needed.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path+dsnOptions)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return &DB{DB: db, path: path}, nil
}

// Path returns the database file location.
func (db *DB) Path() string { return db.path }
