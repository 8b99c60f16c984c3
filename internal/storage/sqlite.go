// Package storage opens the SQLite database that backs the audit journal.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// DB is a migrated SQLite handle
type DB struct {
	conn *sql.DB
	path string // empty for in-memory databases
}

// Config selects the database file
type Config struct {
	Path     string // Database file; parent directories are created
	InMemory bool   // Private in-memory database, Path is ignored
}

// pragmas run on every new database handle
var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
}

// Open opens or creates a database
func Open(cfg Config) (*DB, error) {
	dsn := cfg.Path
	if cfg.InMemory {
		// Named so that each Open gets its own database
		dsn = fmt.Sprintf("file:vibeforge-%s?mode=memory&cache=shared", uuid.NewString())
	} else {
		if cfg.Path == "" {
			return nil, fmt.Errorf("database path is empty")
		}
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0700); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One writer; the journal serializes appends anyway
	conn.SetMaxOpenConns(1)

	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			conn.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}

	db := &DB{conn: conn}
	if !cfg.InMemory {
		db.path = cfg.Path
	}
	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying sql.DB
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Path returns the database file path, empty for in-memory databases
func (db *DB) Path() string {
	return db.path
}

// Transaction runs fn in a transaction, rolling back when it fails
func (db *DB) Transaction(fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}
