// Package sqlite implements the repository interfaces on top of SQLite.
//
// WHY SQLITE FOR A SECRET STORE?
// The client needs exactly one durable key-value table that survives restarts
// and is safe under concurrent access from several goroutines. SQLite gives
// both in a single file with no daemon to run, and modernc.org/sqlite is pure
// Go, so the binary cross-compiles without a C toolchain.
//
// Use ":memory:" as the path in tests for a throwaway database.
package sqlite

import (
	"database/sql"
	"fmt"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps the sql.DB pool and implements repository.SecretRepository.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the database at dbPath and runs migrations.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// An in-memory database lives only as long as its connection. Pinning the
	// pool to one connection keeps ":memory:" from handing out empty databases,
	// and serializes writers for file databases as well.
	conn.SetMaxOpenConns(1)

	// sql.Open is lazy; Ping surfaces a bad path or permissions right away.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close releases the connection pool. Defer it right after New.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE ... IF NOT EXISTS keeps it idempotent.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS secrets (
			key        TEXT PRIMARY KEY,
			value      BLOB NOT NULL,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating secrets table: %w", err)
	}
	return nil
}
