package database

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// Open opens the SQLite database with foreign keys and a busy timeout
// enabled on every pooled connection
func Open(dataSourceName string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", withPragmas(dataSourceName))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// Initialize opens the database connection and runs migrations
func Initialize(dataSourceName string) (*sql.DB, error) {
	db, err := Open(dataSourceName)
	if err != nil {
		return nil, err
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

func withPragmas(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	if !strings.Contains(dsn, "_foreign_keys") {
		dsn += sep + "_foreign_keys=on"
		sep = "&"
	}
	if !strings.Contains(dsn, "_busy_timeout") {
		dsn += sep + "_busy_timeout=5000"
	}
	return dsn
}
