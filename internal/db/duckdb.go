package db

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "github.com/marcboeker/go-duckdb"
)

var (
	dbInstance *sql.DB
	dbOnce     sync.Once
	dbErr      error
	dbPath     string
)

// SetPath selects the database file GetDB opens. An empty path keeps the
// database in memory. It has no effect after the first GetDB call.
func SetPath(path string) {
	dbPath = path
}

func GetDB() (*sql.DB, error) {
	dbOnce.Do(func() {
		dbInstance, dbErr = Open(dbPath)
	})
	return dbInstance, dbErr
}

// Open returns a new DuckDB handle, independent of the shared one.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open DuckDB: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to DuckDB at %q: %w", path, err)
	}

	return db, nil
}

// QuotePath escapes a file path for use inside a single-quoted SQL literal.
func QuotePath(path string) string {
	return strings.ReplaceAll(path, "'", "''")
}
