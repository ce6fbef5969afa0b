// Package database implements the catalog store for go-mcnttp over SQLite.
package database

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"github.com/go-while/go-mcnttp/internal/config"
)

// Database is the shared catalog store. All sessions go through one
// instance; article-number allocation is serialized per catalog inside
// SQLite transactions.
type Database struct {
	mainDB *sql.DB

	MainMutex sync.RWMutex

	dbconfig *config.DatabaseConfig

	// AuthCache skips repeated hash verification for command-loop
	// reconnects.
	AuthCache *AuthCache

	WG       sync.WaitGroup
	StopChan chan struct{}
}

// OpenDatabase opens (creating when necessary) the main database and
// prepares the connection for concurrent session use.
func OpenDatabase(dbconfig *config.DatabaseConfig) (*Database, error) {
	if dbconfig == nil {
		defaults := config.NewDefaultConfig()
		dbconfig = &defaults.Database
	}

	if err := os.MkdirAll(filepath.Dir(dbconfig.MainDB), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	mainDB, err := sql.Open("sqlite3", dbconfig.MainDB+"?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open main database: %w", err)
	}

	db := &Database{
		mainDB:    mainDB,
		dbconfig:  dbconfig,
		AuthCache: NewAuthCache(5 * time.Minute),
		StopChan:  make(chan struct{}),
	}
	return db, nil
}

// GetMainDB returns the main database connection for direct access.
// This should only be used by specialized tools like importers.
func (db *Database) GetMainDB() *sql.DB {
	return db.mainDB
}

// Shutdown closes the database connection.
func (db *Database) Shutdown() error {
	select {
	case <-db.StopChan:
		return nil // already shut down
	default:
		close(db.StopChan)
	}
	log.Printf("[DATABASE] Closing main database...")
	if err := db.mainDB.Close(); err != nil {
		return fmt.Errorf("failed to close main database: %w", err)
	}
	return nil
}
