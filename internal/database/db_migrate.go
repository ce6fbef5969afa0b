package database

import (
	"embed"
	"fmt"
	"io/fs"
	"log"
	"sort"
	"strconv"
	"strings"
)

//go:embed migrations/*.sql
var embeddedMigrationsFS embed.FS

// MigrationFile represents a migration file with its metadata
type MigrationFile struct {
	FileName string
	Version  int
}

// Migrate applies all pending schema migrations to the main database.
func (db *Database) Migrate() error {
	if _, err := retryableExec(db.mainDB, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	migrations, err := getMigrationFiles()
	if err != nil {
		return err
	}

	for _, m := range migrations {
		var applied int
		err := retryableQueryRowScan(db.mainDB,
			`SELECT COUNT(*) FROM schema_migrations WHERE version = ?`,
			[]interface{}{m.Version}, &applied)
		if err != nil {
			return fmt.Errorf("failed to check migration %d: %w", m.Version, err)
		}
		if applied > 0 {
			continue
		}

		data, err := embeddedMigrationsFS.ReadFile("migrations/" + m.FileName)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", m.FileName, err)
		}
		if _, err := retryableExec(db.mainDB, string(data)); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", m.FileName, err)
		}
		if _, err := retryableExec(db.mainDB,
			`INSERT INTO schema_migrations (version) VALUES (?)`, m.Version); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
		}
		log.Printf("[DATABASE] Applied migration %s", m.FileName)
	}

	return nil
}

// getMigrationFiles reads and sorts all migration files from the embedded
// filesystem. Filenames follow NNNN_description.sql.
func getMigrationFiles() ([]*MigrationFile, error) {
	files, err := fs.ReadDir(embeddedMigrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded migrations directory: %w", err)
	}

	var migrations []*MigrationFile
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".sql") {
			continue
		}
		parts := strings.SplitN(f.Name(), "_", 2)
		version, err := strconv.Atoi(parts[0])
		if err != nil {
			log.Printf("Warning: skipping invalid migration file %s: %v", f.Name(), err)
			continue
		}
		migrations = append(migrations, &MigrationFile{FileName: f.Name(), Version: version})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	return migrations, nil
}
