package database

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Migration represents a database migration
type Migration struct {
	Version  string
	Title    string // Human-readable title derived from filename
	UpSQL    string
	DownSQL  string
	Checksum string // SHA256 checksum of UpSQL content
}

// MigrationExecutor handles database migrations
type MigrationExecutor struct {
	db *sql.DB
}

// NewMigrationExecutor creates a new migration executor
func NewMigrationExecutor(db *sql.DB) *MigrationExecutor {
	return &MigrationExecutor{db: db}
}

// RunMigrations executes all pending migrations from the migrations directory
func (m *MigrationExecutor) RunMigrations(migrationsPath string) error {
	if err := m.createMigrationsTable(); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	migrations, err := m.readMigrationFiles(migrationsPath)
	if err != nil {
		return fmt.Errorf("failed to read migration files: %w", err)
	}

	if err := m.validateMigrationChecksums(migrations); err != nil {
		return fmt.Errorf("migration validation failed: %w", err)
	}

	applied, err := m.getAppliedMigrations()
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	for _, migration := range migrations {
		if _, ok := applied[migration.Version]; ok {
			continue
		}
		if err := m.executeMigration(migration); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", migration.Version, err)
		}
		slog.Info("Applied migration", "version", migration.Version, "title", migration.Title)
	}

	return nil
}

// createMigrationsTable creates the migrations tracking table
func (m *MigrationExecutor) createMigrationsTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(255) PRIMARY KEY,
			title VARCHAR(500),
			checksum VARCHAR(64),
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`
	_, err := m.db.Exec(query)
	return err
}

// readMigrationFiles reads all migration files from the directory
func (m *MigrationExecutor) readMigrationFiles(migrationsPath string) ([]Migration, error) {
	files, err := os.ReadDir(migrationsPath)
	if err != nil {
		return nil, err
	}

	migrationsMap := make(map[string]*Migration)

	for _, file := range files {
		if file.IsDir() {
			continue
		}

		filename := file.Name()
		if !strings.HasSuffix(filename, ".sql") {
			continue
		}

		parts := strings.Split(filename, "_")
		if len(parts) < 2 {
			continue
		}

		version := parts[0]
		isUp := strings.HasSuffix(filename, ".up.sql")
		isDown := strings.HasSuffix(filename, ".down.sql")
		if !isUp && !isDown {
			continue
		}

		content, err := os.ReadFile(filepath.Join(migrationsPath, filename))
		if err != nil {
			return nil, err
		}

		migration, ok := migrationsMap[version]
		if !ok {
			migration = &Migration{
				Version: version,
				Title:   migrationTitle(filename),
			}
			migrationsMap[version] = migration
		}

		if isUp {
			migration.UpSQL = string(content)
			sum := sha256.Sum256(content)
			migration.Checksum = hex.EncodeToString(sum[:])
		} else {
			migration.DownSQL = string(content)
		}
	}

	migrations := make([]Migration, 0, len(migrationsMap))
	for _, migration := range migrationsMap {
		if migration.UpSQL == "" {
			continue
		}
		migrations = append(migrations, *migration)
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	return migrations, nil
}

// migrationTitle derives a readable title from a migration filename
func migrationTitle(filename string) string {
	name := strings.TrimSuffix(filename, ".up.sql")
	name = strings.TrimSuffix(name, ".down.sql")
	parts := strings.SplitN(name, "_", 2)
	if len(parts) < 2 {
		return name
	}
	return strings.ReplaceAll(parts[1], "_", " ")
}

// getAppliedMigrations returns versions already recorded in schema_migrations
func (m *MigrationExecutor) getAppliedMigrations() (map[string]string, error) {
	rows, err := m.db.Query(`SELECT version, COALESCE(checksum, '') FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]string)
	for rows.Next() {
		var version, checksum string
		if err := rows.Scan(&version, &checksum); err != nil {
			return nil, err
		}
		applied[version] = checksum
	}
	return applied, rows.Err()
}

// validateMigrationChecksums verifies that applied migration files have not changed
func (m *MigrationExecutor) validateMigrationChecksums(migrations []Migration) error {
	applied, err := m.getAppliedMigrations()
	if err != nil {
		// Table may not have been populated yet
		return nil
	}

	for _, migration := range migrations {
		recorded, ok := applied[migration.Version]
		if !ok || recorded == "" {
			continue
		}
		if recorded != migration.Checksum {
			return fmt.Errorf("migration %s has been modified since it was applied", migration.Version)
		}
	}
	return nil
}

// executeMigration runs a single migration inside a transaction
func (m *MigrationExecutor) executeMigration(migration Migration) error {
	tx, err := m.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(migration.UpSQL); err != nil {
		return err
	}

	if _, err := tx.Exec(
		`INSERT INTO schema_migrations (version, title, checksum) VALUES ($1, $2, $3)`,
		migration.Version, migration.Title, migration.Checksum,
	); err != nil {
		return err
	}

	return tx.Commit()
}
