package database

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/neo/wordextremist_backend/internal/logging"
)

// Migration represents a single numbered schema change
type Migration struct {
	ID   int
	Name string
	SQL  string
}

// RunMigrations applies all pending migrations from the given directory.
// Files are named NNN_description.sql and applied in ascending order inside
// a transaction each.
func (d *Database) RunMigrations(migrationsDir string) error {
	if _, err := d.db.Exec(`
		CREATE TABLE IF NOT EXISTS migrations (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`); err != nil {
		return fmt.Errorf("failed to initialize migrations table: %v", err)
	}

	migrations, err := loadMigrations(migrationsDir)
	if err != nil {
		return err
	}

	applied := make(map[int]bool)
	rows, err := d.db.Query(`SELECT id FROM migrations`)
	if err != nil {
		return fmt.Errorf("failed to query applied migrations: %v", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("failed to scan migration row: %v", err)
		}
		applied[id] = true
	}

	for _, migration := range migrations {
		if applied[migration.ID] {
			continue
		}
		if err := d.applyMigration(migration); err != nil {
			return err
		}
		logging.LogDatabaseEvent("migration_applied", "migrations", map[string]interface{}{
			"id":   migration.ID,
			"name": migration.Name,
		})
	}

	return nil
}

func (d *Database) applyMigration(migration Migration) error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}

	if _, err := tx.Exec(migration.SQL); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to apply migration %d_%s: %v", migration.ID, migration.Name, err)
	}

	if _, err := tx.Exec(`INSERT INTO migrations (id, name) VALUES (?, ?)`, migration.ID, migration.Name); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to record migration %d_%s: %v", migration.ID, migration.Name, err)
	}

	return tx.Commit()
}

func loadMigrations(migrationsDir string) ([]Migration, error) {
	files, err := os.ReadDir(migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %v", err)
	}

	var migrations []Migration
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".sql") {
			continue
		}

		// Expected format: 001_create_tables.sql
		parts := strings.SplitN(file.Name(), "_", 2)
		if len(parts) != 2 {
			continue
		}

		id := 0
		if _, err := fmt.Sscanf(parts[0], "%d", &id); err != nil {
			continue
		}

		content, err := os.ReadFile(filepath.Join(migrationsDir, file.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read migration file %s: %v", file.Name(), err)
		}

		migrations = append(migrations, Migration{
			ID:   id,
			Name: strings.TrimSuffix(parts[1], ".sql"),
			SQL:  string(content),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].ID < migrations[j].ID
	})

	return migrations, nil
}
