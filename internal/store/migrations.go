// File: internal/store/migrations.go
// Project: Gargamel League Matchmaker
// Description: Schema migrations for the league store
// Version: 1.0.0

package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// RunMigrations executes the schema.sql file found under migrationsPath.
func (db *DB) RunMigrations(ctx context.Context, migrationsPath string) error {
	schemaFile := filepath.Join(migrationsPath, "schema.sql")
	content, err := os.ReadFile(schemaFile)
	if err != nil {
		return fmt.Errorf("failed to read schema file: %w", err)
	}

	if _, err := db.ExecContext(ctx, string(content)); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	return nil
}

// ClearDatabase drops all league tables. Intended for test fixtures only.
func (db *DB) ClearDatabase(ctx context.Context) error {
	tables := []string{
		"match_players",
		"matches",
		"users",
		"game_counter",
	}

	for _, table := range tables {
		query := fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", table)
		if _, err := db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}

	return nil
}

// GetSchemaVersion returns the current schema version.
// This is a placeholder for future migration versioning.
func (db *DB) GetSchemaVersion(ctx context.Context) (int, error) {
	return 1, nil
}
