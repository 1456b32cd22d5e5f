// Package migrations embeds the schema files so binaries can bootstrap a
// fresh database without a separate migration tool.
package migrations

import "embed"

//go:embed sqlite/*.sql postgres/*.sql
var FS embed.FS

// SQLiteSchema returns the full SQLite schema for a fresh database.
func SQLiteSchema() (string, error) {
	data, err := FS.ReadFile("sqlite/000001_initial_schema.up.sql")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// PostgresSchema returns the full PostgreSQL schema for a fresh database.
func PostgresSchema() (string, error) {
	data, err := FS.ReadFile("postgres/000001_initial_schema.up.sql")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
