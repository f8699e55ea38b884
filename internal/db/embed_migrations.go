package db

import "embed"

// MigrationFS embeds the SQL migrations for the client_sessions table, applied by cmd/migrate.
//
//go:embed migrations/*.sql
var MigrationFS embed.FS
