// Package migrations embeds the goose schema migrations of the server,
// one directory per SQL dialect.
package migrations

import "embed"

// Dialect directories inside FS.
const (
	PostgresDir = "postgres"
	SQLiteDir   = "sqlite"
)

//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS
