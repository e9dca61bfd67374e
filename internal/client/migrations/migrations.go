// Package migrations embeds the goose migrations of the CLI token store.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
