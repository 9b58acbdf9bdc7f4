// Package migrations embeds the registry's PostgreSQL schema migrations.
package migrations

import "embed"

// FS holds every NNN_name.up.sql migration.
//
//go:embed *.up.sql
var FS embed.FS
