// Package migrations embeds the goose schema migrations for both storage
// backends. Each backend reads its own sub-directory.
package migrations

import "embed"

//go:embed postgres/*.sql
var Postgres embed.FS

//go:embed sqlite/*.sql
var SQLite embed.FS
