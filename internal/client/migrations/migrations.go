// Package migrations embeds the SQLite schema migrations for the client's
// local database. Applied with goose on startup.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
