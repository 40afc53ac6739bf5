// Package migrations embeds the PostgreSQL schema migrations for the server.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
