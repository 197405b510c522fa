package migrations

import "embed"

// Migrations holds the SQLite schema migrations applied by Store.ApplyMigrations.
//
//go:embed *.sql
var Migrations embed.FS
