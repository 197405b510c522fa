package migrations

import "embed"

// Migrations holds the PostgreSQL schema migrations applied by Store.ApplyMigrations.
//
//go:embed *.sql
var Migrations embed.FS
