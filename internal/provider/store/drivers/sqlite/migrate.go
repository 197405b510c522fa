package sqlite

import (
	"github.com/aussiebroadwan/grantd/internal/provider/store"
	"github.com/aussiebroadwan/grantd/internal/provider/store/drivers/sqlite/migrations"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
)

// ApplyMigrations brings the schema up to date from the embedded files.
func (s *Store) ApplyMigrations() error {
	driver, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	if err != nil {
		return err
	}
	return store.Migrate("sqlite", driver, migrations.Migrations)
}
