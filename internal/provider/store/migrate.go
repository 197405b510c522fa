package store

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// Migrate runs every pending up migration found at the root of src against
// driver. dbName only labels errors from migrate.
func Migrate(dbName string, driver database.Driver, src fs.FS) error {
	source, err := iofs.New(src, ".")
	if err != nil {
		return fmt.Errorf("%s migrations source: %w", dbName, err)
	}

	m, err := migrate.NewWithInstance("iofs", source, dbName, driver)
	if err != nil {
		return fmt.Errorf("%s migrate: %w", dbName, err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("%s migrate up: %w", dbName, err)
	}
	return nil
}
