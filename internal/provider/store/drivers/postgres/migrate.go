package postgres

import (
	"errors"

	"github.com/aussiebroadwan/grantd/internal/provider/store"
	"github.com/aussiebroadwan/grantd/internal/provider/store/drivers/postgres/migrations"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
)

var errNoPool = errors.New("postgres: migrations require a pgxpool connection")

// ApplyMigrations runs the embedded migrations through a database/sql view
// of the pool.
func (s *Store) ApplyMigrations() error {
	if s.pgx == nil {
		return errNoPool
	}

	driver, err := migratepgx.WithInstance(stdlib.OpenDBFromPool(s.pgx), &migratepgx.Config{})
	if err != nil {
		return err
	}
	return store.Migrate("pgx5", driver, migrations.Migrations)
}
