package sqlite

import (
	"context"
	"database/sql"

	"github.com/aussiebroadwan/grantd/internal/provider/store"
)

type txStore struct {
	tx *sql.Tx
}

func newTx(tx *sql.Tx) *txStore {
	return &txStore{tx: tx}
}

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

// Close is a no-op; the caller commits or rolls back and the outer DB stays open.
func (t *txStore) Close() error { return nil }

// Ping is a no-op for transactions, the connection is already held.
func (t *txStore) Ping(ctx context.Context) error {
	return nil
}

func (t *txStore) Tx(ctx context.Context) (store.Tx, error) {
	// Nested tx not supported
	return nil, sql.ErrTxDone
}

func (t *txStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return sql.ErrTxDone
}

func (t *txStore) Clients() store.Clients                       { return &clientsRepo{db: t.tx} }
func (t *txStore) RedirectURIs() store.RedirectURIs             { return &redirectURIsRepo{db: t.tx} }
func (t *txStore) AuthorizationCodes() store.AuthorizationCodes { return &authorizationCodesRepo{db: t.tx} }
func (t *txStore) Tokens() store.Tokens                         { return &tokensRepo{db: t.tx} }

// ApplyMigrations is a no-op; migrations are applied before starting a tx.
func (t *txStore) ApplyMigrations() error { return nil }
