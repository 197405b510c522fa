package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/grantd/internal/provider/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite, postgres)
// implement this. It exposes sub-repositories per table so a Tx can hand out
// the same repositories bound to the transaction.
type Store interface {
	Clients() Clients
	RedirectURIs() RedirectURIs
	AuthorizationCodes() AuthorizationCodes
	Tokens() Tokens

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Clients interface {
	// GetClientByID fetches a client row. RedirectURIs is left empty, use
	// the RedirectURIs repository to load them.
	GetClientByID(ctx context.Context, id string) (domain.Client, error)

	// ListClients returns all clients ordered by creation date (newest first).
	ListClients(ctx context.Context) ([]domain.Client, error)

	// CreateClient inserts a new client (id is a ULID).
	CreateClient(ctx context.Context, c domain.Client) error

	UpdateClientSecretHash(ctx context.Context, clientID, secretHash string) error

	// RevokeClient flags the client as revoked. Revoking twice keeps the first
	// revoked_at and is not an error.
	RevokeClient(ctx context.Context, clientID string, at time.Time) error

	// IsEmpty returns true if there are no clients.
	IsEmpty(ctx context.Context) (bool, error)
}

type RedirectURIs interface {
	// CreateRedirectURI registers a URI. A duplicate for the same client
	// returns ErrAlreadyExists.
	CreateRedirectURI(ctx context.Context, r domain.RedirectURI) error

	// ListRedirectURIs returns the URIs of a client in registration order.
	ListRedirectURIs(ctx context.Context, clientID string) ([]domain.RedirectURI, error)

	// DeleteRedirectURI removes one URI from a client.
	DeleteRedirectURI(ctx context.Context, clientID, uri string) error
}

type AuthorizationCodes interface {
	// CreateAuthorizationCode stores a freshly minted authorization code.
	CreateAuthorizationCode(ctx context.Context, code domain.AuthorizationCode) error

	// GetAuthorizationCode fetches a code by its value when redeeming.
	GetAuthorizationCode(ctx context.Context, code string) (domain.AuthorizationCode, error)

	// MarkAuthorizationCodeUsed consumes a code. It returns ErrNotFound when
	// the code does not exist or was already used.
	MarkAuthorizationCodeUsed(ctx context.Context, id string, at time.Time) error

	// DeleteStaleAuthorizationCodes removes used codes and codes that expired
	// before now.
	DeleteStaleAuthorizationCodes(ctx context.Context, now time.Time) (int64, error)
}

type Tokens interface {
	// CreateToken stores a new access/refresh pair. A collision on either
	// value returns ErrAlreadyExists.
	CreateToken(ctx context.Context, t domain.Token) error

	GetTokenByAccessToken(ctx context.Context, accessToken string) (domain.Token, error)
	GetTokenByRefreshToken(ctx context.Context, refreshToken string) (domain.Token, error)

	// RevokeToken flips revoked. Revoking twice keeps the first revoked_at.
	RevokeToken(ctx context.Context, id string, at time.Time) error

	// DeleteTokensExpiredBefore removes tokens whose lifetime ended before
	// cutoff.
	DeleteTokensExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
