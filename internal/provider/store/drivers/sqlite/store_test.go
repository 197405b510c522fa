package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/grantd/internal/provider/domain"
	"github.com/aussiebroadwan/grantd/internal/provider/store"
	"github.com/aussiebroadwan/grantd/pkg/idx"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

func seedClient(t *testing.T, s *Store) domain.Client {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Millisecond)
	c := domain.Client{
		ID:         idx.New().String(),
		Name:       "web-app",
		SecretHash: "$scrypt$ln=14,r=8,p=1$c2FsdA$aGFzaA",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, s.Clients().CreateClient(context.Background(), c))
	return c
}

func TestApplyMigrationsIsRepeatable(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.ApplyMigrations())
	require.NoError(t, s.Ping(context.Background()))
}

func TestClientsRepo(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	empty, err := s.Clients().IsEmpty(ctx)
	require.NoError(t, err)
	require.True(t, empty)

	c := seedClient(t, s)

	t.Run("get by id", func(t *testing.T) {
		got, err := s.Clients().GetClientByID(ctx, c.ID)
		require.NoError(t, err)
		require.Equal(t, c.ID, got.ID)
		require.Equal(t, c.Name, got.Name)
		require.Equal(t, c.SecretHash, got.SecretHash)
		require.False(t, got.Revoked)
		require.Nil(t, got.RevokedAt)
		require.True(t, c.CreatedAt.Equal(got.CreatedAt))
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := s.Clients().GetClientByID(ctx, "missing")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("duplicate id", func(t *testing.T) {
		err := s.Clients().CreateClient(ctx, c)
		require.ErrorIs(t, err, store.ErrAlreadyExists)
	})

	t.Run("update secret hash", func(t *testing.T) {
		require.NoError(t, s.Clients().UpdateClientSecretHash(ctx, c.ID, "new-hash"))
		got, err := s.Clients().GetClientByID(ctx, c.ID)
		require.NoError(t, err)
		require.Equal(t, "new-hash", got.SecretHash)

		require.ErrorIs(t, s.Clients().UpdateClientSecretHash(ctx, "missing", "x"), store.ErrNotFound)
	})

	t.Run("revoke keeps first timestamp", func(t *testing.T) {
		first := time.Now().UTC().Truncate(time.Millisecond)
		require.NoError(t, s.Clients().RevokeClient(ctx, c.ID, first))
		require.NoError(t, s.Clients().RevokeClient(ctx, c.ID, first.Add(time.Hour)))

		got, err := s.Clients().GetClientByID(ctx, c.ID)
		require.NoError(t, err)
		require.True(t, got.Revoked)
		require.NotNil(t, got.RevokedAt)
		require.True(t, first.Equal(*got.RevokedAt))

		require.ErrorIs(t, s.Clients().RevokeClient(ctx, "missing", first), store.ErrNotFound)
	})

	t.Run("list", func(t *testing.T) {
		seedClient(t, s)
		clients, err := s.Clients().ListClients(ctx)
		require.NoError(t, err)
		require.Len(t, clients, 2)

		empty, err := s.Clients().IsEmpty(ctx)
		require.NoError(t, err)
		require.False(t, empty)
	})
}

func TestRedirectURIsRepo(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	c := seedClient(t, s)

	add := func(uri string) error {
		return s.RedirectURIs().CreateRedirectURI(ctx, domain.RedirectURI{
			ID:        idx.New().String(),
			ClientID:  c.ID,
			URI:       uri,
			CreatedAt: time.Now(),
		})
	}

	require.NoError(t, add("https://app.example/cb"))
	require.NoError(t, add("https://app.example/other?some=value"))
	require.ErrorIs(t, add("https://app.example/cb"), store.ErrAlreadyExists)

	uris, err := s.RedirectURIs().ListRedirectURIs(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, uris, 2)
	require.Equal(t, "https://app.example/cb", uris[0].URI)

	require.NoError(t, s.RedirectURIs().DeleteRedirectURI(ctx, c.ID, "https://app.example/cb"))
	require.ErrorIs(t, s.RedirectURIs().DeleteRedirectURI(ctx, c.ID, "https://app.example/cb"), store.ErrNotFound)

	t.Run("unknown client violates foreign key", func(t *testing.T) {
		err := s.RedirectURIs().CreateRedirectURI(ctx, domain.RedirectURI{
			ID:        idx.New().String(),
			ClientID:  "missing",
			URI:       "https://app.example/cb",
			CreatedAt: time.Now(),
		})
		require.Error(t, err)
	})
}

func TestAuthorizationCodesRepo(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	c := seedClient(t, s)

	now := time.Now().UTC().Truncate(time.Millisecond)
	code := domain.AuthorizationCode{
		ID:          idx.New().String(),
		Code:        "code-value",
		ClientID:    c.ID,
		UserID:      "42",
		RedirectURI: "https://app.example/cb",
		Scope:       "read",
		State:       "xyz",
		ExpiresIn:   domain.DefaultCodeLifetime,
		CreatedAt:   now,
	}
	require.NoError(t, s.AuthorizationCodes().CreateAuthorizationCode(ctx, code))

	got, err := s.AuthorizationCodes().GetAuthorizationCode(ctx, "code-value")
	require.NoError(t, err)
	require.Equal(t, code.UserID, got.UserID)
	require.Equal(t, code.State, got.State)
	require.Equal(t, code.ExpiresIn, got.ExpiresIn)
	require.Nil(t, got.UsedAt)
	require.True(t, got.IsRedeemable(now))

	_, err = s.AuthorizationCodes().GetAuthorizationCode(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)

	// Single use
	require.NoError(t, s.AuthorizationCodes().MarkAuthorizationCodeUsed(ctx, code.ID, now))
	require.ErrorIs(t, s.AuthorizationCodes().MarkAuthorizationCodeUsed(ctx, code.ID, now), store.ErrNotFound)

	expired := code
	expired.ID = idx.New().String()
	expired.Code = "expired-code"
	expired.CreatedAt = now.Add(-time.Hour)
	require.NoError(t, s.AuthorizationCodes().CreateAuthorizationCode(ctx, expired))

	fresh := code
	fresh.ID = idx.New().String()
	fresh.Code = "fresh-code"
	require.NoError(t, s.AuthorizationCodes().CreateAuthorizationCode(ctx, fresh))

	deleted, err := s.AuthorizationCodes().DeleteStaleAuthorizationCodes(ctx, now)
	require.NoError(t, err)
	require.EqualValues(t, 2, deleted)

	_, err = s.AuthorizationCodes().GetAuthorizationCode(ctx, "fresh-code")
	require.NoError(t, err)
}

func TestTokensRepo(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	c := seedClient(t, s)

	now := time.Now().UTC().Truncate(time.Millisecond)
	tok := domain.Token{
		ID:           idx.New().String(),
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		ClientID:     c.ID,
		UserID:       "1",
		Scope:        "read write",
		ExpiresIn:    10 * time.Second,
		IssuedAt:     now,
	}
	require.NoError(t, s.Tokens().CreateToken(ctx, tok))

	t.Run("lookup by either value", func(t *testing.T) {
		byAccess, err := s.Tokens().GetTokenByAccessToken(ctx, "access-1")
		require.NoError(t, err)
		require.Equal(t, tok.ID, byAccess.ID)
		require.Equal(t, tok.Scope, byAccess.Scope)
		require.Equal(t, tok.ExpiresIn, byAccess.ExpiresIn)
		require.True(t, tok.IssuedAt.Equal(byAccess.IssuedAt))

		byRefresh, err := s.Tokens().GetTokenByRefreshToken(ctx, "refresh-1")
		require.NoError(t, err)
		require.Equal(t, tok.ID, byRefresh.ID)

		_, err = s.Tokens().GetTokenByRefreshToken(ctx, "abcd")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("token values are unique", func(t *testing.T) {
		dup := tok
		dup.ID = idx.New().String()
		dup.AccessToken = "access-2"
		require.ErrorIs(t, s.Tokens().CreateToken(ctx, dup), store.ErrAlreadyExists)

		dup.AccessToken = "access-1"
		dup.RefreshToken = "refresh-2"
		require.ErrorIs(t, s.Tokens().CreateToken(ctx, dup), store.ErrAlreadyExists)
	})

	t.Run("revoke is idempotent", func(t *testing.T) {
		require.NoError(t, s.Tokens().RevokeToken(ctx, tok.ID, now))
		require.NoError(t, s.Tokens().RevokeToken(ctx, tok.ID, now.Add(time.Minute)))

		got, err := s.Tokens().GetTokenByAccessToken(ctx, "access-1")
		require.NoError(t, err)
		require.True(t, got.Revoked)
		require.True(t, now.Equal(*got.RevokedAt))

		require.ErrorIs(t, s.Tokens().RevokeToken(ctx, "missing", now), store.ErrNotFound)
	})

	t.Run("delete expired", func(t *testing.T) {
		n, err := s.Tokens().DeleteTokensExpiredBefore(ctx, now)
		require.NoError(t, err)
		require.Zero(t, n)

		n, err = s.Tokens().DeleteTokensExpiredBefore(ctx, now.Add(time.Minute))
		require.NoError(t, err)
		require.EqualValues(t, 1, n)
	})
}

func TestWithTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	c := seedClient(t, s)

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(tx store.Tx) error {
		require.NoError(t, tx.Tokens().CreateToken(ctx, domain.Token{
			ID:           idx.New().String(),
			AccessToken:  "a",
			RefreshToken: "r",
			ClientID:     c.ID,
			UserID:       "1",
			ExpiresIn:    time.Hour,
			IssuedAt:     time.Now(),
		}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.Tokens().GetTokenByAccessToken(ctx, "a")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeletingClientCascades(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	c := seedClient(t, s)

	require.NoError(t, s.Tokens().CreateToken(ctx, domain.Token{
		ID:           idx.New().String(),
		AccessToken:  "a",
		RefreshToken: "r",
		ClientID:     c.ID,
		UserID:       "1",
		ExpiresIn:    time.Hour,
		IssuedAt:     time.Now(),
	}))

	_, err := s.db.ExecContext(ctx, `DELETE FROM clients WHERE id = ?`, c.ID)
	require.NoError(t, err)

	_, err = s.Tokens().GetTokenByAccessToken(ctx, "a")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestDSN(t *testing.T) {
	require.Equal(t, ":memory:", DSN(":memory:"))

	dsn := DSN("/var/lib/grantd/grantd.db")
	require.Contains(t, dsn, "file:/var/lib/grantd/grantd.db?")
	require.Contains(t, dsn, "_pragma=foreign_keys(1)")
	require.Contains(t, dsn, "_pragma=busy_timeout(5000)")
	require.Contains(t, dsn, "_txlock=immediate")
}

func TestForeignKeysOnEveryConnection(t *testing.T) {
	ctx := context.Background()
	s, err := NewStore(DSN(filepath.Join(t.TempDir(), "grantd.db")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations())

	// Concurrent transactions make the pool dial several connections
	const conns = 4
	s.db.SetMaxIdleConns(conns)
	var wg sync.WaitGroup
	errs := make([]error, conns)
	for i := range conns {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = s.WithTx(ctx, func(tx store.Tx) error {
				return tx.Tokens().CreateToken(ctx, domain.Token{
					ID:           idx.New().String(),
					AccessToken:  idx.New().String(),
					RefreshToken: idx.New().String(),
					ClientID:     "missing-client",
					UserID:       "1",
					ExpiresIn:    time.Hour,
					IssuedAt:     time.Now(),
				})
			})
		}()
	}
	wg.Wait()

	for _, err := range errs {
		require.Error(t, err)
	}
	for range conns {
		err := s.Tokens().CreateToken(ctx, domain.Token{
			ID:           idx.New().String(),
			AccessToken:  idx.New().String(),
			RefreshToken: idx.New().String(),
			ClientID:     "missing-client",
			UserID:       "1",
			ExpiresIn:    time.Hour,
			IssuedAt:     time.Now(),
		})
		require.Error(t, err)
	}

	var n int
	require.NoError(t, s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tokens`).Scan(&n))
	require.Zero(t, n)
}
