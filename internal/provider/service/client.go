package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aussiebroadwan/grantd/internal/provider/domain"
	"github.com/aussiebroadwan/grantd/internal/provider/store"
	"github.com/aussiebroadwan/grantd/pkg/cryptox"
	"github.com/aussiebroadwan/grantd/pkg/idx"
	"github.com/aussiebroadwan/grantd/pkg/slogx"
)

var (
	ErrClientNotFound      = errors.New("client not found")
	ErrRedirectURIExists   = errors.New("redirect uri already registered")
	ErrRedirectURINotFound = errors.New("redirect uri not registered")
	ErrInvalidRedirectURI  = errors.New("redirect uri must be absolute and must not contain a fragment")
)

// ClientService is the client registry: lookup, secret verification and
// administration of registered clients and their redirect URIs.
type ClientService struct {
	Store store.Store
	Now   func() time.Time
}

func (s *ClientService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// Lookup returns the client with its redirect URIs. Revoked clients are
// reported as ErrClientNotFound.
func (s *ClientService) Lookup(ctx context.Context, clientID string) (domain.Client, error) {
	return lookupClient(ctx, s.Store, clientID)
}

// lookupClient runs against either the root store or a transaction.
func lookupClient(ctx context.Context, st store.Store, clientID string) (domain.Client, error) {
	if strings.TrimSpace(clientID) == "" {
		return domain.Client{}, ErrClientNotFound
	}

	client, err := st.Clients().GetClientByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Client{}, ErrClientNotFound
		}
		return domain.Client{}, fmt.Errorf("get client: %w", err)
	}
	if client.Revoked {
		return domain.Client{}, ErrClientNotFound
	}

	client.RedirectURIs, err = st.RedirectURIs().ListRedirectURIs(ctx, clientID)
	if err != nil {
		return domain.Client{}, fmt.Errorf("list redirect uris: %w", err)
	}
	return client, nil
}

// VerifySecret reports whether candidate is the client's current secret. It
// fails closed on every error.
func (s *ClientService) VerifySecret(ctx context.Context, clientID, candidate string) bool {
	l := slogx.FromContext(ctx)

	client, err := s.Store.Clients().GetClientByID(ctx, clientID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			l.Error("failed to load client for secret verification", "error", err, "client_id", clientID)
		}
		return false
	}
	if client.Revoked {
		return false
	}

	if err := cryptox.VerifySecret(candidate, client.SecretHash); err != nil {
		if !errors.Is(err, cryptox.ErrSecretMismatch) {
			l.Warn("client secret hash unreadable", "error", err, "client_id", clientID)
		}
		return false
	}
	return true
}

// CreateClient registers a client and returns the raw secret. The secret is
// only ever available from this call or RotateSecret.
func (s *ClientService) CreateClient(
	ctx context.Context,
	name string,
	redirectURIs []string,
) (client domain.Client, plaintextSecret string, err error) {
	l := slogx.FromContext(ctx)

	for _, raw := range redirectURIs {
		if err := ValidateRedirectURI(raw); err != nil {
			return domain.Client{}, "", err
		}
	}

	plaintextSecret, secretHash, err := newClientSecret()
	if err != nil {
		l.Error("failed to generate client secret", "error", err)
		return domain.Client{}, "", err
	}

	client = s.newClient(name, secretHash)
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		return insertClient(ctx, tx, &client, redirectURIs)
	})
	if err != nil {
		l.Error("failed to create client", "error", err)
		return domain.Client{}, "", err
	}

	l.Info("client created", "client_id", client.ID, "name", client.Name, "redirect_uris", len(client.RedirectURIs))
	return client, plaintextSecret, nil
}

func (s *ClientService) newClient(name, secretHash string) domain.Client {
	now := s.now()
	return domain.Client{
		ID:         idx.New().String(),
		Name:       strings.TrimSpace(name),
		SecretHash: secretHash,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// insertClient stores c and its redirect URIs within tx, appending the
// stored URIs to c.RedirectURIs.
func insertClient(ctx context.Context, tx store.Tx, c *domain.Client, redirectURIs []string) error {
	if err := tx.Clients().CreateClient(ctx, *c); err != nil {
		return err
	}
	for _, raw := range redirectURIs {
		r := domain.RedirectURI{ID: idx.New().String(), ClientID: c.ID, URI: raw, CreatedAt: c.CreatedAt}
		if err := tx.RedirectURIs().CreateRedirectURI(ctx, r); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return ErrRedirectURIExists
			}
			return err
		}
		c.RedirectURIs = append(c.RedirectURIs, r)
	}
	return nil
}

// ListClients returns every client, revoked ones included.
func (s *ClientService) ListClients(ctx context.Context) ([]domain.Client, error) {
	clients, err := s.Store.Clients().ListClients(ctx)
	if err != nil {
		return nil, err
	}
	for i := range clients {
		clients[i].RedirectURIs, err = s.Store.RedirectURIs().ListRedirectURIs(ctx, clients[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return clients, nil
}

// GetClient returns a client for administration, revoked or not.
func (s *ClientService) GetClient(ctx context.Context, clientID string) (domain.Client, error) {
	client, err := s.Store.Clients().GetClientByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Client{}, ErrClientNotFound
		}
		return domain.Client{}, err
	}
	client.RedirectURIs, err = s.Store.RedirectURIs().ListRedirectURIs(ctx, clientID)
	if err != nil {
		return domain.Client{}, err
	}
	return client, nil
}

// RotateSecret replaces the client secret. The previous secret stops
// verifying immediately.
func (s *ClientService) RotateSecret(ctx context.Context, clientID string) (string, error) {
	l := slogx.FromContext(ctx)

	if _, err := s.Lookup(ctx, clientID); err != nil {
		return "", err
	}

	plaintextSecret, secretHash, err := newClientSecret()
	if err != nil {
		return "", err
	}

	if err := s.Store.Clients().UpdateClientSecretHash(ctx, clientID, secretHash); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrClientNotFound
		}
		l.Error("failed to rotate client secret", "error", err, "client_id", clientID)
		return "", err
	}

	l.Info("client secret rotated", "client_id", clientID)
	return plaintextSecret, nil
}

// RevokeClient disables a client for every grant. Revoking twice is a no-op.
func (s *ClientService) RevokeClient(ctx context.Context, clientID string) error {
	l := slogx.FromContext(ctx)

	if err := s.Store.Clients().RevokeClient(ctx, clientID, s.now()); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrClientNotFound
		}
		l.Error("failed to revoke client", "error", err, "client_id", clientID)
		return err
	}

	l.Info("client revoked", "client_id", clientID)
	return nil
}

// AddRedirectURI registers another redirect URI for a live client.
func (s *ClientService) AddRedirectURI(ctx context.Context, clientID, raw string) (domain.RedirectURI, error) {
	if err := ValidateRedirectURI(raw); err != nil {
		return domain.RedirectURI{}, err
	}
	if _, err := s.Lookup(ctx, clientID); err != nil {
		return domain.RedirectURI{}, err
	}

	r := domain.RedirectURI{ID: idx.New().String(), ClientID: clientID, URI: raw, CreatedAt: s.now()}
	if err := s.Store.RedirectURIs().CreateRedirectURI(ctx, r); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.RedirectURI{}, ErrRedirectURIExists
		}
		return domain.RedirectURI{}, err
	}

	slogx.FromContext(ctx).Info("redirect uri added", "client_id", clientID, "uri", raw)
	return r, nil
}

// RemoveRedirectURI unregisters a redirect URI.
func (s *ClientService) RemoveRedirectURI(ctx context.Context, clientID, raw string) error {
	if err := s.Store.RedirectURIs().DeleteRedirectURI(ctx, clientID, raw); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrRedirectURINotFound
		}
		return err
	}
	slogx.FromContext(ctx).Info("redirect uri removed", "client_id", clientID, "uri", raw)
	return nil
}

// ValidateRedirectURI checks that raw is an absolute URI with a host and no
// fragment.
func ValidateRedirectURI(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" || u.Fragment != "" || strings.Contains(raw, "#") {
		return ErrInvalidRedirectURI
	}
	return nil
}

func newClientSecret() (plaintext, hash string, err error) {
	plaintext, err = cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", "", err
	}
	hash, err = cryptox.HashSecret(plaintext)
	if err != nil {
		return "", "", err
	}
	return plaintext, hash, nil
}
