package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"

	"github.com/aussiebroadwan/grantd/internal/provider/domain"
	"github.com/aussiebroadwan/grantd/internal/provider/store"
	"github.com/aussiebroadwan/grantd/pkg/slogx"
)

var (
	ErrBootstrapAlready      = errors.New("system already bootstrapped")
	ErrBootstrapUnauthorized = errors.New("unauthorized bootstrap attempt")
)

// BootstrapService creates the first client on an empty store.
type BootstrapService struct {
	Store   store.Store
	Clients *ClientService
	Token   string // Pre-configured bootstrap token, empty disables bootstrap
}

func (s *BootstrapService) IsBootstrapped(ctx context.Context) (bool, error) {
	empty, err := s.Store.Clients().IsEmpty(ctx)
	if err != nil {
		return false, err
	}
	return !empty, nil
}

// Bootstrap registers the first client and returns it with its raw secret.
func (s *BootstrapService) Bootstrap(
	ctx context.Context,
	token string,
	req domain.BootstrapData,
) (domain.Client, string, error) {
	l := slogx.FromContext(ctx)

	// 1. Validate provided token
	if s.Token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(s.Token)) != 1 {
		l.Warn("unauthorized bootstrap attempt")
		return domain.Client{}, "", ErrBootstrapUnauthorized
	}

	clients := s.Clients
	if clients == nil {
		clients = &ClientService{Store: s.Store}
	}
	for _, raw := range req.RedirectURIs {
		if err := ValidateRedirectURI(raw); err != nil {
			return domain.Client{}, "", err
		}
	}
	secret, secretHash, err := newClientSecret()
	if err != nil {
		return domain.Client{}, "", err
	}
	client := clients.newClient(req.ClientName, secretHash)

	// 2. Check the store is empty and create the client in the same
	// transaction so concurrent bootstraps cannot both succeed
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		empty, err := tx.Clients().IsEmpty(ctx)
		if err != nil {
			return err
		}
		if !empty {
			return ErrBootstrapAlready
		}
		return insertClient(ctx, tx, &client, req.RedirectURIs)
	})
	switch {
	case errors.Is(err, ErrBootstrapAlready):
		l.Warn("attempted bootstrap on already-bootstrapped system")
		return domain.Client{}, "", err
	case err != nil:
		l.Error("failed to bootstrap", slog.Any("error", err))
		return domain.Client{}, "", err
	}

	l.Info("successfully bootstrapped system", slog.String("client_id", client.ID))
	return client, secret, nil
}
