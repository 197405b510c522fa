package service

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/grantd/internal/provider/domain"
	"github.com/aussiebroadwan/grantd/internal/provider/store"
	"github.com/aussiebroadwan/grantd/pkg/cryptox"
	"github.com/aussiebroadwan/grantd/pkg/idx"
	"github.com/aussiebroadwan/grantd/pkg/slogx"
)

// Response types accepted by the authorization endpoint.
const (
	ResponseTypeCode  = "code"
	ResponseTypeToken = "token"
)

// AuthorizeService issues authorization codes and implicit grant tokens.
type AuthorizeService struct {
	Store         store.Store
	Resolver      RedirectResolver
	RequireSecure bool
	CodeLifetime  time.Duration
	TokenLifetime time.Duration
	Metrics       Recorder
	Now           func() time.Time
}

// AuthorizeRequest carries the authorization endpoint parameters. UserID is
// the already authenticated end user; empty means nobody is logged in.
type AuthorizeRequest struct {
	Secure       bool
	ResponseType string
	ClientID     string
	RedirectURI  string
	State        string
	Scope        string
	UserID       string
}

// AuthorizeResponse is a successful authorization. Location is the 302
// target.
type AuthorizeResponse struct {
	Location string
	Code     string
	Token    *domain.Token
}

func (s *AuthorizeService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// Authorize validates the request and issues a code or an implicit token.
// Every failure is a *ProtocolError or a store fault, never a redirect.
func (s *AuthorizeService) Authorize(ctx context.Context, req AuthorizeRequest) (*AuthorizeResponse, error) {
	l := slogx.FromContext(ctx)

	// 1. Transport
	if s.RequireSecure && !req.Secure {
		l.Info("rejected authorize request over insecure transport")
		return nil, ErrInsecureTransport
	}

	// 2. Client
	if strings.TrimSpace(req.ClientID) == "" {
		return nil, ErrClientIDRequired
	}
	client, err := lookupClient(ctx, s.Store, req.ClientID)
	if err != nil {
		if errors.Is(err, ErrClientNotFound) {
			l.Info("authorize request for unknown client", "client_id", req.ClientID)
			return nil, ErrUnknownClient
		}
		return nil, err
	}

	// 3. Response type
	switch req.ResponseType {
	case ResponseTypeCode, ResponseTypeToken:
	case "":
		return nil, ErrResponseTypeRequired
	default:
		l.Info("unsupported response_type", "response_type", req.ResponseType)
		return nil, ErrUnsupportedResponse
	}

	// 4. Redirect target
	target, err := s.Resolver.Resolve(client, req.RedirectURI)
	if err != nil {
		l.Info("redirect uri validation failed", "client_id", client.ID, "error", err)
		return nil, err
	}

	// 5. Authenticated user
	if req.UserID == "" {
		return nil, ErrLoginRequired
	}

	if req.ResponseType == ResponseTypeCode {
		return s.issueCode(ctx, client, target, req)
	}
	return s.issueImplicit(ctx, client, target, req)
}

func (s *AuthorizeService) issueCode(
	ctx context.Context,
	client domain.Client,
	target *ResolvedRedirect,
	req AuthorizeRequest,
) (*AuthorizeResponse, error) {
	l := slogx.FromContext(ctx)

	value, err := cryptox.GenerateToken(cryptox.TokenSize384)
	if err != nil {
		return nil, err
	}

	lifetime := s.CodeLifetime
	if lifetime <= 0 {
		lifetime = domain.DefaultCodeLifetime
	}

	code := domain.AuthorizationCode{
		ID:          idx.New().String(),
		Code:        value,
		ClientID:    client.ID,
		UserID:      req.UserID,
		RedirectURI: target.Registered,
		Scope:       req.Scope,
		State:       req.State,
		ExpiresIn:   lifetime,
		CreatedAt:   s.now(),
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		return tx.AuthorizationCodes().CreateAuthorizationCode(ctx, code)
	})
	if err != nil {
		l.Error("failed to persist authorization code", "error", err, "client_id", client.ID)
		return nil, err
	}

	params := url.Values{"code": {value}}
	if req.State != "" {
		params.Set("state", req.State)
	}

	recorderOrNop(s.Metrics).CodeIssued(ctx)
	l.Info("authorization code issued", "client_id", client.ID, "user_id", req.UserID)
	return &AuthorizeResponse{Location: target.WithQuery(params), Code: value}, nil
}

func (s *AuthorizeService) issueImplicit(
	ctx context.Context,
	client domain.Client,
	target *ResolvedRedirect,
	req AuthorizeRequest,
) (*AuthorizeResponse, error) {
	l := slogx.FromContext(ctx)

	var tok domain.Token
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		tok, err = mintToken(ctx, tx, client.ID, req.UserID, req.Scope, s.TokenLifetime, s.now())
		return err
	})
	if err != nil {
		l.Error("failed to persist implicit token", "error", err, "client_id", client.ID)
		return nil, err
	}

	params := url.Values{
		"access_token": {tok.AccessToken},
		"token_type":   {domain.TokenType},
		"expires_in":   {strconv.FormatInt(int64(tok.ExpiresIn/time.Second), 10)},
		"user_id":      {tok.UserID},
	}
	if req.State != "" {
		params.Set("state", req.State)
	}

	recorderOrNop(s.Metrics).TokenIssued(ctx, "implicit")
	l.Info("implicit token issued", "client_id", client.ID, "user_id", req.UserID)
	return &AuthorizeResponse{Location: target.WithFragment(params), Token: &tok}, nil
}
