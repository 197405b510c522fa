package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aussiebroadwan/grantd/internal/provider/domain"
	"github.com/aussiebroadwan/grantd/internal/provider/store"
	"github.com/aussiebroadwan/grantd/pkg/cryptox"
	"github.com/aussiebroadwan/grantd/pkg/idx"
	"github.com/aussiebroadwan/grantd/pkg/slogx"
)

// Grant types accepted by the token endpoint.
const (
	GrantTypePassword          = "password"
	GrantTypeRefreshToken      = "refresh_token"
	GrantTypeAuthorizationCode = "authorization_code"
)

// TokenService is the token endpoint: Basic client authentication followed
// by grant dispatch. It also serves revocation and introspection.
type TokenService struct {
	Store         store.Store
	Clients       *ClientService
	Verifier      CredentialVerifier
	Locker        Locker
	RequireSecure bool
	TokenLifetime time.Duration

	// RefreshRotation revokes a refresh token when it is used so it cannot
	// be replayed. Off by default: a refresh token stays usable for as long
	// as its row exists.
	RefreshRotation bool

	Metrics Recorder
	Now     func() time.Time
}

// TokenRequest is a raw token endpoint request.
type TokenRequest struct {
	Method        string
	Secure        bool
	Authorization string
	Form          url.Values

	// BodyErr reports a body that could not be read as a form. It is
	// returned only once the client has authenticated.
	BodyErr error
}

// RevokeRequest is a raw revocation endpoint request (RFC 7009).
type RevokeRequest struct {
	Method        string
	Secure        bool
	Authorization string
	Token         string
	TokenTypeHint string
	BodyErr       error
}

// Introspection is the state of a token as seen by the client that owns it.
type Introspection struct {
	Active bool
	Token  domain.Token
}

func (s *TokenService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *TokenService) clients() *ClientService {
	if s.Clients != nil {
		return s.Clients
	}
	return &ClientService{Store: s.Store, Now: s.Now}
}

// Issue authenticates the client and runs the requested grant.
func (s *TokenService) Issue(ctx context.Context, req TokenRequest) (*domain.Token, error) {
	// 1-3. Method, transport, client credentials
	clientID, err := s.authenticateClient(ctx, req.Method, req.Secure, req.Authorization)
	if err != nil {
		return nil, err
	}
	if req.BodyErr != nil {
		return nil, req.BodyErr
	}
	ctx = slogx.With(ctx, "client_id", clientID)
	l := slogx.FromContext(ctx)

	// 4. Grant dispatch
	grantType := req.Form.Get("grant_type")
	var tok *domain.Token
	switch grantType {
	case "":
		return nil, ErrGrantTypeRequired
	case GrantTypePassword:
		tok, err = s.passwordGrant(ctx, clientID, req.Form)
	case GrantTypeRefreshToken:
		tok, err = s.refreshGrant(ctx, clientID, req.Form)
	case GrantTypeAuthorizationCode:
		tok, err = s.authorizationCodeGrant(ctx, clientID, req.Form)
	default:
		l.Info("unsupported grant type", "grant_type", grantType)
		return nil, ErrUnsupportedGrantType
	}
	if err != nil {
		return nil, err
	}

	recorderOrNop(s.Metrics).TokenIssued(ctx, grantType)
	l.Info("token issued", "grant_type", grantType, "user_id", tok.UserID)
	return tok, nil
}

func (s *TokenService) passwordGrant(ctx context.Context, clientID string, form url.Values) (*domain.Token, error) {
	l := slogx.FromContext(ctx)

	if !form.Has("username") || !form.Has("password") {
		return nil, ErrUsernamePasswordReq
	}

	// The verifier may be slow or remote, keep it outside the transaction
	userID, err := s.checkAuth(ctx, form.Get("username"), form.Get("password"))
	if err != nil || userID == "" {
		l.Info("could not validate user credentials", "error", err)
		return nil, ErrInvalidUserCredential
	}

	var tok domain.Token
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := lookupClient(ctx, tx, clientID); err != nil {
			if errors.Is(err, ErrClientNotFound) {
				return ErrClientAuthFailed
			}
			return err
		}
		tok, err = mintToken(ctx, tx, clientID, userID, form.Get("scope"), s.TokenLifetime, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}
	return &tok, nil
}

// checkAuth calls the verifier and turns a panic into an error.
func (s *TokenService) checkAuth(ctx context.Context, username, password string) (userID string, err error) {
	if s.Verifier == nil {
		return "", errors.New("no credential verifier configured")
	}
	defer func() {
		if r := recover(); r != nil {
			slogx.FromContext(ctx).Error("credential verifier panicked", "panic", r)
			userID, err = "", fmt.Errorf("credential verifier panicked: %v", r)
		}
	}()
	return s.Verifier.CheckAuth(ctx, username, password)
}

func (s *TokenService) refreshGrant(ctx context.Context, clientID string, form url.Values) (*domain.Token, error) {
	l := slogx.FromContext(ctx)

	refreshToken := form.Get("refresh_token")
	if refreshToken == "" {
		return nil, ErrRefreshTokenRequired
	}
	if !form.Has("user_id") {
		return nil, ErrUserIDRequired
	}
	userID := form.Get("user_id")

	fp := cryptox.FingerprintToken(refreshToken)
	if s.Locker != nil {
		unlock, err := s.Locker.Lock(ctx, "refresh:"+fp)
		if err != nil {
			return nil, fmt.Errorf("acquire refresh lock: %w", err)
		}
		defer unlock()
	}

	var tok domain.Token
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		old, err := tx.Tokens().GetTokenByRefreshToken(ctx, refreshToken)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				l.Info("invalid refresh_token", "fingerprint", fp)
				return ErrInvalidRefreshToken
			}
			return err
		}

		if old.ClientID != clientID {
			l.Warn("refresh_token used by another client", "owner", old.ClientID)
			return ErrRefreshClientMismatch
		}
		if old.UserID != userID {
			l.Info("refresh_token user mismatch")
			return ErrRefreshUserMismatch
		}

		now := s.now()
		if s.RefreshRotation {
			if old.Revoked {
				l.Warn("revoked refresh_token replayed", "token_id", old.ID)
				return ErrInvalidRefreshToken
			}
			if err := tx.Tokens().RevokeToken(ctx, old.ID, now); err != nil {
				return err
			}
		}

		tok, err = mintToken(ctx, tx, old.ClientID, old.UserID, old.Scope, s.TokenLifetime, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &tok, nil
}

func (s *TokenService) authorizationCodeGrant(ctx context.Context, clientID string, form url.Values) (*domain.Token, error) {
	l := slogx.FromContext(ctx)

	value := form.Get("code")
	if value == "" {
		return nil, ErrCodeRequired
	}
	redirectURI := form.Get("redirect_uri")

	var tok domain.Token
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		code, err := tx.AuthorizationCodes().GetAuthorizationCode(ctx, value)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidAuthCode
			}
			return err
		}

		now := s.now()
		if code.ClientID != clientID || !code.IsRedeemable(now) {
			l.Info("authorization code rejected", "code_id", code.ID)
			return ErrInvalidAuthCode
		}
		if redirectURI != "" && !SameRedirectTarget(code.RedirectURI, redirectURI) {
			return ErrInvalidAuthCode
		}

		if err := tx.AuthorizationCodes().MarkAuthorizationCodeUsed(ctx, code.ID, now); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidAuthCode
			}
			return err
		}

		tok, err = mintToken(ctx, tx, clientID, code.UserID, code.Scope, s.TokenLifetime, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &tok, nil
}

// Revoke revokes an access or refresh token owned by the authenticated
// client. Unknown tokens and tokens of other clients are not an error.
func (s *TokenService) Revoke(ctx context.Context, req RevokeRequest) error {
	l := slogx.FromContext(ctx)

	clientID, err := s.authenticateClient(ctx, req.Method, req.Secure, req.Authorization)
	if err != nil {
		return err
	}
	if req.BodyErr != nil {
		return req.BodyErr
	}
	if req.Token == "" {
		return ErrTokenRequired
	}

	tok, err := s.findToken(ctx, req.Token, req.TokenTypeHint)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}
	if tok.ClientID != clientID {
		l.Warn("client attempted to revoke a token it does not own", "client_id", clientID, "token_id", tok.ID)
		return nil
	}

	if err := s.Store.Tokens().RevokeToken(ctx, tok.ID, s.now()); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}

	recorderOrNop(s.Metrics).TokenRevoked(ctx)
	l.Info("token revoked", "client_id", clientID, "token_id", tok.ID)
	return nil
}

// Introspect reports whether token is active. Tokens owned by other
// clients are reported inactive.
func (s *TokenService) Introspect(ctx context.Context, req RevokeRequest) (*Introspection, error) {
	clientID, err := s.authenticateClient(ctx, req.Method, req.Secure, req.Authorization)
	if err != nil {
		return nil, err
	}
	if req.BodyErr != nil {
		return nil, req.BodyErr
	}
	if req.Token == "" {
		return nil, ErrTokenRequired
	}

	tok, err := s.findToken(ctx, req.Token, req.TokenTypeHint)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &Introspection{}, nil
		}
		return nil, err
	}
	if tok.ClientID != clientID {
		return &Introspection{}, nil
	}

	return &Introspection{Active: !tok.IsRevoked(s.now()), Token: tok}, nil
}

func (s *TokenService) findToken(ctx context.Context, value, hint string) (domain.Token, error) {
	lookups := []func(context.Context, string) (domain.Token, error){
		s.Store.Tokens().GetTokenByAccessToken,
		s.Store.Tokens().GetTokenByRefreshToken,
	}
	if hint == "refresh_token" {
		lookups[0], lookups[1] = lookups[1], lookups[0]
	}

	for _, lookup := range lookups {
		tok, err := lookup(ctx, value)
		if err == nil {
			return tok, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return domain.Token{}, err
		}
	}
	return domain.Token{}, store.ErrNotFound
}

// authenticateClient runs the method, transport and Basic credential checks
// shared by every client-authenticated endpoint.
func (s *TokenService) authenticateClient(ctx context.Context, method string, secure bool, authorization string) (string, error) {
	l := slogx.FromContext(ctx)

	if method != http.MethodPost {
		l.Info("rejected request due to invalid method", "method", method)
		return "", ErrMethodPostOnly
	}
	if s.RequireSecure && !secure {
		l.Info("rejected request over insecure transport")
		return "", ErrInsecureTransport
	}

	if strings.TrimSpace(authorization) == "" {
		l.Info("did not receive client credentials")
		return "", ErrMissingCredentials
	}
	clientID, secret, err := ParseBasicAuth(authorization)
	if err != nil {
		return "", ErrMalformedCredentials
	}

	if !s.clients().VerifySecret(ctx, clientID, secret) {
		l.Info("received invalid client credentials", "client_id", clientID)
		return "", ErrClientAuthFailed
	}
	return clientID, nil
}

var errMalformedBasic = errors.New("malformed basic credentials")

// ParseBasicAuth splits an "Authorization: Basic" header value into client
// id and secret.
func ParseBasicAuth(header string) (clientID, secret string, err error) {
	const prefix = "basic "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", "", errMalformedBasic
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(header[len(prefix):]))
	if err != nil {
		return "", "", errMalformedBasic
	}

	clientID, secret, ok := strings.Cut(string(decoded), ":")
	if !ok || clientID == "" {
		return "", "", errMalformedBasic
	}
	return clientID, secret, nil
}

// mintToken creates and persists a fresh access/refresh pair within tx.
func mintToken(
	ctx context.Context,
	tx store.Tx,
	clientID, userID, scope string,
	lifetime time.Duration,
	now time.Time,
) (domain.Token, error) {
	if lifetime <= 0 {
		lifetime = domain.DefaultTokenLifetime
	}

	access, err := cryptox.GenerateToken(cryptox.TokenSize384)
	if err != nil {
		return domain.Token{}, err
	}
	refresh, err := cryptox.GenerateToken(cryptox.TokenSize384)
	if err != nil {
		return domain.Token{}, err
	}

	tok := domain.Token{
		ID:           idx.New().String(),
		AccessToken:  access,
		RefreshToken: refresh,
		ClientID:     clientID,
		UserID:       userID,
		Scope:        scope,
		ExpiresIn:    lifetime,
		IssuedAt:     now,
	}
	if err := tx.Tokens().CreateToken(ctx, tok); err != nil {
		return domain.Token{}, fmt.Errorf("persist token: %w", err)
	}
	return tok, nil
}
