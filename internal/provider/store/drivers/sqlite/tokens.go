package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/grantd/internal/provider/domain"
)

type tokensRepo struct {
	db dbtx
}

const tokenColumns = `id, access_token, refresh_token, client_id, user_id, scope, expires_in, issued_at, revoked, revoked_at`

func scanToken(row rowScanner) (domain.Token, error) {
	var (
		t                   domain.Token
		expiresIn, issuedAt int64
		revokedAt           sql.NullInt64
	)
	err := row.Scan(&t.ID, &t.AccessToken, &t.RefreshToken, &t.ClientID, &t.UserID, &t.Scope,
		&expiresIn, &issuedAt, &t.Revoked, &revokedAt)
	if err != nil {
		return domain.Token{}, err
	}
	t.ExpiresIn = fromSeconds(expiresIn)
	t.IssuedAt = fromMillis(issuedAt)
	t.RevokedAt = fromNullMillis(revokedAt)
	return t, nil
}

func (r *tokensRepo) CreateToken(ctx context.Context, t domain.Token) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tokens
		 (id, access_token, refresh_token, client_id, user_id, scope, expires_in, issued_at, expires_at, revoked, revoked_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.AccessToken, t.RefreshToken, t.ClientID, t.UserID, t.Scope,
		toSeconds(t.ExpiresIn), toMillis(t.IssuedAt), toMillis(t.ExpiresAt()),
		t.Revoked, toNullMillis(t.RevokedAt),
	)
	return mapConstraint(err)
}

func (r *tokensRepo) GetTokenByAccessToken(ctx context.Context, accessToken string) (domain.Token, error) {
	t, err := scanToken(r.db.QueryRowContext(ctx,
		`SELECT `+tokenColumns+` FROM tokens WHERE access_token = ?`, accessToken))
	if err != nil {
		return domain.Token{}, mapNotFound(err)
	}
	return t, nil
}

func (r *tokensRepo) GetTokenByRefreshToken(ctx context.Context, refreshToken string) (domain.Token, error) {
	t, err := scanToken(r.db.QueryRowContext(ctx,
		`SELECT `+tokenColumns+` FROM tokens WHERE refresh_token = ?`, refreshToken))
	if err != nil {
		return domain.Token{}, mapNotFound(err)
	}
	return t, nil
}

func (r *tokensRepo) RevokeToken(ctx context.Context, id string, at time.Time) error {
	return requireAffected(r.db.ExecContext(ctx,
		`UPDATE tokens SET revoked = 1, revoked_at = COALESCE(revoked_at, ?) WHERE id = ?`,
		toMillis(at), id,
	))
}

func (r *tokensRepo) DeleteTokensExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tokens WHERE expires_at < ?`, toMillis(cutoff))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
