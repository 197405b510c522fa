package postgres

import (
	"context"
	"time"

	"github.com/aussiebroadwan/grantd/internal/provider/domain"

	"github.com/jackc/pgx/v5"
)

type tokensRepo struct {
	db querier
}

const tokenColumns = `id, access_token, refresh_token, client_id, user_id, scope, expires_in, issued_at, revoked, revoked_at`

func scanToken(row pgx.Row) (domain.Token, error) {
	var (
		t         domain.Token
		expiresIn int64
	)
	err := row.Scan(&t.ID, &t.AccessToken, &t.RefreshToken, &t.ClientID, &t.UserID, &t.Scope,
		&expiresIn, &t.IssuedAt, &t.Revoked, &t.RevokedAt)
	if err != nil {
		return domain.Token{}, err
	}
	t.ExpiresIn = fromSeconds(expiresIn)
	return t, nil
}

func (r *tokensRepo) CreateToken(ctx context.Context, t domain.Token) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO tokens
		(id, access_token, refresh_token, client_id, user_id, scope, expires_in, issued_at, expires_at, revoked, revoked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		t.ID, t.AccessToken, t.RefreshToken, t.ClientID, t.UserID, t.Scope,
		toSeconds(t.ExpiresIn), t.IssuedAt, t.ExpiresAt(), t.Revoked, t.RevokedAt,
	)
	return mapConstraint(err)
}

func (r *tokensRepo) GetTokenByAccessToken(ctx context.Context, accessToken string) (domain.Token, error) {
	t, err := scanToken(r.db.QueryRow(ctx, `SELECT `+tokenColumns+` FROM tokens WHERE access_token = $1`, accessToken))
	if err != nil {
		return domain.Token{}, mapNotFound(err)
	}
	return t, nil
}

func (r *tokensRepo) GetTokenByRefreshToken(ctx context.Context, refreshToken string) (domain.Token, error) {
	t, err := scanToken(r.db.QueryRow(ctx, `SELECT `+tokenColumns+` FROM tokens WHERE refresh_token = $1`, refreshToken))
	if err != nil {
		return domain.Token{}, mapNotFound(err)
	}
	return t, nil
}

func (r *tokensRepo) RevokeToken(ctx context.Context, id string, at time.Time) error {
	return requireAffected(r.db.Exec(ctx, `
		UPDATE tokens SET revoked = TRUE, revoked_at = COALESCE(revoked_at, $1) WHERE id = $2`,
		at, id,
	))
}

func (r *tokensRepo) DeleteTokensExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM tokens WHERE expires_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
