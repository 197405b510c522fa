package postgres

import (
	"context"
	"time"

	"github.com/aussiebroadwan/grantd/internal/provider/domain"
)

type authorizationCodesRepo struct {
	db querier
}

func (r *authorizationCodesRepo) CreateAuthorizationCode(ctx context.Context, code domain.AuthorizationCode) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO authorization_codes
		(id, code, client_id, user_id, redirect_uri, scope, state, expires_in, expires_at, revoked, used_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		code.ID, code.Code, code.ClientID, code.UserID, code.RedirectURI, code.Scope, code.State,
		toSeconds(code.ExpiresIn), code.CreatedAt.Add(code.ExpiresIn), code.Revoked, code.UsedAt, code.CreatedAt,
	)
	return mapConstraint(err)
}

func (r *authorizationCodesRepo) GetAuthorizationCode(ctx context.Context, code string) (domain.AuthorizationCode, error) {
	var (
		c         domain.AuthorizationCode
		expiresIn int64
	)
	err := r.db.QueryRow(ctx, `
		SELECT id, code, client_id, user_id, redirect_uri, scope, state, expires_in, revoked, used_at, created_at
		FROM authorization_codes WHERE code = $1`,
		code,
	).Scan(&c.ID, &c.Code, &c.ClientID, &c.UserID, &c.RedirectURI, &c.Scope, &c.State,
		&expiresIn, &c.Revoked, &c.UsedAt, &c.CreatedAt)
	if err != nil {
		return domain.AuthorizationCode{}, mapNotFound(err)
	}
	c.ExpiresIn = fromSeconds(expiresIn)
	return c, nil
}

func (r *authorizationCodesRepo) MarkAuthorizationCodeUsed(ctx context.Context, id string, at time.Time) error {
	return requireAffected(r.db.Exec(ctx, `
		UPDATE authorization_codes SET used_at = $1 WHERE id = $2 AND used_at IS NULL`,
		at, id,
	))
}

func (r *authorizationCodesRepo) DeleteStaleAuthorizationCodes(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM authorization_codes WHERE used_at IS NOT NULL OR revoked OR expires_at <= $1`,
		now,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
