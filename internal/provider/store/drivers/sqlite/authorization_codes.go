package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/grantd/internal/provider/domain"
)

type authorizationCodesRepo struct {
	db dbtx
}

func (r *authorizationCodesRepo) CreateAuthorizationCode(ctx context.Context, code domain.AuthorizationCode) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO authorization_codes
		 (id, code, client_id, user_id, redirect_uri, scope, state, expires_in, expires_at, revoked, used_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		code.ID, code.Code, code.ClientID, code.UserID, code.RedirectURI, code.Scope, code.State,
		toSeconds(code.ExpiresIn), toMillis(code.CreatedAt.Add(code.ExpiresIn)),
		code.Revoked, toNullMillis(code.UsedAt), toMillis(code.CreatedAt),
	)
	return mapConstraint(err)
}

func (r *authorizationCodesRepo) GetAuthorizationCode(ctx context.Context, code string) (domain.AuthorizationCode, error) {
	var (
		c                    domain.AuthorizationCode
		expiresIn, createdAt int64
		usedAt               sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, code, client_id, user_id, redirect_uri, scope, state, expires_in, revoked, used_at, created_at
		 FROM authorization_codes WHERE code = ?`,
		code,
	).Scan(&c.ID, &c.Code, &c.ClientID, &c.UserID, &c.RedirectURI, &c.Scope, &c.State,
		&expiresIn, &c.Revoked, &usedAt, &createdAt)
	if err != nil {
		return domain.AuthorizationCode{}, mapNotFound(err)
	}
	c.ExpiresIn = fromSeconds(expiresIn)
	c.UsedAt = fromNullMillis(usedAt)
	c.CreatedAt = fromMillis(createdAt)
	return c, nil
}

func (r *authorizationCodesRepo) MarkAuthorizationCodeUsed(ctx context.Context, id string, at time.Time) error {
	return requireAffected(r.db.ExecContext(ctx,
		`UPDATE authorization_codes SET used_at = ? WHERE id = ? AND used_at IS NULL`,
		toMillis(at), id,
	))
}

func (r *authorizationCodesRepo) DeleteStaleAuthorizationCodes(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM authorization_codes WHERE used_at IS NOT NULL OR revoked = 1 OR expires_at <= ?`,
		toMillis(now),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
