package sqlite

import (
	"context"

	"github.com/aussiebroadwan/grantd/internal/provider/domain"
)

type redirectURIsRepo struct {
	db dbtx
}

func (r *redirectURIsRepo) CreateRedirectURI(ctx context.Context, u domain.RedirectURI) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO redirect_uris (id, client_id, uri, created_at) VALUES (?, ?, ?, ?)`,
		u.ID, u.ClientID, u.URI, toMillis(u.CreatedAt),
	)
	return mapConstraint(err)
}

func (r *redirectURIsRepo) ListRedirectURIs(ctx context.Context, clientID string) ([]domain.RedirectURI, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, client_id, uri, created_at FROM redirect_uris WHERE client_id = ? ORDER BY created_at, id`,
		clientID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RedirectURI
	for rows.Next() {
		var (
			u         domain.RedirectURI
			createdAt int64
		)
		if err := rows.Scan(&u.ID, &u.ClientID, &u.URI, &createdAt); err != nil {
			return nil, err
		}
		u.CreatedAt = fromMillis(createdAt)
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *redirectURIsRepo) DeleteRedirectURI(ctx context.Context, clientID, uri string) error {
	return requireAffected(r.db.ExecContext(ctx,
		`DELETE FROM redirect_uris WHERE client_id = ? AND uri = ?`,
		clientID, uri,
	))
}
