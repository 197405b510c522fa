package postgres

import (
	"context"

	"github.com/aussiebroadwan/grantd/internal/provider/domain"
)

type redirectURIsRepo struct {
	db querier
}

func (r *redirectURIsRepo) CreateRedirectURI(ctx context.Context, u domain.RedirectURI) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO redirect_uris (id, client_id, uri, created_at) VALUES ($1, $2, $3, $4)`,
		u.ID, u.ClientID, u.URI, u.CreatedAt,
	)
	return mapConstraint(err)
}

func (r *redirectURIsRepo) ListRedirectURIs(ctx context.Context, clientID string) ([]domain.RedirectURI, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, client_id, uri, created_at FROM redirect_uris
		WHERE client_id = $1 ORDER BY created_at, id`,
		clientID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RedirectURI
	for rows.Next() {
		var u domain.RedirectURI
		if err := rows.Scan(&u.ID, &u.ClientID, &u.URI, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *redirectURIsRepo) DeleteRedirectURI(ctx context.Context, clientID, uri string) error {
	return requireAffected(r.db.Exec(ctx, `
		DELETE FROM redirect_uris WHERE client_id = $1 AND uri = $2`,
		clientID, uri,
	))
}
