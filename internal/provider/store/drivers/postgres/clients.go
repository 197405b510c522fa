package postgres

import (
	"context"
	"time"

	"github.com/aussiebroadwan/grantd/internal/provider/domain"

	"github.com/jackc/pgx/v5"
)

type clientsRepo struct {
	db querier
}

const clientColumns = `id, name, secret_hash, revoked, revoked_at, created_at, updated_at`

func scanClient(row pgx.Row) (domain.Client, error) {
	var c domain.Client
	err := row.Scan(&c.ID, &c.Name, &c.SecretHash, &c.Revoked, &c.RevokedAt, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r *clientsRepo) GetClientByID(ctx context.Context, id string) (domain.Client, error) {
	c, err := scanClient(r.db.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = $1`, id))
	if err != nil {
		return domain.Client{}, mapNotFound(err)
	}
	return c, nil
}

func (r *clientsRepo) ListClients(ctx context.Context) ([]domain.Client, error) {
	rows, err := r.db.Query(ctx, `SELECT `+clientColumns+` FROM clients ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []domain.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

func (r *clientsRepo) CreateClient(ctx context.Context, c domain.Client) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO clients (id, name, secret_hash, revoked, revoked_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.Name, c.SecretHash, c.Revoked, c.RevokedAt, c.CreatedAt, c.UpdatedAt,
	)
	return mapConstraint(err)
}

func (r *clientsRepo) UpdateClientSecretHash(ctx context.Context, clientID, secretHash string) error {
	return requireAffected(r.db.Exec(ctx, `
		UPDATE clients SET secret_hash = $1, updated_at = NOW() WHERE id = $2`,
		secretHash, clientID,
	))
}

func (r *clientsRepo) RevokeClient(ctx context.Context, clientID string, at time.Time) error {
	return requireAffected(r.db.Exec(ctx, `
		UPDATE clients
		SET revoked = TRUE,
		    revoked_at = COALESCE(revoked_at, $1),
		    updated_at = CASE WHEN revoked THEN updated_at ELSE $1 END
		WHERE id = $2`,
		at, clientID,
	))
}

func (r *clientsRepo) IsEmpty(ctx context.Context) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM clients)`).Scan(&exists); err != nil {
		return false, err
	}
	return !exists, nil
}
