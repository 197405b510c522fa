package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/grantd/internal/provider/domain"
)

type clientsRepo struct {
	db dbtx
}

const clientColumns = `id, name, secret_hash, revoked, revoked_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClient(row rowScanner) (domain.Client, error) {
	var (
		c                    domain.Client
		revokedAt            sql.NullInt64
		createdAt, updatedAt int64
	)
	if err := row.Scan(&c.ID, &c.Name, &c.SecretHash, &c.Revoked, &revokedAt, &createdAt, &updatedAt); err != nil {
		return domain.Client{}, err
	}
	c.RevokedAt = fromNullMillis(revokedAt)
	c.CreatedAt = fromMillis(createdAt)
	c.UpdatedAt = fromMillis(updatedAt)
	return c, nil
}

func (r *clientsRepo) GetClientByID(ctx context.Context, id string) (domain.Client, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = ?`, id)
	c, err := scanClient(row)
	if err != nil {
		return domain.Client{}, mapNotFound(err)
	}
	return c, nil
}

func (r *clientsRepo) ListClients(ctx context.Context) ([]domain.Client, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+clientColumns+` FROM clients ORDER BY created_at DESC, id DESC`)
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
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO clients (id, name, secret_hash, revoked, revoked_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.SecretHash, c.Revoked, toNullMillis(c.RevokedAt),
		toMillis(c.CreatedAt), toMillis(c.UpdatedAt),
	)
	return mapConstraint(err)
}

func (r *clientsRepo) UpdateClientSecretHash(ctx context.Context, clientID, secretHash string) error {
	return requireAffected(r.db.ExecContext(ctx,
		`UPDATE clients SET secret_hash = ?, updated_at = ? WHERE id = ?`,
		secretHash, toMillis(time.Now()), clientID,
	))
}

func (r *clientsRepo) RevokeClient(ctx context.Context, clientID string, at time.Time) error {
	return requireAffected(r.db.ExecContext(ctx,
		`UPDATE clients
		 SET revoked = 1,
		     revoked_at = COALESCE(revoked_at, ?1),
		     updated_at = CASE WHEN revoked = 0 THEN ?1 ELSE updated_at END
		 WHERE id = ?2`,
		toMillis(at), clientID,
	))
}

func (r *clientsRepo) IsEmpty(ctx context.Context) (bool, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM clients`).Scan(&count); err != nil {
		return false, err
	}
	return count == 0, nil
}
