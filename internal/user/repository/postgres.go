package repository

import (
	"context"
	"database/sql"
	"time"

	"subgate/internal/user"
)

type PostgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

// Upsert inserts a user on first contact and is a no-op on repeated contact.
// The second return value reports whether a new row was created.
func (r *PostgresUserRepository) Upsert(ctx context.Context, externalID int64, username, fullName string) (*user.User, bool, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (external_id, username, full_name)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (external_id) DO NOTHING`,
		externalID, username, fullName)
	if err != nil {
		return nil, false, err
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return nil, false, err
	}

	u, err := r.GetByExternalID(ctx, externalID)
	if err != nil {
		return nil, false, err
	}
	return u, inserted == 1, nil
}

func (r *PostgresUserRepository) GetByExternalID(ctx context.Context, externalID int64) (*user.User, error) {
	u := &user.User{}
	var expiry sql.NullTime
	query := `SELECT id, external_id, username, full_name, created_at, subscription_expiry, is_active
	          FROM users WHERE external_id = $1`

	err := r.db.QueryRowContext(ctx, query, externalID).Scan(
		&u.ID,
		&u.ExternalID,
		&u.Username,
		&u.FullName,
		&u.CreatedAt,
		&expiry,
		&u.IsActive,
	)
	if err != nil {
		return nil, err
	}
	if expiry.Valid {
		u.SubscriptionExpiry = &expiry.Time
	}

	return u, nil
}

func (r *PostgresUserRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}

// CountActiveSubscriptions counts users whose expiry is strictly after now.
func (r *PostgresUserRepository) CountActiveSubscriptions(ctx context.Context, now time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE subscription_expiry > $1`, now).Scan(&count)
	return count, err
}
