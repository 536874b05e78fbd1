package repository

import (
	"context"
	"database/sql"
	"time"

	"subgate/internal/subscription"
)

type SubscriptionRepository struct {
	db *sql.DB
}

func NewSubscriptionRepository(db *sql.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// ExtendExpiry advances a user's subscription expiry in its own transaction.
func (r *SubscriptionRepository) ExtendExpiry(ctx context.Context, userID int64, now time.Time, days int) (time.Time, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return time.Time{}, err
	}

	newExpiry, err := ExtendExpiryTx(ctx, tx, userID, now, days)
	if err != nil {
		tx.Rollback()
		return time.Time{}, err
	}

	if err := tx.Commit(); err != nil {
		return time.Time{}, err
	}
	return newExpiry, nil
}

// ExtendExpiryTx locks the user row, applies the stacking rule and writes the
// new expiry. The row lock makes the read-modify-write atomic, so two
// concurrent extensions for the same user both land.
func ExtendExpiryTx(ctx context.Context, tx *sql.Tx, userID int64, now time.Time, days int) (time.Time, error) {
	if days <= 0 {
		return time.Time{}, subscription.ErrInvalidDays
	}

	var current sql.NullTime
	err := tx.QueryRowContext(ctx,
		`SELECT subscription_expiry FROM users WHERE id = $1 FOR UPDATE`,
		userID).Scan(&current)
	if err != nil {
		return time.Time{}, err
	}

	var cur *time.Time
	if current.Valid {
		cur = &current.Time
	}
	newExpiry := subscription.NewExpiry(cur, now, days)

	_, err = tx.ExecContext(ctx,
		`UPDATE users SET subscription_expiry = $1 WHERE id = $2`,
		newExpiry, userID)
	if err != nil {
		return time.Time{}, err
	}
	return newExpiry, nil
}
