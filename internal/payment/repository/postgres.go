package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"subgate/internal/payment"
	subrepository "subgate/internal/subscription/repository"
)

const uniqueViolation = "23505"

type PostgresPaymentRepository struct {
	db *sql.DB
}

func NewPostgresPaymentRepository(db *sql.DB) *PostgresPaymentRepository {
	return &PostgresPaymentRepository{db: db}
}

// Apply records the payment and extends the user's subscription in one
// transaction. The unique constraint on invoice_payload makes duplicate
// delivery of the same payment notification a no-op.
func (r *PostgresPaymentRepository) Apply(ctx context.Context, externalID int64, p *payment.Payment, now time.Time) (time.Time, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return time.Time{}, err
	}

	var userID int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM users WHERE external_id = $1`, externalID).Scan(&userID)
	if err != nil {
		tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, payment.ErrUnknownUser
		}
		return time.Time{}, err
	}

	err = tx.QueryRowContext(ctx,
		`INSERT INTO payments (user_id, amount, days, currency, invoice_payload, paid_at)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		userID, p.Amount, p.Days, p.Currency, p.InvoicePayload, now).Scan(&p.ID)
	if err != nil {
		tx.Rollback()
		if isUniqueViolation(err) {
			return time.Time{}, payment.ErrDuplicatePayment
		}
		return time.Time{}, err
	}
	p.UserID = userID
	p.PaidAt = now

	newExpiry, err := subrepository.ExtendExpiryTx(ctx, tx, userID, now, p.Days)
	if err != nil {
		tx.Rollback()
		return time.Time{}, err
	}

	if err := tx.Commit(); err != nil {
		return time.Time{}, err
	}
	return newExpiry, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
