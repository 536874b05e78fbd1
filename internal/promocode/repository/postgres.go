package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"subgate/internal/promocode"
	subrepository "subgate/internal/subscription/repository"
)

const uniqueViolation = "23505"

type PostgresPromoCodeRepository struct {
	db *sql.DB
}

func NewPostgresPromoCodeRepository(db *sql.DB) *PostgresPromoCodeRepository {
	return &PostgresPromoCodeRepository{db: db}
}

func (r *PostgresPromoCodeRepository) Create(ctx context.Context, pc *promocode.PromoCode) error {
	pc.Code = promocode.Normalize(pc.Code)
	query := `
        INSERT INTO promo_codes (code, days, max_uses, is_active, expires_at)
        VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query, pc.Code, pc.Days, pc.MaxUses, pc.IsActive, pc.ExpiresAt).
		Scan(&pc.ID, &pc.CreatedAt)
	if isUniqueViolation(err) {
		return promocode.ErrCodeExists
	}
	return err
}

func (r *PostgresPromoCodeRepository) GetByCode(ctx context.Context, code string) (*promocode.PromoCode, error) {
	pc := &promocode.PromoCode{}
	query := `SELECT id, code, days, max_uses, used_count, is_active, created_at, expires_at
              FROM promo_codes WHERE code = $1`

	err := r.db.QueryRowContext(ctx, query, promocode.Normalize(code)).Scan(
		&pc.ID,
		&pc.Code,
		&pc.Days,
		&pc.MaxUses,
		&pc.UsedCount,
		&pc.IsActive,
		&pc.CreatedAt,
		&pc.ExpiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, promocode.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return pc, nil
}

func (r *PostgresPromoCodeRepository) GetAll(ctx context.Context) ([]*promocode.PromoCode, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT id, code, days, max_uses, used_count, is_active, created_at, expires_at
        FROM promo_codes ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var promoCodes []*promocode.PromoCode
	for rows.Next() {
		pc := &promocode.PromoCode{}
		err := rows.Scan(
			&pc.ID,
			&pc.Code,
			&pc.Days,
			&pc.MaxUses,
			&pc.UsedCount,
			&pc.IsActive,
			&pc.CreatedAt,
			&pc.ExpiresAt,
		)
		if err != nil {
			return nil, err
		}
		promoCodes = append(promoCodes, pc)
	}

	return promoCodes, rows.Err()
}

func (r *PostgresPromoCodeRepository) HasUserUsed(ctx context.Context, userID, promoCodeID int64) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM promo_code_usages WHERE user_id = $1 AND promo_code_id = $2)`
	err := r.db.QueryRowContext(ctx, query, userID, promoCodeID).Scan(&exists)
	return exists, err
}

// Redeem consumes one use of the code for the user and extends the user's
// subscription, all in one transaction. Validity is re-checked against the
// locked row, the counter increment is gated by used_count < max_uses, and
// the usage insert is backed by the (promo_code_id, user_id) unique
// constraint. A failure at any step rolls back every effect.
func (r *PostgresPromoCodeRepository) Redeem(ctx context.Context, userID int64, code string, now time.Time) (*promocode.PromoCode, time.Time, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, time.Time{}, err
	}

	txRepo := newTxPromoCodeRepository(tx)

	pc, err := txRepo.GetByCodeForUpdate(ctx, code)
	if err != nil {
		tx.Rollback()
		return nil, time.Time{}, err
	}

	// A repeat redemption is reported as such even when the code has since
	// run out of uses or expired.
	used, err := txRepo.HasUserUsed(ctx, userID, pc.ID)
	if err != nil {
		tx.Rollback()
		return nil, time.Time{}, err
	}
	if used {
		tx.Rollback()
		return nil, time.Time{}, promocode.ErrAlreadyUsed
	}

	if err := pc.Check(now); err != nil {
		tx.Rollback()
		return nil, time.Time{}, err
	}

	if err := txRepo.ConsumeUse(ctx, pc.ID); err != nil {
		tx.Rollback()
		return nil, time.Time{}, err
	}

	if err := txRepo.RecordUsage(ctx, userID, pc.ID, now); err != nil {
		tx.Rollback()
		return nil, time.Time{}, err
	}

	newExpiry, err := subrepository.ExtendExpiryTx(ctx, tx, userID, now, pc.Days)
	if err != nil {
		tx.Rollback()
		return nil, time.Time{}, err
	}

	if err := tx.Commit(); err != nil {
		return nil, time.Time{}, err
	}

	pc.UsedCount++
	return pc, newExpiry, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
