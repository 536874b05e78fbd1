package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"subgate/internal/promocode"
)

// txPromoCodeRepository scopes promo code operations to one transaction.
type txPromoCodeRepository struct {
	tx *sql.Tx
}

func newTxPromoCodeRepository(tx *sql.Tx) *txPromoCodeRepository {
	return &txPromoCodeRepository{tx: tx}
}

// GetByCodeForUpdate locks the promo row so that concurrent redeemers of the
// same code serialize on it.
func (r *txPromoCodeRepository) GetByCodeForUpdate(ctx context.Context, code string) (*promocode.PromoCode, error) {
	pc := &promocode.PromoCode{}
	query := `SELECT id, code, days, max_uses, used_count, is_active, created_at, expires_at
              FROM promo_codes WHERE code = $1 FOR UPDATE`

	err := r.tx.QueryRowContext(ctx, query, promocode.Normalize(code)).Scan(
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

func (r *txPromoCodeRepository) HasUserUsed(ctx context.Context, userID, promoCodeID int64) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM promo_code_usages WHERE user_id = $1 AND promo_code_id = $2)`
	err := r.tx.QueryRowContext(ctx, query, userID, promoCodeID).Scan(&exists)
	return exists, err
}

// ConsumeUse increments used_count only while a slot remains. An unaffected
// row means the last slot was taken by a concurrent transaction.
func (r *txPromoCodeRepository) ConsumeUse(ctx context.Context, promoCodeID int64) error {
	res, err := r.tx.ExecContext(ctx,
		`UPDATE promo_codes SET used_count = used_count + 1
		 WHERE id = $1 AND used_count < max_uses`,
		promoCodeID)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return promocode.ErrExhausted
	}
	return nil
}

// RecordUsage inserts the usage row; the unique constraint on
// (promo_code_id, user_id) is the backstop against double redemption.
func (r *txPromoCodeRepository) RecordUsage(ctx context.Context, userID, promoCodeID int64, now time.Time) error {
	_, err := r.tx.ExecContext(ctx,
		`INSERT INTO promo_code_usages (user_id, promo_code_id, used_at) VALUES ($1, $2, $3)`,
		userID, promoCodeID, now)
	if isUniqueViolation(err) {
		return promocode.ErrAlreadyUsed
	}
	return err
}
