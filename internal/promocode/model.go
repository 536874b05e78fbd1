package promocode

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound        = errors.New("promo code not found")
	ErrInactive        = errors.New("promo code is disabled")
	ErrExpired         = errors.New("promo code has expired")
	ErrExhausted       = errors.New("promo code has no uses left")
	ErrAlreadyUsed     = errors.New("promo code already used by this user")
	ErrCodeExists      = errors.New("promo code already exists")
	ErrInvalidArgument = errors.New("days and max uses must be positive")
)

type PromoCode struct {
	ID        int64      `json:"id"`
	Code      string     `json:"code"`       // stored normalized upper-case
	Days      int        `json:"days"`       // subscription days granted per use
	MaxUses   int        `json:"max_uses"`
	UsedCount int        `json:"used_count"`
	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at"`
}

type PromoCodeUsage struct {
	ID          int64     `json:"id"`
	PromoCodeID int64     `json:"promo_code_id"`
	UserID      int64     `json:"user_id"`
	UsedAt      time.Time `json:"used_at"`
}

// Normalize maps a user-submitted code to its canonical stored form.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Check reports why the code cannot be redeemed at the given instant, or nil.
func (p *PromoCode) Check(now time.Time) error {
	if !p.IsActive {
		return ErrInactive
	}
	if p.ExpiresAt != nil && now.After(*p.ExpiresAt) {
		return ErrExpired
	}
	if p.UsedCount >= p.MaxUses {
		return ErrExhausted
	}
	return nil
}
