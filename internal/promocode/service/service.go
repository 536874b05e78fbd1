package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"subgate/internal/metrics"
	"subgate/internal/promocode"
	"subgate/internal/user"
	userservice "subgate/internal/user/service"
)

type PromoCodeRepository interface {
	Create(ctx context.Context, pc *promocode.PromoCode) error
	GetByCode(ctx context.Context, code string) (*promocode.PromoCode, error)
	GetAll(ctx context.Context) ([]*promocode.PromoCode, error)
	HasUserUsed(ctx context.Context, userID, promoCodeID int64) (bool, error)
	Redeem(ctx context.Context, userID int64, code string, now time.Time) (*promocode.PromoCode, time.Time, error)
}

type UserRepository interface {
	GetByExternalID(ctx context.Context, externalID int64) (*user.User, error)
}

type Service struct {
	repo  PromoCodeRepository
	users UserRepository
}

func NewService(repo PromoCodeRepository, users UserRepository) *Service {
	return &Service{repo: repo, users: users}
}

// Redemption is the outcome of a successful redeem.
type Redemption struct {
	Code      string    `json:"code"`
	Days      int       `json:"days"`
	NewExpiry time.Time `json:"new_expiry"`
}

// Create registers a new promo code. The code is stored upper-case; creating
// the same code twice fails with ErrCodeExists.
func (s *Service) Create(ctx context.Context, code string, days, maxUses int, expiresAt *time.Time) (*promocode.PromoCode, error) {
	if days <= 0 || maxUses <= 0 {
		return nil, promocode.ErrInvalidArgument
	}

	pc := &promocode.PromoCode{
		Code:      promocode.Normalize(code),
		Days:      days,
		MaxUses:   maxUses,
		UsedCount: 0,
		IsActive:  true,
		ExpiresAt: expiresAt,
	}

	if err := s.repo.Create(ctx, pc); err != nil {
		return nil, err
	}
	return pc, nil
}

// Validate is a read-only check. It is never a reservation: a code that
// validates now can still be rejected at redeem time.
func (s *Service) Validate(ctx context.Context, code string, now time.Time) (*promocode.PromoCode, error) {
	pc, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if err := pc.Check(now); err != nil {
		return nil, err
	}
	return pc, nil
}

// Redeem consumes one use of the code for the user identified by externalID
// and extends their subscription. The storage layer performs the whole
// redemption atomically; this method only resolves the user and records
// metrics.
func (s *Service) Redeem(ctx context.Context, externalID int64, code string, now time.Time) (*Redemption, error) {
	u, err := s.users.GetByExternalID(ctx, externalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, userservice.ErrUserNotFound
		}
		return nil, err
	}

	pc, newExpiry, err := s.repo.Redeem(ctx, u.ID, code, now)
	if err != nil {
		metrics.PromoRedemptionsTotal.WithLabelValues(redeemOutcome(err)).Inc()
		return nil, err
	}

	metrics.PromoRedemptionsTotal.WithLabelValues("redeemed").Inc()
	metrics.SubscriptionDaysGranted.WithLabelValues("promo").Add(float64(pc.Days))

	return &Redemption{Code: pc.Code, Days: pc.Days, NewExpiry: newExpiry}, nil
}

// HasRedeemed is a pre-flight convenience for the presentation layer. The
// authoritative check is the unique constraint inside Redeem.
func (s *Service) HasRedeemed(ctx context.Context, externalID int64, code string) (bool, error) {
	u, err := s.users.GetByExternalID(ctx, externalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, userservice.ErrUserNotFound
		}
		return false, err
	}

	pc, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, promocode.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	return s.repo.HasUserUsed(ctx, u.ID, pc.ID)
}

// List returns all promo codes, most recently created first.
func (s *Service) List(ctx context.Context) ([]*promocode.PromoCode, error) {
	return s.repo.GetAll(ctx)
}

func redeemOutcome(err error) string {
	switch {
	case errors.Is(err, promocode.ErrNotFound):
		return "not_found"
	case errors.Is(err, promocode.ErrInactive):
		return "inactive"
	case errors.Is(err, promocode.ErrExpired):
		return "expired"
	case errors.Is(err, promocode.ErrExhausted):
		return "exhausted"
	case errors.Is(err, promocode.ErrAlreadyUsed):
		return "already_used"
	default:
		return "error"
	}
}
