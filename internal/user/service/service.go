package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"subgate/internal/metrics"
	"subgate/internal/subscription"
	"subgate/internal/user"
)

var ErrUserNotFound = errors.New("user not found")

type UserRepository interface {
	Upsert(ctx context.Context, externalID int64, username, fullName string) (*user.User, bool, error)
	GetByExternalID(ctx context.Context, externalID int64) (*user.User, error)
	Count(ctx context.Context) (int, error)
	CountActiveSubscriptions(ctx context.Context, now time.Time) (int, error)
}

type Stats struct {
	UsersTotal          int `json:"users_total"`
	ActiveSubscriptions int `json:"active_subscriptions"`
}

type UserService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo}
}

// Register records a user on first contact. Repeated registrations for the
// same external ID return the existing row untouched.
func (s *UserService) Register(ctx context.Context, externalID int64, username, fullName string) (*user.User, error) {
	u, created, err := s.repo.Upsert(ctx, externalID, username, fullName)
	if err != nil {
		return nil, err
	}
	if created {
		metrics.UsersRegisteredTotal.Inc()
	}
	return u, nil
}

func (s *UserService) Get(ctx context.Context, externalID int64) (*user.User, error) {
	u, err := s.repo.GetByExternalID(ctx, externalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

// SubscriptionStatus reports the entitlement of a user at the given instant.
func (s *UserService) SubscriptionStatus(ctx context.Context, externalID int64, now time.Time) (subscription.Status, error) {
	u, err := s.Get(ctx, externalID)
	if err != nil {
		return subscription.Status{}, err
	}
	return subscription.StatusAt(u.SubscriptionExpiry, now), nil
}

func (s *UserService) Stats(ctx context.Context, now time.Time) (Stats, error) {
	total, err := s.repo.Count(ctx)
	if err != nil {
		return Stats{}, err
	}
	active, err := s.repo.CountActiveSubscriptions(ctx, now)
	if err != nil {
		return Stats{}, err
	}
	return Stats{UsersTotal: total, ActiveSubscriptions: active}, nil
}
