package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subgate/internal/user"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeUserStore struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*user.User // keyed by external ID
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[int64]*user.User)}
}

func (f *fakeUserStore) Upsert(ctx context.Context, externalID int64, username, fullName string) (*user.User, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[externalID]; ok {
		cp := *u
		return &cp, false, nil
	}
	f.nextID++
	u := &user.User{
		ID:         f.nextID,
		ExternalID: externalID,
		Username:   username,
		FullName:   fullName,
		CreatedAt:  t0,
		IsActive:   true,
	}
	f.users[externalID] = u
	cp := *u
	return &cp, true, nil
}

func (f *fakeUserStore) GetByExternalID(ctx context.Context, externalID int64) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[externalID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserStore) Count(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.users), nil
}

func (f *fakeUserStore) CountActiveSubscriptions(ctx context.Context, now time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, u := range f.users {
		if u.SubscriptionExpiry != nil && u.SubscriptionExpiry.After(now) {
			count++
		}
	}
	return count, nil
}

func TestRegisterIsIdempotent(t *testing.T) {
	store := newFakeUserStore()
	s := NewUserService(store)
	ctx := context.Background()

	first, err := s.Register(ctx, 1001, "cnc_operator", "Test User")
	require.NoError(t, err)

	second, err := s.Register(ctx, 1001, "renamed", "Someone Else")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "cnc_operator", second.Username, "repeat registration does not overwrite")

	total, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestGetUnknownUser(t *testing.T) {
	s := NewUserService(newFakeUserStore())

	_, err := s.Get(context.Background(), 404)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestSubscriptionStatus(t *testing.T) {
	store := newFakeUserStore()
	s := NewUserService(store)
	ctx := context.Background()

	_, err := s.Register(ctx, 1001, "u", "U")
	require.NoError(t, err)

	st, err := s.SubscriptionStatus(ctx, 1001, t0)
	require.NoError(t, err)
	assert.False(t, st.Active, "fresh user has no entitlement")

	expiry := t0.AddDate(0, 0, 7)
	store.users[1001].SubscriptionExpiry = &expiry

	st, err = s.SubscriptionStatus(ctx, 1001, t0)
	require.NoError(t, err)
	assert.True(t, st.Active)
	assert.Equal(t, 7, st.DaysLeft)
}

func TestStats(t *testing.T) {
	store := newFakeUserStore()
	s := NewUserService(store)
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		_, err := s.Register(ctx, i, "u", "U")
		require.NoError(t, err)
	}
	active := t0.AddDate(0, 0, 30)
	lapsed := t0.AddDate(0, 0, -1)
	store.users[1].SubscriptionExpiry = &active
	store.users[2].SubscriptionExpiry = &lapsed

	stats, err := s.Stats(ctx, t0)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.UsersTotal)
	assert.Equal(t, 1, stats.ActiveSubscriptions, "lapsed and empty expiries do not count")
}
