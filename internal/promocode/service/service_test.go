package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subgate/internal/promocode"
	"subgate/internal/subscription"
	"subgate/internal/user"
	userservice "subgate/internal/user/service"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// fakeStore mimics the Postgres repository, including the conditional
// used_count update and the uniqueness constraint on (promo code, user).
// All of a redemption's checks and writes happen under one lock, matching
// the serialization the row lock provides in the real store.
type fakeStore struct {
	mu       sync.Mutex
	nextID   int64
	codes    map[string]*promocode.PromoCode // keyed by normalized code
	usages   map[[2]int64]bool               // (promoCodeID, userID)
	users    map[int64]*user.User            // keyed by external ID
	expiries map[int64]*time.Time            // keyed by internal user ID
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		codes:    make(map[string]*promocode.PromoCode),
		usages:   make(map[[2]int64]bool),
		users:    make(map[int64]*user.User),
		expiries: make(map[int64]*time.Time),
	}
}

func (f *fakeStore) addUser(externalID int64) *user.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	u := &user.User{ID: f.nextID, ExternalID: externalID, CreatedAt: t0, IsActive: true}
	f.users[externalID] = u
	return u
}

func (f *fakeStore) setExpiry(internalID int64, expiry time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expiries[internalID] = &expiry
}

func (f *fakeStore) GetByExternalID(ctx context.Context, externalID int64) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[externalID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

func (f *fakeStore) Create(ctx context.Context, pc *promocode.PromoCode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.codes[pc.Code]; ok {
		return promocode.ErrCodeExists
	}
	f.nextID++
	pc.ID = f.nextID
	pc.CreatedAt = time.Now()
	f.codes[pc.Code] = pc
	return nil
}

func (f *fakeStore) GetByCode(ctx context.Context, code string) (*promocode.PromoCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pc, ok := f.codes[promocode.Normalize(code)]
	if !ok {
		return nil, promocode.ErrNotFound
	}
	cp := *pc
	return &cp, nil
}

func (f *fakeStore) GetAll(ctx context.Context) ([]*promocode.PromoCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*promocode.PromoCode
	for _, pc := range f.codes {
		cp := *pc
		out = append(out, &cp)
	}
	// Most recently created first, as the SQL repository orders it.
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].CreatedAt.After(out[i].CreatedAt) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func (f *fakeStore) HasUserUsed(ctx context.Context, userID, promoCodeID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.usages[[2]int64{promoCodeID, userID}], nil
}

func (f *fakeStore) Redeem(ctx context.Context, userID int64, code string, now time.Time) (*promocode.PromoCode, time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	pc, ok := f.codes[promocode.Normalize(code)]
	if !ok {
		return nil, time.Time{}, promocode.ErrNotFound
	}
	if f.usages[[2]int64{pc.ID, userID}] {
		return nil, time.Time{}, promocode.ErrAlreadyUsed
	}
	if err := pc.Check(now); err != nil {
		return nil, time.Time{}, err
	}
	if pc.UsedCount >= pc.MaxUses {
		return nil, time.Time{}, promocode.ErrExhausted
	}

	pc.UsedCount++
	f.usages[[2]int64{pc.ID, userID}] = true
	newExpiry := subscription.NewExpiry(f.expiries[userID], now, pc.Days)
	f.expiries[userID] = &newExpiry

	cp := *pc
	return &cp, newExpiry, nil
}

func newTestService(t *testing.T) (*Service, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	return NewService(store, store), store
}

func TestCreateAndList(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	pc, err := s.Create(ctx, "abc", 30, 5, nil)
	require.NoError(t, err)
	assert.Equal(t, "ABC", pc.Code, "codes are stored upper-case")

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 30, list[0].Days)
	assert.Equal(t, 5, list[0].MaxUses)
	assert.Equal(t, 0, list[0].UsedCount)
}

func TestCreateDuplicateCode(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	_, err := s.Create(ctx, "BONUS7", 7, 50, nil)
	require.NoError(t, err)

	_, err = s.Create(ctx, "bonus7", 14, 1, nil)
	assert.ErrorIs(t, err, promocode.ErrCodeExists, "uniqueness is case-insensitive")
}

func TestCreateInvalidArguments(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	_, err := s.Create(ctx, "X", 0, 1, nil)
	assert.ErrorIs(t, err, promocode.ErrInvalidArgument)

	_, err = s.Create(ctx, "X", 7, -1, nil)
	assert.ErrorIs(t, err, promocode.ErrInvalidArgument)
}

func TestValidateReasons(t *testing.T) {
	s, store := newTestService(t)
	ctx := context.Background()

	_, err := s.Validate(ctx, "NOPE", t0)
	assert.ErrorIs(t, err, promocode.ErrNotFound)

	pc, err := s.Create(ctx, "OK7", 7, 2, nil)
	require.NoError(t, err)

	got, err := s.Validate(ctx, "ok7", t0)
	require.NoError(t, err)
	assert.Equal(t, 7, got.Days)

	store.codes[pc.Code].IsActive = false
	_, err = s.Validate(ctx, "OK7", t0)
	assert.ErrorIs(t, err, promocode.ErrInactive)
	store.codes[pc.Code].IsActive = true

	past := t0.Add(-time.Hour)
	store.codes[pc.Code].ExpiresAt = &past
	_, err = s.Validate(ctx, "OK7", t0)
	assert.ErrorIs(t, err, promocode.ErrExpired)
	store.codes[pc.Code].ExpiresAt = nil

	store.codes[pc.Code].UsedCount = 2
	_, err = s.Validate(ctx, "OK7", t0)
	assert.ErrorIs(t, err, promocode.ErrExhausted)
}

func TestRedeemGrantsSubscription(t *testing.T) {
	s, store := newTestService(t)
	ctx := context.Background()
	u := store.addUser(1001)

	_, err := s.Create(ctx, "WELCOME7", 7, 1, nil)
	require.NoError(t, err)

	red, err := s.Redeem(ctx, 1001, "welcome7", t0)
	require.NoError(t, err)
	assert.Equal(t, 7, red.Days)
	assert.Equal(t, t0.AddDate(0, 0, 7), red.NewExpiry)

	st := subscription.StatusAt(store.expiries[u.ID], t0)
	assert.True(t, st.Active)
	assert.Equal(t, t0.AddDate(0, 0, 7), st.Expiry)
}

func TestRedeemTwiceSameUser(t *testing.T) {
	s, store := newTestService(t)
	ctx := context.Background()
	store.addUser(1001)

	_, err := s.Create(ctx, "WELCOME7", 7, 1, nil)
	require.NoError(t, err)

	_, err = s.Redeem(ctx, 1001, "WELCOME7", t0)
	require.NoError(t, err)

	// AlreadyUsed wins over Exhausted even though the single slot is gone.
	_, err = s.Redeem(ctx, 1001, "WELCOME7", t0.Add(time.Hour))
	assert.ErrorIs(t, err, promocode.ErrAlreadyUsed)
}

func TestRedeemStacksOnActiveSubscription(t *testing.T) {
	s, store := newTestService(t)
	ctx := context.Background()
	u := store.addUser(1001)
	store.setExpiry(u.ID, t0.AddDate(0, 0, 10))

	_, err := s.Create(ctx, "STACK30", 30, 1, nil)
	require.NoError(t, err)

	red, err := s.Redeem(ctx, 1001, "STACK30", t0)
	require.NoError(t, err)
	assert.Equal(t, t0.AddDate(0, 0, 40), red.NewExpiry)
}

func TestRedeemUnknownUser(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	_, err := s.Create(ctx, "X7", 7, 1, nil)
	require.NoError(t, err)

	_, err = s.Redeem(ctx, 42, "X7", t0)
	assert.ErrorIs(t, err, userservice.ErrUserNotFound)
}

func TestRedeemExhaustsAfterMaxUses(t *testing.T) {
	s, store := newTestService(t)
	ctx := context.Background()

	const maxUses = 3
	_, err := s.Create(ctx, "LIM3", 5, maxUses, nil)
	require.NoError(t, err)

	for i := int64(1); i <= maxUses; i++ {
		store.addUser(i)
		_, err := s.Redeem(ctx, i, "LIM3", t0)
		require.NoError(t, err, "user %d should get a slot", i)
	}

	store.addUser(maxUses + 1)
	_, err = s.Redeem(ctx, maxUses+1, "LIM3", t0)
	assert.ErrorIs(t, err, promocode.ErrExhausted)

	pc, err := s.repo.GetByCode(ctx, "LIM3")
	require.NoError(t, err)
	assert.Equal(t, maxUses, pc.UsedCount)
}

func TestConcurrentLastSlot(t *testing.T) {
	s, store := newTestService(t)
	ctx := context.Background()
	store.addUser(1)
	store.addUser(2)

	_, err := s.Create(ctx, "LIM1", 3, 1, nil)
	require.NoError(t, err)

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.Redeem(ctx, int64(i+1), "LIM1", t0)
		}(i)
	}
	wg.Wait()

	var redeemed, exhausted int
	for _, err := range errs {
		switch {
		case err == nil:
			redeemed++
		case assert.ErrorIs(t, err, promocode.ErrExhausted):
			exhausted++
		}
	}
	assert.Equal(t, 1, redeemed, "exactly one redeemer wins the last slot")
	assert.Equal(t, 1, exhausted)

	pc, err := s.repo.GetByCode(ctx, "LIM1")
	require.NoError(t, err)
	assert.Equal(t, 1, pc.UsedCount)
}

func TestConcurrentDoubleSubmitSameUser(t *testing.T) {
	s, store := newTestService(t)
	ctx := context.Background()
	store.addUser(1)

	_, err := s.Create(ctx, "DOUBLE", 3, 10, nil)
	require.NoError(t, err)

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.Redeem(ctx, 1, "DOUBLE", t0)
		}(i)
	}
	wg.Wait()

	var redeemed, alreadyUsed int
	for _, err := range errs {
		switch {
		case err == nil:
			redeemed++
		case assert.ErrorIs(t, err, promocode.ErrAlreadyUsed):
			alreadyUsed++
		}
	}
	assert.Equal(t, 1, redeemed)
	assert.Equal(t, 1, alreadyUsed)

	pc, err := s.repo.GetByCode(ctx, "DOUBLE")
	require.NoError(t, err)
	assert.Equal(t, 1, pc.UsedCount, "the duplicate must not consume a slot")
}

func TestHasRedeemed(t *testing.T) {
	s, store := newTestService(t)
	ctx := context.Background()
	store.addUser(1)

	_, err := s.Create(ctx, "SEEN", 7, 5, nil)
	require.NoError(t, err)

	used, err := s.HasRedeemed(ctx, 1, "SEEN")
	require.NoError(t, err)
	assert.False(t, used)

	used, err = s.HasRedeemed(ctx, 1, "UNKNOWN")
	require.NoError(t, err)
	assert.False(t, used, "unknown code reads as not redeemed")

	_, err = s.Redeem(ctx, 1, "SEEN", t0)
	require.NoError(t, err)

	used, err = s.HasRedeemed(ctx, 1, "seen")
	require.NoError(t, err)
	assert.True(t, used)
}
