package subscription

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestNewExpiry_NoSubscription(t *testing.T) {
	got := NewExpiry(nil, t0, 7)
	assert.Equal(t, t0.AddDate(0, 0, 7), got)
}

func TestNewExpiry_LapsedStartsFresh(t *testing.T) {
	lapsed := t0.AddDate(0, 0, -3)
	got := NewExpiry(&lapsed, t0, 30)
	assert.Equal(t, t0.AddDate(0, 0, 30), got)
}

func TestNewExpiry_ExpiryExactlyNowStartsFresh(t *testing.T) {
	expiry := t0
	got := NewExpiry(&expiry, t0, 30)
	assert.Equal(t, t0.AddDate(0, 0, 30), got)
}

func TestNewExpiry_ActiveStacks(t *testing.T) {
	current := t0.AddDate(0, 0, 10)
	got := NewExpiry(&current, t0, 30)
	assert.Equal(t, current.AddDate(0, 0, 30), got)
	assert.True(t, got.After(current))
}

// Simultaneous extends for the same user must all land. The store serializes
// them with a per-row lock, modeled here by a mutex around read-compute-write.
func TestConcurrentExtendsAllLand(t *testing.T) {
	var (
		mu     sync.Mutex
		expiry *time.Time
		wg     sync.WaitGroup
	)

	days := []int{30, 7, 90, 1}
	for _, d := range days {
		wg.Add(1)
		go func(d int) {
			defer wg.Done()
			mu.Lock()
			next := NewExpiry(expiry, t0, d)
			expiry = &next
			mu.Unlock()
		}(d)
	}
	wg.Wait()

	require.NotNil(t, expiry)
	assert.Equal(t, t0.AddDate(0, 0, 128), *expiry)
}

func TestDaysLeft(t *testing.T) {
	assert.Equal(t, 7, DaysLeft(t0.AddDate(0, 0, 7), t0))
	assert.Equal(t, 6, DaysLeft(t0.AddDate(0, 0, 7).Add(-time.Hour), t0), "partial days truncate")
	assert.Equal(t, 0, DaysLeft(t0.Add(time.Hour), t0))
	assert.Equal(t, 0, DaysLeft(t0.AddDate(0, 0, -5), t0), "past expiry clamps at zero")
}

func TestStatusAt(t *testing.T) {
	assert.False(t, StatusAt(nil, t0).Active)

	past := t0.AddDate(0, 0, -1)
	assert.False(t, StatusAt(&past, t0).Active)

	atNow := t0
	assert.False(t, StatusAt(&atNow, t0).Active, "expiry at now is inactive")

	future := t0.AddDate(0, 0, 14)
	st := StatusAt(&future, t0)
	assert.True(t, st.Active)
	assert.Equal(t, future, st.Expiry)
	assert.Equal(t, 14, st.DaysLeft)
}
