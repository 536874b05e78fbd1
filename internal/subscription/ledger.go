package subscription

import (
	"errors"
	"time"
)

var ErrInvalidDays = errors.New("days must be a positive integer")

// Status describes a user's entitlement at a point in time.
type Status struct {
	Active   bool
	Expiry   time.Time
	DaysLeft int
}

// NewExpiry applies the stacking rule: extending a still-active subscription
// adds to the remaining time, extending a lapsed one starts from now.
func NewExpiry(current *time.Time, now time.Time, days int) time.Time {
	if current != nil && current.After(now) {
		return current.AddDate(0, 0, days)
	}
	return now.AddDate(0, 0, days)
}

// DaysLeft returns the number of whole days until expiry, never negative.
func DaysLeft(expiry, now time.Time) int {
	left := int(expiry.Sub(now).Hours() / 24)
	if left < 0 {
		return 0
	}
	return left
}

// StatusAt computes the subscription status for the given expiry instant.
// A nil expiry or an expiry at or before now means the user is inactive.
func StatusAt(expiry *time.Time, now time.Time) Status {
	if expiry == nil || !expiry.After(now) {
		return Status{}
	}
	return Status{
		Active:   true,
		Expiry:   *expiry,
		DaysLeft: DaysLeft(*expiry, now),
	}
}
