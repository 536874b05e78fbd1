package user

import "time"

type User struct {
	ID                 int64      `json:"id"`
	ExternalID         int64      `json:"external_id"` // account ID in the external application
	Username           string     `json:"username"`
	FullName           string     `json:"full_name"`
	CreatedAt          time.Time  `json:"created_at"`
	SubscriptionExpiry *time.Time `json:"subscription_expiry"`
	IsActive           bool       `json:"is_active"`
}
