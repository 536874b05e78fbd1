package token

import "time"

type Token struct {
	ID        int64     `json:"id"`
	Subject   string    `json:"subject"` // service account the token was issued to
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}
