package token

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

func GenerateToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// Validate reports whether a stored refresh token can still be exchanged.
func Validate(t *Token, now time.Time) error {
	if t == nil || t.Token == "" {
		return ErrInvalidToken
	}
	if now.After(t.ExpiresAt) {
		return ErrExpiredToken
	}
	return nil
}

func NewRefreshToken(subject string) (*Token, error) {
	tokenStr, err := GenerateToken(32)
	if err != nil {
		return nil, err
	}

	return &Token{
		Subject:   subject,
		Token:     tokenStr,
		ExpiresAt: time.Now().Add(7 * 24 * time.Hour),
	}, nil
}
