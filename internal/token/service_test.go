package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRefreshToken(t *testing.T) {
	tok, err := NewRefreshToken("bot")
	require.NoError(t, err)
	assert.Equal(t, "bot", tok.Subject)
	assert.Len(t, tok.Token, 64)
	assert.NoError(t, Validate(tok, time.Now()))
}

func TestValidate(t *testing.T) {
	now := time.Now()

	assert.ErrorIs(t, Validate(nil, now), ErrInvalidToken)
	assert.ErrorIs(t, Validate(&Token{ExpiresAt: now.Add(time.Hour)}, now), ErrInvalidToken)

	expired := &Token{Token: "abc", ExpiresAt: now.Add(-time.Minute)}
	assert.ErrorIs(t, Validate(expired, now), ErrExpiredToken)

	live := &Token{Token: "abc", ExpiresAt: now.Add(time.Minute)}
	assert.NoError(t, Validate(live, now))
}
