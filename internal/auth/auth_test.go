package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("hunter2", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", hash)

	assert.True(t, CheckPasswordHash("hunter2", hash))
	assert.False(t, CheckPasswordHash("hunter3", hash))
	assert.False(t, CheckPasswordHash("hunter2", "not-a-hash"))

	// out of range cost falls back to the default
	hash, err = HashPassword("pw", 99)
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
}

func TestNewTokens_EmptySecret(t *testing.T) {
	_, err := NewTokens("", time.Hour)
	assert.Error(t, err)
}

func TestTokens_RoundTrip(t *testing.T) {
	tokens, err := NewTokens("secret", time.Hour)
	require.NoError(t, err)

	token, err := tokens.GenerateJWT("ada@example.com")
	require.NoError(t, err)

	tests := []struct {
		name  string
		input string
	}{
		{"raw token", token},
		{"bearer prefix", "Bearer " + token},
		{"lowercase prefix", "bearer " + token},
		{"padded", "  Bearer   " + token + " "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			email, err := tokens.VerifyJWT(tt.input)
			require.NoError(t, err)
			assert.Equal(t, "ada@example.com", email)
		})
	}
}

func TestTokens_Rejects(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tokens, err := NewTokens("secret", time.Hour)
	require.NoError(t, err)
	tokens.now = func() time.Time { return now }

	valid, err := tokens.GenerateJWT("ada@example.com")
	require.NoError(t, err)

	other, err := NewTokens("other-secret", time.Hour)
	require.NoError(t, err)
	other.now = tokens.now
	foreign, err := other.GenerateJWT("ada@example.com")
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Email: "ada@example.com"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noEmail, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Issuer: issuer},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"bearer only", "Bearer "},
		{"garbage", "not.a.token"},
		{"wrong secret", foreign},
		{"alg none", none},
		{"missing email", noEmail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tokens.VerifyJWT(tt.token)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidToken))
		})
	}

	t.Run("expired", func(t *testing.T) {
		tokens.now = func() time.Time { return now.Add(2 * time.Hour) }
		_, err := tokens.VerifyJWT(valid)
		assert.True(t, errors.Is(err, ErrInvalidToken))
	})
}

func TestTokens_NoExpiry(t *testing.T) {
	tokens, err := NewTokens("secret", 0)
	require.NoError(t, err)

	token, err := tokens.GenerateJWT("ada@example.com")
	require.NoError(t, err)

	tokens.now = func() time.Time { return time.Now().Add(10 * 365 * 24 * time.Hour) }
	email, err := tokens.VerifyJWT(token)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", email)
}
