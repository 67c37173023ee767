package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestJWTService_RoundTrip(t *testing.T) {
	svc := NewJWTService("test-secret", 15*time.Minute)

	token, expiresAt, err := svc.GenerateAccessToken(42, "alice")
	assert.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, expiresAt.After(time.Now()))

	claims, err := svc.ValidateAccessToken(token)
	assert.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "alice", claims.UserName)
	assert.NotEmpty(t, claims.ID)
}

func TestJWTService_RejectsWrongSecret(t *testing.T) {
	token, _, err := NewJWTService("secret-a", 15*time.Minute).GenerateAccessToken(1, "alice")
	assert.NoError(t, err)

	_, err = NewJWTService("secret-b", 15*time.Minute).ValidateAccessToken(token)
	assert.Error(t, err)
}

func TestJWTService_RejectsExpired(t *testing.T) {
	svc := NewJWTService("test-secret", -time.Minute)
	token, _, err := svc.GenerateAccessToken(1, "alice")
	assert.NoError(t, err)

	_, err = svc.ValidateAccessToken(token)
	assert.Error(t, err)
}

func TestJWTService_RejectsGarbage(t *testing.T) {
	svc := NewJWTService("test-secret", 15*time.Minute)
	_, err := svc.ValidateAccessToken("not-a-token")
	assert.Error(t, err)
}

func TestNewOpaqueToken_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		tok := NewOpaqueToken()
		assert.False(t, seen[tok])
		seen[tok] = true
	}
}
