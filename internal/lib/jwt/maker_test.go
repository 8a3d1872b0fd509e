package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaker_AppToken(t *testing.T) {
	maker := NewJWTMaker("test_secret", 7*24*time.Hour, 24*time.Hour)

	token, err := maker.GenerateAppToken(7, "555-0101", "app1")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := maker.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, "555-0101", claims.Username)
	assert.Equal(t, "app1", claims.AppID)
	assert.Equal(t, SubjectApp, claims.Subject)

	ttl := time.Until(claims.ExpiresAt.Time)
	assert.InDelta(t, (7 * 24 * time.Hour).Seconds(), ttl.Seconds(), 5)
}

func TestMaker_AdminToken(t *testing.T) {
	maker := NewJWTMaker("test_secret", 7*24*time.Hour, 24*time.Hour)

	token, err := maker.GenerateAdminToken(1, "admin@example.com")
	require.NoError(t, err)

	claims, err := maker.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(1), claims.UserID)
	assert.Equal(t, "admin@example.com", claims.Username)
	assert.Empty(t, claims.AppID)
	assert.Equal(t, SubjectAdmin, claims.Subject)

	ttl := time.Until(claims.ExpiresAt.Time)
	assert.InDelta(t, (24 * time.Hour).Seconds(), ttl.Seconds(), 5)
}

func TestMaker_ParseToken_WrongSecret(t *testing.T) {
	maker := NewJWTMaker("test_secret", time.Hour, time.Hour)
	other := NewJWTMaker("another_secret", time.Hour, time.Hour)

	token, err := maker.GenerateAppToken(7, "555-0101", "app1")
	require.NoError(t, err)

	_, err = other.ParseToken(token)
	assert.Error(t, err)
}

func TestMaker_ParseToken_Expired(t *testing.T) {
	maker := NewJWTMaker("test_secret", -time.Minute, time.Hour)

	token, err := maker.GenerateAppToken(7, "555-0101", "app1")
	require.NoError(t, err)

	_, err = maker.ParseToken(token)
	assert.Error(t, err)
}

func TestMaker_ParseToken_Garbage(t *testing.T) {
	maker := NewJWTMaker("test_secret", time.Hour, time.Hour)

	_, err := maker.ParseToken("not.a.token")
	assert.Error(t, err)
}
