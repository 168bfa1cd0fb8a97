package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionTokenRoundTrip(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	token, err := NewSessionToken(42, "alice", time.Hour)
	require.NoError(t, err)

	claims, err := ParseSessionToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.NotEmpty(t, claims.ID)
}

func TestSessionTokenIDsAreUnique(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	a, err := NewSessionToken(1, "u", time.Hour)
	require.NoError(t, err)
	b, err := NewSessionToken(1, "u", time.Hour)
	require.NoError(t, err)

	ca, err := ParseSessionToken(a)
	require.NoError(t, err)
	cb, err := ParseSessionToken(b)
	require.NoError(t, err)
	assert.NotEqual(t, ca.ID, cb.ID)
}

func TestParseSessionTokenRejectsTampered(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	token, err := NewSessionToken(1, "alice", time.Hour)
	require.NoError(t, err)

	_, err = ParseSessionToken(token + "x")
	assert.Error(t, err)

	_, err = ParseSessionToken("not-a-token")
	assert.Error(t, err)
}

func TestSessionRevocation(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	assert.False(t, IsSessionRevoked("unknown-jti"))

	RevokeSession("jti-1", time.Now().Add(time.Hour))
	assert.True(t, IsSessionRevoked("jti-1"))

	// an entry past its expiry no longer counts as revoked
	RevokeSession("jti-2", time.Now().Add(-time.Minute))
	assert.False(t, IsSessionRevoked("jti-2"))
}
