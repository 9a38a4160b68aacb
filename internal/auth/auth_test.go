package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionTokenRoundTrip(t *testing.T) {
	InitializeSigning("0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef")

	token, err := GenerateSessionToken("sid-1", "u1", "alice", "user", time.Hour)
	require.NoError(t, err)

	claims, err := ValidateSessionToken(token)
	require.NoError(t, err)
	assert.Equal(t, "sid-1", claims.SessionID)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "user", claims.Role)
}

func TestValidateSessionTokenRejectsWrongSecret(t *testing.T) {
	InitializeSigning("0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef")
	token, err := GenerateSessionToken("sid-1", "u1", "alice", "user", time.Hour)
	require.NoError(t, err)

	InitializeSigning("ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff")
	_, err = ValidateSessionToken(token)
	assert.Error(t, err)
}

func TestValidateSessionTokenRejectsExpired(t *testing.T) {
	InitializeSigning("0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef")
	token, err := GenerateSessionToken("sid-1", "u1", "alice", "user", -time.Minute)
	require.NoError(t, err)

	_, err = ValidateSessionToken(token)
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("secret123")
	require.NoError(t, err)
	assert.NotEqual(t, "secret123", hash)

	assert.NoError(t, VerifyPassword("secret123", hash))
	assert.Error(t, VerifyPassword("wrong", hash))
}

func TestSessionDataIsAdmin(t *testing.T) {
	admin := &SessionData{SessionID: "s1", UserID: "a1", Username: "root", Role: "admin"}
	patient := &SessionData{SessionID: "s2", UserID: "u1", Username: "alice", Role: "user"}

	assert.True(t, admin.IsAdmin())
	assert.False(t, patient.IsAdmin())
}
