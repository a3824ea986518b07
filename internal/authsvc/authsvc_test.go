package authsvc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_RegisterThenLogin_Succeeds(t *testing.T) {
	s := New()
	require.NoError(t, s.Register("alice", "hunter2"))

	token, err := s.Login("alice", "hunter2")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	username, ok := s.VerifyToken(token)
	assert.True(t, ok)
	assert.Equal(t, "alice", username)
}

func TestService_Register_RejectsDuplicateUsername(t *testing.T) {
	s := New()
	require.NoError(t, s.Register("alice", "hunter2"))
	err := s.Register("alice", "different")
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestService_Login_RejectsWrongPassword(t *testing.T) {
	s := New()
	require.NoError(t, s.Register("alice", "hunter2"))
	_, err := s.Login("alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestService_Login_RejectsUnknownUser(t *testing.T) {
	s := New()
	_, err := s.Login("ghost", "x")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestService_VerifyToken_UnknownTokenFails(t *testing.T) {
	s := New()
	_, ok := s.VerifyToken("not-a-real-token")
	assert.False(t, ok)
}
