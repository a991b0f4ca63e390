package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	m := NewTokenManager("test-secret", time.Hour)
	userID := uuid.New()

	token, err := m.Generate(userID, "jane@example.com", "admin")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "jane@example.com", claims.Email)
	assert.Equal(t, "admin", claims.Role)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	token, err := NewTokenManager("secret-a", time.Hour).Generate(uuid.New(), "jane@example.com", "user")
	require.NoError(t, err)

	_, err = NewTokenManager("secret-b", time.Hour).Validate(token)
	assert.Error(t, err)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	m := NewTokenManager("test-secret", -time.Minute)

	token, err := m.Generate(uuid.New(), "jane@example.com", "user")
	require.NoError(t, err)

	_, err = m.Validate(token)
	assert.Error(t, err)
}

func TestValidateRejectsGarbage(t *testing.T) {
	m := NewTokenManager("test-secret", time.Hour)

	_, err := m.Validate("not-a-token")
	assert.Error(t, err)
}
