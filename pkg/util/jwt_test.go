package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-jwt-testing"

func TestGenerateAccessToken(t *testing.T) {
	tests := []struct {
		name   string
		userID uint
		role   string
	}{
		{name: "Admin token", userID: 1, role: "admin"},
		{name: "Manager token", userID: 2, role: "manager"},
		{name: "Customer token", userID: 3, role: "customer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, expiresAt, err := GenerateAccessToken(tt.userID, tt.role, testSecret, 15*time.Minute)
			require.NoError(t, err)
			assert.NotEmpty(t, token)
			assert.True(t, expiresAt.After(time.Now()))

			claims, err := ValidateToken(token, testSecret)
			require.NoError(t, err)
			assert.Equal(t, tt.userID, claims.UserID)
			assert.Equal(t, tt.role, claims.Role)
		})
	}
}

func TestValidateToken(t *testing.T) {
	token, _, err := GenerateAccessToken(123, "admin", testSecret, 15*time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		secret  string
		wantErr error
	}{
		{name: "Valid token", token: token, secret: testSecret},
		{name: "Invalid secret", token: token, secret: "wrong-secret", wantErr: ErrInvalidToken},
		{name: "Invalid token format", token: "invalid.token.format", secret: testSecret, wantErr: ErrInvalidToken},
		{name: "Empty token", token: "", secret: testSecret, wantErr: ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := ValidateToken(tt.token, tt.secret)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, claims)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, uint(123), claims.UserID)
			assert.Equal(t, "123", claims.Subject)
		})
	}
}

func TestExpiredToken(t *testing.T) {
	token, _, err := GenerateAccessToken(1, "admin", testSecret, -time.Minute)
	require.NoError(t, err)

	claims, err := ValidateToken(token, testSecret)
	assert.ErrorIs(t, err, ErrExpiredToken)
	assert.Nil(t, claims)
}

func TestTokenClaims(t *testing.T) {
	token, _, err := GenerateAccessToken(42, "manager", testSecret, 15*time.Minute)
	require.NoError(t, err)

	claims, err := ValidateToken(token, testSecret)
	require.NoError(t, err)
	require.NotNil(t, claims.ExpiresAt)
	require.NotNil(t, claims.IssuedAt)
	assert.True(t, claims.IssuedAt.Before(claims.ExpiresAt.Time))
}
