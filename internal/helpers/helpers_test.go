package helpers

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/joshua-takyi/bashbay-client/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func devValidator(t *testing.T) *TokenValidator {
	t.Helper()
	v, err := NewTokenValidator(context.Background(), "", slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(v.Close)
	return v
}

func TestValidateTokenUserID(t *testing.T) {
	v := devValidator(t)

	tests := []struct {
		name   string
		claims jwt.MapClaims
		want   string
	}{
		{"numeric backend id", jwt.MapClaims{"user_id": 42, "username": "ama"}, "42"},
		{"string backend id", jwt.MapClaims{"user_id": "u-7"}, "u-7"},
		{"supabase subject", jwt.MapClaims{"sub": "0b6f7c1e", "role": "authenticated"}, "0b6f7c1e"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := v.ValidateToken(signToken(t, tt.claims))
			require.NoError(t, err)
			assert.Equal(t, tt.want, claims.UserID())
		})
	}
}

func TestValidateTokenAllowsExpired(t *testing.T) {
	v := devValidator(t)

	token := signToken(t, jwt.MapClaims{"user_id": 1, "exp": time.Now().Add(-time.Hour).Unix()})
	claims, err := v.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "1", claims.UserID())
}

func TestValidateTokenRejects(t *testing.T) {
	v := devValidator(t)

	_, err := v.ValidateToken("")
	assert.ErrorIs(t, err, models.ErrAuthExpired)

	_, err = v.ValidateToken("not.a.jwt")
	assert.ErrorIs(t, err, models.ErrAuthExpired)

	_, err = v.ValidateToken(signToken(t, jwt.MapClaims{"email": "a@b.test"}))
	assert.ErrorIs(t, err, models.ErrAuthExpired)
}

func TestSafeRole(t *testing.T) {
	assert.Equal(t, "guest", (&CustomClaims{}).GetSafeRole())
	assert.Equal(t, "host", (&CustomClaims{Role: "host"}).GetSafeRole())
}
