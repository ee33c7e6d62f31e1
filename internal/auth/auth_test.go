package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestNewVerifier_RequiresSecret(t *testing.T) {
	_, err := NewVerifier(nil)
	assert.Error(t, err)
}

func TestVerify_RoundTrip(t *testing.T) {
	v, err := NewVerifier([]byte(testSecret))
	require.NoError(t, err)

	userID := uuid.New()
	token, err := v.Sign(userID, time.Hour)
	require.NoError(t, err)

	got, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, userID, got)
}

func TestVerify_Failures(t *testing.T) {
	v, err := NewVerifier([]byte(testSecret))
	require.NoError(t, err)

	other, err := NewVerifier([]byte("another-secret-another-secret-xx"))
	require.NoError(t, err)

	userID := uuid.New()

	t.Run("empty token", func(t *testing.T) {
		_, err := v.Verify("")
		assert.ErrorIs(t, err, ErrMissingToken)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := v.Verify("not.a.jwt")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, err := other.Sign(userID, time.Hour)
		require.NoError(t, err)

		_, err = v.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired token", func(t *testing.T) {
		token, err := v.Sign(userID, -time.Minute)
		require.NoError(t, err)

		_, err = v.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{name: "valid", header: "Bearer abc123", want: "abc123"},
		{name: "empty header", header: "", wantErr: true},
		{name: "wrong scheme", header: "Basic abc123", wantErr: true},
		{name: "bearer only", header: "Bearer ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BearerToken(tt.header)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMissingToken)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIdentityContext(t *testing.T) {
	userID := uuid.New()
	ctx := WithIdentity(context.Background(), userID, "raw-token")

	gotID, ok := UserID(ctx)
	require.True(t, ok)
	assert.Equal(t, userID, gotID)

	gotToken, ok := Token(ctx)
	require.True(t, ok)
	assert.Equal(t, "raw-token", gotToken)

	_, ok = UserID(context.Background())
	assert.False(t, ok)
}
