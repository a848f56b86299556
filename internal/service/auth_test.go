package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/webitel/im-social-service/internal/domain/model"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestTokenRoundTrip(t *testing.T) {
	auth := NewAuthService(testSecret, "im-social", time.Hour)
	contact := &model.AuthContact{UserID: uuid.New(), Username: "alice", DisplayName: "Alice"}

	token, err := auth.Issue(contact)
	require.NoError(t, err)

	got, err := auth.Inspect(token)
	require.NoError(t, err)
	require.Equal(t, contact, got)
}

func TestInspectRejects(t *testing.T) {
	auth := NewAuthService(testSecret, "im-social", time.Hour)
	contact := &model.AuthContact{UserID: uuid.New(), Username: "alice"}

	expired, err := NewAuthService(testSecret, "im-social", -time.Minute).Issue(contact)
	require.NoError(t, err)
	foreign, err := NewAuthService("another-secret-of-enough-length", "im-social", time.Hour).Issue(contact)
	require.NoError(t, err)
	otherIssuer, err := NewAuthService(testSecret, "someone-else", time.Hour).Issue(contact)
	require.NoError(t, err)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": contact.UserID.String()}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.token"},
		{"expired", expired},
		{"wrong secret", foreign},
		{"wrong issuer", otherIssuer},
		{"unsigned", none},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := auth.Inspect(tt.token)
			require.ErrorIs(t, err, model.ErrUnauthorized)
		})
	}
}
