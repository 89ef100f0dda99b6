package auth

import (
	"errors"
	"testing"
	"time"

	"store-ratings-api/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestIssueVerify_RoundTrip(t *testing.T) {
	iss := NewIssuer("test-secret", time.Hour)
	token, expires, err := iss.Issue("user-1", models.RoleOwner)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	id, err := iss.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, Identity{UserID: "user-1", Role: models.RoleOwner}, id)
}

func TestVerify_Expired(t *testing.T) {
	iss := NewIssuer("test-secret", time.Minute)
	iss.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := iss.Issue("user-1", models.RoleUser)
	require.NoError(t, err)

	iss.now = time.Now
	_, err = iss.Verify(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerify_WrongKey(t *testing.T) {
	token, _, err := NewIssuer("other-secret", time.Hour).Issue("user-1", models.RoleAdmin)
	require.NoError(t, err)

	_, err = NewIssuer("test-secret", time.Hour).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.False(t, errors.Is(err, ErrMissingToken))
}

func TestVerify_RejectsUnsignedToken(t *testing.T) {
	claims := Claims{
		Role: models.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewIssuer("test-secret", time.Hour).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_RejectsUnknownRole(t *testing.T) {
	iss := NewIssuer("test-secret", time.Hour)
	token, _, err := iss.Issue("user-1", models.Role("ROOT"))
	require.NoError(t, err)
	_, err = iss.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_Empty(t *testing.T) {
	_, err := NewIssuer("test-secret", time.Hour).Verify("")
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestBearerToken(t *testing.T) {
	tok, err := BearerToken("Bearer abc.def.ghi")
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", tok)

	tok, err = BearerToken("bearer xyz")
	require.NoError(t, err)
	assert.Equal(t, "xyz", tok)

	for _, h := range []string{"", "Bearer", "Bearer   ", "Basic dXNlcjpwYXNz", "abc.def.ghi"} {
		_, err := BearerToken(h)
		assert.ErrorIs(t, err, ErrMissingToken, "header %q", h)
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("Secret#123", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, "Secret#123", hash)
	assert.True(t, CheckPassword(hash, "Secret#123"))
	assert.False(t, CheckPassword(hash, "secret#123"))
}
