package auth

import (
	"testing"
	"time"

	"github.com/andy/invoicer/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testUser() *domain.User {
	u := domain.NewUser("Jane", "Doe", "jane@example.com", "hash")
	u.ID = 7
	return u
}

func TestTokens_RoundTrip(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)

	raw, err := tokens.Issue(testUser())
	require.NoError(t, err)

	user, err := tokens.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, SessionUser{ID: 7, Firstname: "Jane", Lastname: "Doe", Email: "jane@example.com"}, user)
}

func TestTokens_Expired(t *testing.T) {
	tokens := NewTokens("secret", time.Minute)
	tokens.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	raw, err := tokens.Issue(testUser())
	require.NoError(t, err)

	tokens.now = time.Now
	_, err = tokens.Verify(raw)
	assert.ErrorIs(t, err, domain.UnAuthorizedError)
}

func TestTokens_WrongSecret(t *testing.T) {
	raw, err := NewTokens("secret", time.Hour).Issue(testUser())
	require.NoError(t, err)

	_, err = NewTokens("other", time.Hour).Verify(raw)
	assert.ErrorIs(t, err, domain.UnAuthorizedError)
}

func TestTokens_RejectsNoneAlgorithm(t *testing.T) {
	claims := &Claims{
		User: NewSessionUser(testUser()),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			Issuer:    issuer,
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewTokens("secret", time.Hour).Verify(raw)
	assert.ErrorIs(t, err, domain.UnAuthorizedError)
}

func TestPackets(t *testing.T) {
	data := []byte(`{"email":"jane@example.com"}`)
	p := NewPackets("shared")

	sig := p.Sign(data)
	require.NoError(t, p.Verify(sig, data))
	assert.ErrorIs(t, p.Verify(sig, []byte(`{"email":"eve@example.com"}`)), ErrPacketNotAuthentic)
	assert.ErrorIs(t, p.Verify("not-hex", data), ErrPacketNotAuthentic)

	disabled := NewPackets("")
	assert.False(t, disabled.Enabled())
	assert.NoError(t, disabled.Verify("", data))
}
