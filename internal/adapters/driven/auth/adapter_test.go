package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func testClaims(ttl time.Duration) *domain.TokenClaims {
	now := time.Now()
	return &domain.TokenClaims{
		ClientID:  "legal-portal",
		Scope:     "rag",
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(ttl).Unix(),
	}
}

func TestHashSecret(t *testing.T) {
	adapter := NewAdapter("secret", WithBcryptCost(bcrypt.MinCost))

	hash1, err := adapter.HashSecret("s3cret")
	require.NoError(t, err)
	hash2, err := adapter.HashSecret("s3cret")
	require.NoError(t, err)

	assert.NotEqual(t, "s3cret", hash1)
	assert.NotEqual(t, hash1, hash2, "salted hashes differ")
	assert.True(t, strings.HasPrefix(hash1, "$2"))

	assert.True(t, adapter.VerifySecret("s3cret", hash1))
	assert.False(t, adapter.VerifySecret("wrong", hash1))
	assert.False(t, adapter.VerifySecret("s3cret", "not-a-hash"))
}

func TestNewAdapter_DefaultCost(t *testing.T) {
	adapter := NewAdapter("secret")
	assert.Equal(t, bcrypt.DefaultCost, adapter.cost)
}

func TestToken_RoundTrip(t *testing.T) {
	adapter := NewAdapter("test-secret")
	claims := testClaims(time.Hour)

	token, err := adapter.GenerateToken(claims)
	require.NoError(t, err)
	assert.Len(t, strings.Split(token, "."), 3)

	parsed, err := adapter.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, claims.ClientID, parsed.ClientID)
	assert.Equal(t, claims.Scope, parsed.Scope)
	assert.Equal(t, claims.IssuedAt, parsed.IssuedAt)
	assert.Equal(t, claims.ExpiresAt, parsed.ExpiresAt)
}

func TestParseToken_Expired(t *testing.T) {
	adapter := NewAdapter("test-secret")
	token, err := adapter.GenerateToken(testClaims(-time.Minute))
	require.NoError(t, err)

	_, err = adapter.ParseToken(token)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
}

func TestParseToken_WrongSecret(t *testing.T) {
	token, err := NewAdapter("secret-a").GenerateToken(testClaims(time.Hour))
	require.NoError(t, err)

	_, err = NewAdapter("secret-b").ParseToken(token)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestParseToken_Malformed(t *testing.T) {
	adapter := NewAdapter("test-secret")

	for _, token := range []string{"", "not.a.jwt", "abc"} {
		_, err := adapter.ParseToken(token)
		assert.ErrorIs(t, err, domain.ErrTokenInvalid, "token %q", token)
	}
}

func TestParseToken_RejectsOtherAlgorithms(t *testing.T) {
	adapter := NewAdapter("test-secret")
	jc := accessClaims{
		ClientID: "legal-portal",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, jc).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = adapter.ParseToken(token)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestParseToken_RequiresIssuerAndClient(t *testing.T) {
	adapter := NewAdapter("test-secret")
	sign := func(jc accessClaims) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jc).SignedString([]byte("test-secret"))
		require.NoError(t, err)
		return s
	}
	exp := jwt.NewNumericDate(time.Now().Add(time.Hour))

	_, err := adapter.ParseToken(sign(accessClaims{ClientID: "x", RegisteredClaims: jwt.RegisteredClaims{Issuer: "other", ExpiresAt: exp}}))
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)

	_, err = adapter.ParseToken(sign(accessClaims{RegisteredClaims: jwt.RegisteredClaims{Issuer: issuer, ExpiresAt: exp}}))
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}
