package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestMintAndValidate(t *testing.T) {
	v := NewValidator(testSecret)

	token, err := v.Mint(42, "player@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := v.ValidateToken(token)
	require.NoError(t, err)

	assert.Equal(t, "player@example.com", claims.Email)
	uid, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, int64(42), uid)
}

func TestValidateToken_Missing(t *testing.T) {
	v := NewValidator(testSecret)

	_, err := v.ValidateToken("")
	assert.ErrorIs(t, err, ErrTokenMissing)
}

func TestValidateToken_Garbage(t *testing.T) {
	v := NewValidator(testSecret)

	tests := []string{
		"not-a-token",
		"a.b.c",
		"eyJhbGciOiJIUzI1NiJ9.e30.signature",
	}

	for _, token := range tests {
		_, err := v.ValidateToken(token)
		assert.Error(t, err, "token %q", token)
	}
}

func TestValidateToken_WrongSecret(t *testing.T) {
	minter := NewValidator(testSecret)
	verifier := NewValidator("fedcba9876543210fedcba9876543210")

	token, err := minter.Mint(1, "a@b.com")
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateToken_Expired(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	v := NewValidator(testSecret,
		WithTTL(time.Hour),
		WithClock(func() time.Time { return clock }),
	)

	token, err := v.Mint(1, "a@b.com")
	require.NoError(t, err)

	// Still valid just before expiry
	clock = base.Add(59 * time.Minute)
	_, err = v.ValidateToken(token)
	require.NoError(t, err)

	// Rejected after
	clock = base.Add(2 * time.Hour)
	_, err = v.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateToken_RejectsWrongIssuer(t *testing.T) {
	other := NewValidator(testSecret)
	other.issuer = "someone-else"

	token, err := other.Mint(1, "a@b.com")
	require.NoError(t, err)

	v := NewValidator(testSecret)
	_, err = v.ValidateToken(token)
	assert.Error(t, err)
}

func TestCustomClaims_UserIDParseFailure(t *testing.T) {
	claims := &CustomClaims{}
	claims.Subject = "not-a-number"

	_, err := claims.UserID()
	assert.Error(t, err)
}

func TestMockValidator(t *testing.T) {
	m := &MockValidator{}

	claims, err := m.ValidateToken("7:misty@example.com")
	require.NoError(t, err)
	assert.Equal(t, "7", claims.Subject)
	assert.Equal(t, "misty@example.com", claims.Email)

	_, err = m.ValidateToken("")
	assert.ErrorIs(t, err, ErrTokenMissing)

	claims, err = m.ValidateToken("garbage")
	require.NoError(t, err)
	assert.Equal(t, "1", claims.Subject)
}
