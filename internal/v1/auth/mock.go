package auth

import (
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

// TokenValidator is the authentication interface the session hub and
// HTTP middleware consume.
type TokenValidator interface {
	ValidateToken(tokenString string) (*CustomClaims, error)
}

// MockValidator accepts any non-empty token and derives the identity
// from the token string itself. Test and development use only.
type MockValidator struct{}

// ValidateToken treats the token as "<userID>" or "<userID>:<email>".
func (m *MockValidator) ValidateToken(tokenString string) (*CustomClaims, error) {
	if tokenString == "" {
		return nil, ErrTokenMissing
	}

	subject := tokenString
	email := "dev@example.com"
	for i := 0; i < len(tokenString); i++ {
		if tokenString[i] == ':' {
			subject = tokenString[:i]
			email = tokenString[i+1:]
			break
		}
	}

	if _, err := strconv.ParseInt(subject, 10, 64); err != nil {
		subject = "1"
	}

	claims := &CustomClaims{Email: email}
	claims.RegisteredClaims = jwt.RegisteredClaims{Subject: subject}
	return claims, nil
}
