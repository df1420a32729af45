package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/clashdeck/backend/internal/v1/logging"
)

// ErrTokenMissing marks a handshake that presented no token at all, as
// opposed to one that presented a bad token.
var ErrTokenMissing = errors.New("token not provided")

// CustomClaims represents the JWT claims the backend mints and verifies.
// The subject carries the numeric user id; Email rides along so sessions
// know who they are without a database round trip.
type CustomClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// UserID parses the numeric user id out of the subject claim.
func (c *CustomClaims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("subject is not a user id: %w", err)
	}
	return id, nil
}

// Validator verifies and mints HMAC-SHA256 tokens against the shared
// secret from configuration. One instance serves both the HTTP surface
// (minting at signin, verifying on protected routes) and the socket
// handshake.
type Validator struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// ValidatorOption customizes a Validator.
type ValidatorOption func(*Validator)

// WithTTL overrides the default token lifetime.
func WithTTL(ttl time.Duration) ValidatorOption {
	return func(v *Validator) { v.ttl = ttl }
}

// WithClock injects the time source, for expiry tests.
func WithClock(now func() time.Time) ValidatorOption {
	return func(v *Validator) { v.now = now }
}

// NewValidator creates a Validator for the given shared secret.
func NewValidator(secret string, opts ...ValidatorOption) *Validator {
	v := &Validator{
		secret: []byte(secret),
		issuer: "clashdeck",
		ttl:    24 * time.Hour,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// ValidateToken parses and validates a token string. An empty token is
// reported as ErrTokenMissing so callers can distinguish AUTH_MISSING
// from AUTH_INVALID.
func (v *Validator) ValidateToken(tokenString string) (*CustomClaims, error) {
	if tokenString == "" {
		return nil, ErrTokenMissing
	}

	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, v.keyFunc,
		jwt.WithIssuer(v.issuer),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, errors.New("token is invalid")
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok {
		return nil, errors.New("failed to cast claims to CustomClaims")
	}

	return claims, nil
}

// Mint issues a signed token for the given user.
func (v *Validator) Mint(userID int64, email string) (string, error) {
	now := v.now()
	claims := &CustomClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(v.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (v *Validator) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return v.secret, nil
}

// GetAllowedOriginsFromEnv reads a comma-separated origin list from the
// environment, falling back to the given defaults.
func GetAllowedOriginsFromEnv(envVarName string, defaultEnvs []string) []string {
	// Example: ALLOWED_ORIGINS="http://localhost:3000,https://your-app.com"
	originsStr := os.Getenv(envVarName)
	if originsStr == "" {
		logging.Warn(context.Background(), fmt.Sprintf("%s environment variable not set. Using default development origins:\n%s", envVarName, defaultEnvs))
		return defaultEnvs
	}
	return strings.Split(originsStr, ",")
}
