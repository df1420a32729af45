package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/clashdeck/backend/internal/v1/auth"
	"github.com/clashdeck/backend/internal/v1/logging"
)

// Context keys set by RequireAuth for downstream handlers.
const (
	ContextUserIDKey = "userID"
	ContextEmailKey  = "email"
)

// RequireAuth rejects requests that do not carry a valid bearer token
// and exposes the caller's identity on the gin context. A missing token
// and an invalid one are reported with distinct error codes so clients
// can tell "sign in" apart from "sign in again".
func RequireAuth(validator auth.TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))

		claims, err := validator.ValidateToken(token)
		if err != nil {
			code := "AUTH_INVALID"
			if errors.Is(err, auth.ErrTokenMissing) {
				code = "AUTH_MISSING"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": code})
			return
		}

		userID, err := claims.UserID()
		if err != nil {
			logging.Warn(c.Request.Context(), "token subject is not a user id")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "AUTH_INVALID"})
			return
		}

		c.Set(ContextUserIDKey, userID)
		c.Set(ContextEmailKey, claims.Email)
		c.Next()
	}
}

// UserID reads the authenticated user id RequireAuth stored on the
// context. The boolean is false on unauthenticated routes.
func UserID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(ContextUserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if strings.HasPrefix(header, prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
