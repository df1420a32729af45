// Package ratelimit enforces request and connection rate limits using
// in-memory sliding windows.
package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"go.uber.org/zap"

	"github.com/clashdeck/backend/internal/v1/config"
	"github.com/clashdeck/backend/internal/v1/logging"
	"github.com/clashdeck/backend/internal/v1/metrics"
	"github.com/clashdeck/backend/internal/v1/middleware"
)

// RateLimiter holds the rate limiter instances. Authenticated API
// traffic is keyed by user id, everything else by client IP. Socket
// handshakes get their own IP and user windows so a reconnect storm
// cannot exhaust the API budget.
type RateLimiter struct {
	apiGlobal *limiter.Limiter
	apiPublic *limiter.Limiter
	wsIP      *limiter.Limiter
	wsUser    *limiter.Limiter
}

// NewRateLimiter creates a RateLimiter from the configured rate strings
// ("1000-M" style, per ulule/limiter).
func NewRateLimiter(cfg *config.Config) (*RateLimiter, error) {
	apiGlobalRate, err := limiter.NewRateFromFormatted(cfg.RateLimitAPIGlobal)
	if err != nil {
		return nil, fmt.Errorf("invalid API global rate: %w", err)
	}

	apiPublicRate, err := limiter.NewRateFromFormatted(cfg.RateLimitAPIPublic)
	if err != nil {
		return nil, fmt.Errorf("invalid API public rate: %w", err)
	}

	wsIPRate, err := limiter.NewRateFromFormatted(cfg.RateLimitWsIP)
	if err != nil {
		return nil, fmt.Errorf("invalid WS IP rate: %w", err)
	}

	wsUserRate, err := limiter.NewRateFromFormatted(cfg.RateLimitWsUser)
	if err != nil {
		return nil, fmt.Errorf("invalid WS User rate: %w", err)
	}

	store := memory.NewStore()

	return &RateLimiter{
		apiGlobal: limiter.New(store, apiGlobalRate),
		apiPublic: limiter.New(store, apiPublicRate),
		wsIP:      limiter.New(store, wsIPRate),
		wsUser:    limiter.New(store, wsUserRate),
	}, nil
}

// GlobalMiddleware returns a Gin middleware that enforces the API rate
// limits. Run it after RequireAuth on protected groups so authenticated
// callers get the per-user budget; unauthenticated callers share the
// stricter per-IP budget.
func (rl *RateLimiter) GlobalMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		var limiterInstance *limiter.Limiter
		var key string
		var limitType string

		if userID, ok := middleware.UserID(c); ok {
			key = strconv.FormatInt(userID, 10)
			limiterInstance = rl.apiGlobal
			limitType = "user"
		} else {
			key = c.ClientIP()
			limiterInstance = rl.apiPublic
			limitType = "ip"
		}

		ctx := c.Request.Context()
		lctx, err := limiterInstance.Get(ctx, key)
		if err != nil {
			// Fail open: losing rate limiting beats losing the API.
			logging.Error(ctx, "Rate limiter store failed", zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))

		if lctx.Reached {
			metrics.RateLimitExceeded.WithLabelValues(c.FullPath(), limitType).Inc()
			c.Header("Retry-After", strconv.FormatInt(lctx.Reset-time.Now().Unix(), 10))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Too many requests",
				"retry_after": lctx.Reset,
			})
			return
		}

		metrics.RateLimitRequests.WithLabelValues(c.FullPath()).Inc()
		c.Next()
	}
}

// CheckWebSocketIP checks the per-IP connection limit before the
// upgrade. Returns false after writing the 429 response.
func (rl *RateLimiter) CheckWebSocketIP(c *gin.Context) bool {
	ctx := c.Request.Context()

	ip := c.ClientIP()
	ipCtx, err := rl.wsIP.Get(ctx, ip)
	if err != nil {
		logging.Error(ctx, "WS Rate limiter store failed (IP)", zap.Error(err))
		return true // Fail open
	}

	if ipCtx.Reached {
		metrics.RateLimitExceeded.WithLabelValues("websocket_connect", "ip").Inc()
		c.Header("X-RateLimit-Retry-After", strconv.FormatInt(ipCtx.Reset, 10))
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many connections from this IP"})
		return false
	}

	return true
}

// CheckWebSocketUser checks the per-user connection limit. Call after
// the handshake token has been validated.
func (rl *RateLimiter) CheckWebSocketUser(ctx context.Context, userID string) error {
	userCtx, err := rl.wsUser.Get(ctx, userID)
	if err != nil {
		logging.Error(ctx, "WS Rate limiter store failed (User)", zap.Error(err))
		return nil // Fail open
	}

	if userCtx.Reached {
		metrics.RateLimitExceeded.WithLabelValues("websocket_connect", "user").Inc()
		return fmt.Errorf("rate limit exceeded for user")
	}

	return nil
}
