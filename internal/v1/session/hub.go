package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/clashdeck/backend/internal/v1/auth"
	"github.com/clashdeck/backend/internal/v1/game"
	"github.com/clashdeck/backend/internal/v1/logging"
	"github.com/clashdeck/backend/internal/v1/metrics"
	"github.com/clashdeck/backend/internal/v1/ratelimit"
)

// envelope is the wire format in both directions: an event name plus an
// event-specific payload.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Hub owns every live connection and implements game.Emitter, so the
// registry can push events without knowing about sockets.
type Hub struct {
	mu       sync.Mutex
	sessions map[string]*Client // keyed by session id

	validator      auth.TokenValidator
	registry       *game.Registry
	rateLimiter    *ratelimit.RateLimiter // nil disables handshake limits
	allowedOrigins []string
}

// NewHub creates a Hub. The registry is attached separately because it
// needs the hub as its emitter.
func NewHub(validator auth.TokenValidator, rateLimiter *ratelimit.RateLimiter, allowedOrigins []string) *Hub {
	return &Hub{
		sessions:       make(map[string]*Client),
		validator:      validator,
		rateLimiter:    rateLimiter,
		allowedOrigins: allowedOrigins,
	}
}

// AttachRegistry binds the game registry. Must be called before the hub
// serves connections.
func (h *Hub) AttachRegistry(reg *game.Registry) {
	h.registry = reg
}

// SendTo implements game.Emitter. Unknown sessions are dropped silently;
// the registry must never fail a mutation over a dead connection.
func (h *Hub) SendTo(sessionID string, event string, payload any) {
	h.mu.Lock()
	client := h.sessions[sessionID]
	h.mu.Unlock()

	if client == nil {
		logging.GetLogger().Debug("SendTo: no such session", zap.String("sessionId", sessionID))
		return
	}

	data, err := encodeEvent(event, payload)
	if err != nil {
		return
	}
	client.enqueue(data)
}

// Broadcast implements game.Emitter: one serialization, every session.
func (h *Hub) Broadcast(event string, payload any) {
	data, err := encodeEvent(event, payload)
	if err != nil {
		return
	}

	h.mu.Lock()
	clients := make([]*Client, 0, len(h.sessions))
	for _, c := range h.sessions {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.enqueue(data)
	}
}

func encodeEvent(event string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		logging.Error(context.Background(), "failed to marshal event payload",
			zap.String("event", event), zap.Error(err))
		return nil, err
	}
	return json.Marshal(envelope{Event: event, Data: raw})
}

// ServeWs authenticates the handshake and upgrades to a WebSocket
// connection. Authentication failures are rejected before the upgrade,
// so an unauthenticated socket never exists.
func (h *Hub) ServeWs(c *gin.Context) {
	if h.rateLimiter != nil && !h.rateLimiter.CheckWebSocketIP(c) {
		return // response already written
	}

	token := h.extractToken(c)

	claims, err := h.validator.ValidateToken(token)
	if err != nil {
		code := game.CodeAuthInvalid
		if errors.Is(err, auth.ErrTokenMissing) {
			code = game.CodeAuthMissing
		}
		logging.Warn(c.Request.Context(), "handshake rejected", zap.String("code", string(code)))
		c.JSON(http.StatusUnauthorized, gin.H{"error": string(code)})
		return
	}

	userID, err := claims.UserID()
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": string(game.CodeAuthInvalid)})
		return
	}

	if h.rateLimiter != nil {
		if err := h.rateLimiter.CheckWebSocketUser(c.Request.Context(), strconv.FormatInt(userID, 10)); err != nil {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many connections"})
			return
		}
	}

	if err := validateOrigin(c.Request, h.allowedOrigins); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "origin not allowed"})
		return
	}

	conn, err := h.upgradeWebSocket(c)
	if err != nil {
		return
	}

	h.HandleConnection(conn, userID, claims.Email)
}

// HandleConnection registers a fresh session over an established
// connection and starts its pumps. Split from ServeWs so tests can drive
// the hub with a mock connection.
func (h *Hub) HandleConnection(conn wsConnection, userID int64, email string) *Client {
	client := &Client{
		conn: conn,
		hub:  h,
		sess: game.Session{
			ID:     uuid.New().String(),
			UserID: userID,
			Email:  email,
		},
		send: make(chan []byte, 256),
	}

	h.mu.Lock()
	h.sessions[client.sess.ID] = client
	h.mu.Unlock()

	metrics.IncConnection()
	logging.Info(context.Background(), "session connected",
		zap.String("sessionId", client.sess.ID),
		zap.Int64("userId", userID))

	go client.writePump()
	go client.readPump()
	return client
}

// handleDisconnect unregisters the session and sweeps its rooms. Runs
// from the readPump exactly once per connection.
func (h *Hub) handleDisconnect(c *Client) {
	h.mu.Lock()
	delete(h.sessions, c.sess.ID)
	h.mu.Unlock()

	c.Disconnect()
	h.registry.RemoveBySession(context.Background(), c.sess.ID)

	logging.Info(context.Background(), "session disconnected",
		zap.String("sessionId", c.sess.ID),
		zap.Int64("userId", c.sess.UserID))
}

// Shutdown closes every live connection.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.sessions))
	for _, c := range h.sessions {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.Disconnect()
	}

	logging.Info(ctx, "hub shut down", zap.Int("sessions", len(clients)))
	return nil
}

// extractToken reads the handshake token: the token query parameter
// first, then a bearer Authorization header for non-browser clients.
func (h *Hub) extractToken(c *gin.Context) string {
	if token := c.Query("token"); token != "" {
		return token
	}

	header := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if strings.HasPrefix(header, prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

// validateOrigin checks if the request origin is in the allowed list.
func validateOrigin(r *http.Request, allowedOrigins []string) error {
	origin := r.Header.Get("Origin")
	if origin == "" {
		logging.GetLogger().Debug("No origin header - allowing non-browser client")
		return nil
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		logging.Warn(context.Background(), "Invalid origin URL", zap.String("origin", origin), zap.Error(err))
		return fmt.Errorf("invalid origin URL: %w", err)
	}

	for _, allowed := range allowedOrigins {
		allowedURL, err := url.Parse(allowed)
		if err != nil {
			continue
		}
		if originURL.Scheme == allowedURL.Scheme && originURL.Host == allowedURL.Host {
			return nil
		}
	}

	logging.Warn(context.Background(), "Origin not in allowed list",
		zap.String("origin", origin), zap.Strings("allowedOrigins", allowedOrigins))
	return fmt.Errorf("origin not allowed: %s", origin)
}

// upgradeWebSocket handles the WebSocket upgrade process.
func (h *Hub) upgradeWebSocket(c *gin.Context) (wsConnection, error) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return validateOrigin(r, h.allowedOrigins) == nil
		},
		WriteBufferPool: &sync.Pool{
			New: func() any {
				return make([]byte, 4096)
			},
		},
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logging.Error(c.Request.Context(), "Failed to upgrade connection", zap.Error(err))
		return nil, err
	}

	return conn, nil
}
