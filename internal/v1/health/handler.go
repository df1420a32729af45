package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/clashdeck/backend/internal/v1/logging"
)

// Pinger is the dependency probe: anything with a Ping. The sqlite
// store satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler manages health check endpoints
type Handler struct {
	db Pinger
}

// NewHandler creates a new health check handler over the given
// database. A nil db skips the database check entirely.
func NewHandler(db Pinger) *Handler {
	return &Handler{db: db}
}

// LivenessResponse represents the liveness probe response
type LivenessResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// ReadinessResponse represents the readiness probe response
type ReadinessResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks"`
	Timestamp string            `json:"timestamp"`
}

// Liveness handles the liveness probe endpoint
// GET /health/live
// Returns 200 if the process is alive (no dependency checks)
func (h *Handler) Liveness(c *gin.Context) {
	response := LivenessResponse{
		Status:    "alive",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	c.JSON(http.StatusOK, response)
}

// Readiness handles the readiness probe endpoint
// GET /health/ready
// Returns 200 only if all critical dependencies are healthy
// Returns 503 if any dependency is unhealthy
func (h *Handler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	checks := make(map[string]string)
	allHealthy := true

	dbStatus := h.checkDatabase(ctx)
	checks["database"] = dbStatus
	if dbStatus != "healthy" {
		allHealthy = false
	}

	status := "ready"
	statusCode := http.StatusOK
	if !allHealthy {
		status = "unavailable"
		statusCode = http.StatusServiceUnavailable
	}

	response := ReadinessResponse{
		Status:    status,
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	c.JSON(statusCode, response)
}

// checkDatabase verifies sqlite connectivity with a ping.
func (h *Handler) checkDatabase(ctx context.Context) string {
	if h.db == nil {
		return "healthy"
	}

	if err := h.db.Ping(ctx); err != nil {
		logging.Error(ctx, "Database health check failed", zap.Error(err))
		return "unhealthy"
	}

	return "healthy"
}
