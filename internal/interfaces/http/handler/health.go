package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/wms/backend/internal/infrastructure/logger"
	"github.com/wms/backend/internal/interfaces/http/dto"
)

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves liveness and readiness checks
type HealthHandler struct {
	BaseHandler
	db      Pinger
	version string
	timeout time.Duration
}

// NewHealthHandler creates a health handler that pings db
func NewHealthHandler(db Pinger, version string) *HealthHandler {
	return &HealthHandler{db: db, version: version, timeout: 2 * time.Second}
}

// HealthResponse is the body of the health endpoints
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version,omitempty"`
	Database string `json:"database"`
}

// RegisterRoutes registers the health endpoints
func (h *HealthHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/health", h.Health)
}

// Health pings the database. It answers 503 when the ping fails.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		logger.L(c.Request.Context()).Warn("Health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, dto.Response{
			Success: false,
			Data:    HealthResponse{Status: "unhealthy", Version: h.version, Database: "unreachable"},
			Error:   &dto.ErrorInfo{Code: dto.ErrCodePersistence, Message: "Database is unreachable", Retryable: true},
		})
		return
	}
	h.Success(c, HealthResponse{Status: "healthy", Version: h.version, Database: "ok"})
}
