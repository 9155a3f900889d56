package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/justmusic/justmusic-api/internal/service"
	appErrors "github.com/justmusic/justmusic-api/pkg/errors"
	"github.com/justmusic/justmusic-api/pkg/response"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler exposes liveness, readiness and observability endpoints.
type HealthHandler struct {
	store   pinger
	metrics *service.MetricsService
}

// NewHealthHandler constructs a health handler. store may be nil, in which
// case readiness always succeeds.
func NewHealthHandler(store pinger, metrics *service.MetricsService) *HealthHandler {
	return &HealthHandler{store: store, metrics: metrics}
}

// Root godoc
// @Summary Liveness banner
// @Tags Health
// @Produce plain
// @Success 200 {string} string
// @Router / [get]
func (h *HealthHandler) Root(c *gin.Context) {
	c.String(http.StatusOK, "justMusic server is running")
}

// Health godoc
// @Summary Health with runtime snapshot
// @Tags Health
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	payload := gin.H{"status": "ok"}
	if h.metrics != nil {
		payload["metrics"] = h.metrics.Snapshot()
	}
	response.OK(c, payload)
}

// Ready godoc
// @Summary Readiness
// @Description Fails with 503 when the document store does not answer a ping
// @Tags Health
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	if h.store != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.store.Ping(ctx); err != nil {
			response.Error(c, appErrors.Wrap(err, "NOT_READY", http.StatusServiceUnavailable, "document store unavailable"))
			return
		}
	}
	response.OK(c, gin.H{"status": "ready"})
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *HealthHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}
