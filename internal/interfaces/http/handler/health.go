package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	appintegration "github.com/scafi/backend/internal/application/integration"
	"github.com/scafi/backend/internal/domain/integration"
	"github.com/scafi/backend/internal/interfaces/http/dto"
)

// HealthHandler exposes the liveness and readiness probes
type HealthHandler struct {
	BaseHandler
	health *appintegration.HealthService
	modes  integration.ExecutionModes
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(health *appintegration.HealthService, modes integration.ExecutionModes) *HealthHandler {
	return &HealthHandler{health: health, modes: modes}
}

// RegisterRoutes registers probe routes
func (h *HealthHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/healthz", h.Liveness)
	rg.GET("/readyz", h.Readiness)
}

// Liveness answers as long as the process serves requests; it checks nothing
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readiness probes each live dependency and reports the composite verdict.
// Dry-run dependencies are skipped, so a fully dry-run deployment is ready.
func (h *HealthHandler) Readiness(c *gin.Context) {
	status := h.health.Check(c.Request.Context(), h.modes)

	if !status.Ready() {
		c.JSON(http.StatusServiceUnavailable, dto.Response{
			Success: false,
			Data:    status,
			Error: &dto.ErrorInfo{
				Code:    "ERR_NOT_READY",
				Message: "one or more dependencies are unavailable",
			},
		})
		return
	}

	h.Success(c, status)
}
