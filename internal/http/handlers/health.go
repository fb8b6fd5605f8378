package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/agroyield-backend/internal/services"
)

const (
	serviceName    = "AgroYield API"
	serviceVersion = "1.0.0"
)

type HealthHandler struct {
	registry *services.Registry
	timeout  time.Duration
}

func NewHealthHandler(registry *services.Registry) *HealthHandler {
	return &HealthHandler{registry: registry, timeout: 2 * time.Second}
}

// GET /health
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	status := "healthy"
	backends := gin.H{}
	if h.registry != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
		defer cancel()
		for _, name := range h.registry.Backends() {
			svc, _ := h.registry.Get(name)
			if err := svc.Ping(ctx); err != nil {
				backends[name] = "unavailable"
				status = "degraded"
				continue
			}
			backends[name] = "ok"
		}
	}
	code := http.StatusOK
	if status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"status": status, "backends": backends})
}

// GET /
func (h *HealthHandler) Index(c *gin.Context) {
	endpoints := gin.H{}
	if h.registry != nil {
		for _, name := range h.registry.Backends() {
			endpoints[name] = "/api/" + name + "/records/"
		}
	}
	endpoints["health"] = "/health"
	endpoints["metrics"] = "/metrics"
	c.JSON(http.StatusOK, gin.H{
		"message":   serviceName,
		"version":   serviceVersion,
		"endpoints": endpoints,
	})
}
