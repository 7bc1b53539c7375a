package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wyrexdev/velox/internal/health"
)

// handleHealth serves the liveness report with version and uptime.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, s.checker.Health())
}

// handleLive answers the plain liveness probe.
func (s *Server) handleLive(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleReady runs the readiness checks. Degraded still serves
// traffic, so only unhealthy maps to 503.
func (s *Server) handleReady(c *gin.Context) {
	report := s.checker.Readiness(c.Request.Context())

	status := http.StatusOK
	if report.Status == health.StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, report)
}

// handleRoutes lists the registered routes and match cache state.
func (s *Server) handleRoutes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"routes": s.routes.Routes(),
		"cache":  s.routes.CacheStats(),
	})
}

// handlePool reports pool occupancy and the last health probe.
func (s *Server) handlePool(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"stats":  s.workers.Stats(),
		"health": s.workers.LastHealth(),
	})
}

// handleConfig serves the redacted effective configuration.
func (s *Server) handleConfig(c *gin.Context) {
	cfg := s.configSource()
	if cfg == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "configuration unavailable"})
		return
	}
	c.JSON(http.StatusOK, cfg.Redacted())
}
