package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/codeready-toolchain/secretmask/pkg/database"
	"github.com/codeready-toolchain/secretmask/pkg/version"
)

// healthHandler handles GET /health.
// The database is only checked when run history is enabled.
func (s *Server) healthHandler(c *gin.Context) {
	status := healthStatusHealthy
	var checks map[string]HealthCheck

	if s.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		checks = make(map[string]HealthCheck)
		if _, err := database.Health(ctx, s.db); err != nil {
			status = healthStatusUnhealthy
			checks["database"] = HealthCheck{Status: healthStatusUnhealthy, Message: err.Error()}
		} else {
			checks["database"] = HealthCheck{Status: healthStatusHealthy}
		}
	}

	httpStatus := http.StatusOK
	if status == healthStatusUnhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, &HealthResponse{
		Status:  status,
		Version: version.GitCommit,
		Checks:  checks,
	})
}
