package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/portsync/models"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// Health returns a handler for GET /api/v1/health.
//
// Reports "busy" while a sync cycle holds a page.
func Health(svc Syncer, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		active := svc.ActiveSessions()

		status := "healthy"
		if active > 0 {
			status = "busy"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:         status,
			Uptime:         time.Since(startTime).Round(time.Second).String(),
			ActiveSessions: active,
			Version:        Version,
		})
	}
}
