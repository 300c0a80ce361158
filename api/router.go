package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/portsync/api/handler"
	"github.com/use-agent/portsync/api/middleware"
	"github.com/use-agent/portsync/config"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
func NewRouter(svc handler.Syncer, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")

	// Health: no auth, so monitoring probes always work.
	v1.GET("/health", handler.Health(svc, startTime))

	// Protected group: auth + rate limit.
	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	// Sync
	protected.POST("/sync", handler.Sync(svc, cfg.Scraper))

	return r
}
