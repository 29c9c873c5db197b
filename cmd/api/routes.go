package main

import (
	"database/sql"
	"net/http"
	"time"

	"meeting-platform/internal/auth"
	"meeting-platform/internal/config"
	"meeting-platform/internal/httpapi"
	"meeting-platform/internal/meetings"
	"meeting-platform/internal/ratelimit"
	"meeting-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

type routeDeps struct {
	cfg      config.Config
	meetings *meetings.Service
	limiter  ratelimit.Limiter
	identity auth.IdentityVerifier
	db       *sql.DB
	redis    *redis.Client
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, d routeDeps) {
	r.GET("/healthz", healthz(d))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	httpapi.Register(r, httpapi.Deps{
		Meetings:       d.meetings,
		Limiter:        d.limiter,
		Identity:       d.identity,
		AllowedOrigins: d.cfg.CORS.AllowedOrigins,
		APIKeys:        d.cfg.RateLimit.ExternalAPIKeys,
		Development:    d.cfg.IsDevelopment(),
	})
}

func healthz(d routeDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := gin.H{
			"status":              "ok",
			"platform_configured": d.meetings.Configured(),
		}
		code := http.StatusOK
		if d.db != nil {
			if err := utils.HealthCheck(c.Request.Context(), d.db, 2*time.Second); err != nil {
				status["postgres"] = err.Error()
				code = http.StatusServiceUnavailable
			}
		}
		if d.redis != nil {
			if err := d.redis.Ping(c.Request.Context()).Err(); err != nil {
				status["redis"] = err.Error()
				code = http.StatusServiceUnavailable
			}
		}
		if code != http.StatusOK {
			status["status"] = "degraded"
		}
		c.JSON(code, status)
	}
}
