package httpapi

import (
	"net/http"
	"strings"

	"meeting-platform/internal/metrics"
	"meeting-platform/internal/ratelimit"
	"meeting-platform/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

const (
	headerOrigin = "Origin"
	headerAPIKey = "x-api-key"

	anonymousCaller = "anonymous"
	msgRateLimited  = "Too many requests. Please try again later."
	msgBadAPIKey    = "Invalid or missing API key"
)

// callerKey is the rate-limit and audit key for a request.
func callerKey(c *gin.Context) string {
	if k := strings.TrimSpace(c.GetHeader(headerAPIKey)); k != "" {
		return k
	}
	return anonymousCaller
}

// RequireAllowedOrigin rejects browser requests from origins outside the
// allow-list. Requests without an Origin header pass. In development every
// origin is accepted.
func RequireAllowedOrigin(allowed []string, development bool) gin.HandlerFunc {
	set := lo.SliceToMap(allowed, func(o string) (string, struct{}) { return o, struct{}{} })
	return func(c *gin.Context) {
		origin := c.GetHeader(headerOrigin)
		if origin == "" || development {
			c.Next()
			return
		}
		if _, ok := set[origin]; !ok {
			logger.FromGin(c).Info("origin rejected", "origin", origin)
			metrics.RecordRejected(metrics.ReasonOrigin)
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		c.Next()
	}
}

// RateLimit admits requests per caller key. A limiter backend error is
// logged and the request is let through.
func RateLimit(l ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := callerKey(c)
		ok, err := l.Allow(c.Request.Context(), key)
		if err != nil {
			metrics.RateLimiterErrors.Inc()
			logger.FromGin(c).Warn("rate limiter unavailable", "error", err)
			c.Next()
			return
		}
		if !ok {
			metrics.RecordRejected(metrics.ReasonRateLimited)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": msgRateLimited})
			return
		}
		c.Next()
	}
}

// RequireAPIKey enforces the external API key allow-list when one is configured.
func RequireAPIKey(keys []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(keys) == 0 {
			c.Next()
			return
		}
		key := strings.TrimSpace(c.GetHeader(headerAPIKey))
		if key == "" || !lo.Contains(keys, key) {
			metrics.RecordRejected(metrics.ReasonAPIKey)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msgBadAPIKey})
			return
		}
		c.Next()
	}
}

// allowOrigin echoes the caller's origin on a successful response.
func allowOrigin(c *gin.Context) {
	origin := c.GetHeader(headerOrigin)
	if origin == "" {
		return
	}
	h := c.Writer.Header()
	h.Set("Access-Control-Allow-Origin", origin)
	h.Set("Access-Control-Allow-Methods", "POST")
	h.Set("Access-Control-Allow-Headers", "Content-Type, x-api-key")
}
