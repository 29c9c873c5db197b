package httpapi

import (
	"meeting-platform/internal/auth"
	"meeting-platform/internal/meetings"
	"meeting-platform/internal/ratelimit"

	"github.com/gin-gonic/gin"
)

// Deps is everything the issuance API needs.
type Deps struct {
	Meetings *meetings.Service
	Limiter  ratelimit.Limiter
	Identity auth.IdentityVerifier

	AllowedOrigins []string
	APIKeys        []string

	// Development disables the origin check and rate limiting.
	Development bool
}

// Register mounts the /api routes. Guard order is origin, then rate limit,
// then API key; the handlers check configuration and body after that.
func Register(r gin.IRouter, d Deps) {
	h := Handlers{Meetings: d.Meetings}

	var limiter ratelimit.Limiter = ratelimit.Unlimited{}
	if !d.Development && d.Limiter != nil {
		limiter = d.Limiter
	}
	api := r.Group("/api")
	{
		api.OPTIONS("/meetings", h.Preflight)
		api.OPTIONS("/token", h.Preflight)
	}

	guarded := api.Group("",
		RequireAllowedOrigin(d.AllowedOrigins, d.Development),
		RateLimit(limiter),
		RequireAPIKey(d.APIKeys),
	)
	{
		guarded.POST("/meetings", h.CreateMeeting)
		guarded.GET("/meetings/:id", h.GetMeeting)
		guarded.POST("/token", auth.OptionalIdentity(d.Identity), h.IssueToken)
	}
}
