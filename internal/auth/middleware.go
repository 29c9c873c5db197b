package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const authorizationHeader = "Authorization"
const bearerPrefix = "Bearer "

// OptionalIdentity injects the caller's identity when a bearer token is sent.
// Requests without one continue anonymously; a token that fails verification is 401.
// A nil verifier disables identity lookups entirely.
func OptionalIdentity(v IdentityVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if v == nil {
			c.Next()
			return
		}
		raw := strings.TrimSpace(c.GetHeader(authorizationHeader))
		if raw == "" || !strings.HasPrefix(raw, bearerPrefix) {
			c.Next()
			return
		}

		id, err := v.Verify(c.Request.Context(), strings.TrimSpace(strings.TrimPrefix(raw, bearerPrefix)))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), id.UserID, id.Name))
		c.Set("user_id", id.UserID)
		c.Next()
	}
}
