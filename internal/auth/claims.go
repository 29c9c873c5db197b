package auth

import "github.com/golang-jwt/jwt/v5"

// Claims is the platform token shape. User tokens carry UserID; the server
// token used for REST calls carries Server instead.
type Claims struct {
	jwt.RegisteredClaims

	UserID string `json:"user_id,omitempty"`
	Server bool   `json:"server,omitempty"`
}

// IdentityClaims is what we read from identity-provider session tokens.
type IdentityClaims struct {
	jwt.RegisteredClaims

	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}
