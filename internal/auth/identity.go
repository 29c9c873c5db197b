package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidIdentity = errors.New("invalid identity token")

// Identity is an authenticated identity-provider user.
type Identity struct {
	UserID string
	Name   string
	Email  string
}

// IdentityVerifier validates identity-provider session tokens.
type IdentityVerifier interface {
	Verify(ctx context.Context, raw string) (Identity, error)
}

// JWKSVerifier checks tokens against the provider's published key set.
type JWKSVerifier struct {
	jwks    *keyfunc.JWKS
	issuer  string
	methods []string
}

// NewJWKSVerifier fetches the key set once and keeps it refreshed in the
// background until ctx is cancelled.
func NewJWKSVerifier(ctx context.Context, jwksURL, issuer string, log *slog.Logger) (*JWKSVerifier, error) {
	if jwksURL == "" {
		return nil, errors.New("jwks url is required")
	}
	if log == nil {
		log = slog.Default()
	}
	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
		Ctx:               ctx,
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  5 * time.Minute,
		RefreshTimeout:    10 * time.Second,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			log.Warn("jwks refresh failed", "error", err)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("load jwks: %w", err)
	}
	return NewVerifierFromJWKS(jwks, issuer, "RS256", "ES256"), nil
}

// NewVerifierFromJWKS wraps an already loaded key set.
func NewVerifierFromJWKS(jwks *keyfunc.JWKS, issuer string, methods ...string) *JWKSVerifier {
	return &JWKSVerifier{jwks: jwks, issuer: issuer, methods: methods}
}

func (v *JWKSVerifier) Verify(_ context.Context, raw string) (Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods(v.methods),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30 * time.Second),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	var claims IdentityClaims
	if _, err := jwt.ParseWithClaims(raw, &claims, v.jwks.Keyfunc, opts...); err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidIdentity, err)
	}
	if claims.Subject == "" {
		return Identity{}, fmt.Errorf("%w: sub missing", ErrInvalidIdentity)
	}
	return Identity{UserID: claims.Subject, Name: claims.Name, Email: claims.Email}, nil
}

// Close stops background refresh.
func (v *JWKSVerifier) Close() {
	if v.jwks != nil {
		v.jwks.EndBackground()
	}
}
