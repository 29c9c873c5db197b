package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingSecret = errors.New("platform api secret is required")
	ErrMissingUserID = errors.New("user_id is required")
)

// Signer mints HS256 tokens the call/chat platform accepts.
//
// User tokens are backdated by skew so that clients whose clock runs slightly
// behind the platform still see a valid iat.
type Signer struct {
	secret []byte
	ttl    time.Duration
	skew   time.Duration
}

func NewSigner(secret string, ttl, skew time.Duration) (*Signer, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	if skew < 0 {
		skew = 0
	}
	return &Signer{secret: []byte(secret), ttl: ttl, skew: skew}, nil
}

// Window returns the issued-at and expiry used for a token minted at now.
func (s *Signer) Window(now time.Time) (issuedAt, expiresAt time.Time) {
	now = now.Truncate(time.Second)
	return now.Add(-s.skew), now.Add(s.ttl)
}

// UserToken returns a user token plus its expiry.
func (s *Signer) UserToken(userID string, now time.Time) (string, time.Time, error) {
	if userID == "" {
		return "", time.Time{}, ErrMissingUserID
	}
	iat, exp := s.Window(now)
	tok, err := s.sign(Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		UserID: userID,
	})
	return tok, exp, err
}

// ServerToken authorizes server-side REST calls. It has no expiry, matching
// what the platform's own server SDKs send.
func (s *Signer) ServerToken() (string, error) {
	return s.sign(Claims{Server: true})
}

// Verify parses a token minted by this signer. Used for diagnostics and tests.
func (s *Signer) Verify(tokenString string, now time.Time) (Claims, error) {
	var claims Claims

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithLeeway(s.skew),
	)
	_, err := parser.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		return Claims{}, err
	}
	if !claims.Server && claims.UserID == "" {
		return Claims{}, ErrMissingUserID
	}
	return claims, nil
}

func (s *Signer) sign(claims Claims) (string, error) {
	return s.Sign(claims)
}

// Sign signs arbitrary claims with the platform secret. Adapters whose
// platform needs its own claim shape use it together with Window.
func (s *Signer) Sign(claims jwt.Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.secret)
}
