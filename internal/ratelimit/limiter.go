// Package ratelimit implements the per-key fixed-window limiter in front of
// the credential endpoints.
package ratelimit

import (
	"context"
	"errors"
	"time"
)

var ErrInvalidConfig = errors.New("ratelimit: max and window must be positive")

// Limiter decides whether one more request for key is admitted.
//
// A key's window opens at its first request with count 1. Once more than
// Window has elapsed since the window opened, the next request opens a new
// window. While count has reached Max, requests are rejected and not counted.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type Config struct {
	Max    int
	Window time.Duration
}

func (c Config) validate() error {
	if c.Max <= 0 || c.Window <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// Clock lets tests drive time.
type Clock func() time.Time

// Unlimited admits everything. Used in development mode.
type Unlimited struct{}

func (Unlimited) Allow(context.Context, string) (bool, error) { return true, nil }
