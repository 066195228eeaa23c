// Package ratelimit throttles outbound notifications per recipient.
package ratelimit

import (
	"context"
	"errors"
	"time"
)

// Limiter decides whether an action identified by key may proceed now.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Config is a token-bucket shape: Burst tokens refilled at PerMinute tokens per minute.
type Config struct {
	PerMinute float64
	Burst     int
}

func (c Config) validate() error {
	if c.PerMinute <= 0 {
		return errors.New("rate limiter rate must be positive")
	}
	if c.Burst <= 0 {
		return errors.New("rate limiter burst must be positive")
	}
	return nil
}

func (c Config) perSecond() float64 {
	return c.PerMinute / 60
}

// ttl is how long an idle bucket is kept: twice the time to refill from empty.
func (c Config) ttl() time.Duration {
	seconds := float64(c.Burst) / c.perSecond() * 2
	if seconds < 1 {
		seconds = 1
	}
	return time.Duration(seconds * float64(time.Second))
}
