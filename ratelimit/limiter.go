// Package ratelimit provides a token-bucket limiter backed by
// golang.org/x/time/rate. The cache uses it to throttle repeated
// degraded-mode warnings so a dead capacity tier does not flood the log.
package ratelimit

import (
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/time/rate"
)

// Limiter wraps a token-bucket limiter that decides whether an event should
// be let through.
type Limiter struct {
	lim   *rate.Limiter
	clock clock.Clock
}

// NewLimiter creates a Limiter that permits one event every interval with the
// given burst size. A nil clk means the wall clock.
func NewLimiter(every time.Duration, burst int, clk clock.Clock) *Limiter {
	if clk == nil {
		clk = clock.New()
	}
	return &Limiter{lim: rate.NewLimiter(rate.Every(every), burst), clock: clk}
}

// Allow reports whether a single event may proceed.
func (l *Limiter) Allow() bool {
	return l.lim.AllowN(l.clock.Now(), 1)
}
