// Package sweeper runs a cache's expiry cleanup on a fixed interval.
package sweeper

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

// DefaultInterval is used when Options.Interval is zero or less.
const DefaultInterval = 5 * time.Minute

// Sweepable is anything that can drop its expired entries. The sweeper holds
// no cache state of its own.
type Sweepable interface {
	CleanupExpired(ctx context.Context) uint64
}

// Options configures a Sweeper.
type Options struct {
	Interval time.Duration
	Clock    clock.Clock
	Logger   *zap.Logger
}

// Sweeper calls target.CleanupExpired once on Start and then every Interval
// until Stop.
type Sweeper struct {
	target   Sweepable
	interval time.Duration
	clock    clock.Clock
	log      *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a stopped Sweeper.
func New(target Sweepable, opts Options) *Sweeper {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Sweeper{
		target:   target,
		interval: opts.Interval,
		clock:    opts.Clock,
		log:      opts.Logger,
	}
}

// Start runs one pass synchronously and then launches the periodic loop.
// Calling Start on a running sweeper does nothing. The loop ends when ctx is
// done or Stop is called.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil {
		return
	}

	s.sweep(ctx)

	ctx, cancel := context.WithCancel(ctx)
	ticker := s.clock.Ticker(s.interval)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweep(ctx)
			}
		}
	}()
}

// Stop ends the loop and waits for an in-flight pass to finish. It is safe
// to call more than once, and before Start.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether the periodic loop is active.
func (s *Sweeper) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done != nil
}

func (s *Sweeper) sweep(ctx context.Context) {
	start := s.clock.Now()
	n := s.target.CleanupExpired(ctx)
	if n > 0 {
		s.log.Info("expired entries swept",
			zap.Uint64("removed", n), zap.Duration("took", s.clock.Since(start)))
	} else {
		s.log.Debug("sweep found nothing to remove")
	}
}
