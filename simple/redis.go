package simple

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/Ants-develop/MultiTenantAccounting-sub002/breaker"
)

// RedisOptions configures a RedisMedium.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int

	// Breaker guards the connection. The zero value uses
	// breaker.DefaultConfig.
	Breaker breaker.Config
}

// RedisMedium keeps the simple tier in Redis. The server's maxmemory limit
// plays the role of the quota: an OOM reply maps to ErrQuotaExceeded.
// Repeated connection failures trip a breaker, after which calls fail fast
// with ErrMediumUnavailable until a probe succeeds.
type RedisMedium struct {
	rdb *redis.Client
	brk *breaker.Breaker
}

// NewRedisMedium creates a Redis-backed medium. No connection is made until
// the first call.
func NewRedisMedium(opts RedisOptions) *RedisMedium {
	cfg := opts.Breaker
	if cfg.FailureThreshold == 0 {
		cfg = breaker.DefaultConfig()
		cfg.Clock = opts.Breaker.Clock
	}
	return &RedisMedium{
		rdb: redis.NewClient(&redis.Options{
			Addr:     opts.Addr,
			Password: opts.Password,
			DB:       opts.DB,
		}),
		brk: breaker.New(cfg),
	}
}

func (r *RedisMedium) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var val []byte
	err := r.do(func() error {
		var err error
		val, err = r.rdb.Get(ctx, key).Bytes()
		return err
	})
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (r *RedisMedium) Set(ctx context.Context, key string, value []byte) error {
	err := r.do(func() error {
		return r.rdb.Set(ctx, key, value, 0).Err()
	})
	if isOOM(err) {
		return fmt.Errorf("%w: %w", ErrQuotaExceeded, err)
	}
	return err
}

func (r *RedisMedium) Remove(ctx context.Context, key string) error {
	return r.do(func() error {
		return r.rdb.Del(ctx, key).Err()
	})
}

func (r *RedisMedium) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := r.do(func() error {
		iter := r.rdb.Scan(ctx, 0, escapeGlob(prefix)+"*", 0).Iterator()
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		return iter.Err()
	})
	return keys, err
}

// Ping checks the Redis connection.
func (r *RedisMedium) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

// Close closes the underlying Redis client.
func (r *RedisMedium) Close() error {
	return r.rdb.Close()
}

func (r *RedisMedium) do(fn func() error) error {
	err := r.brk.Do(fn, countsAgainstBreaker)
	if errors.Is(err, breaker.ErrOpen) {
		return fmt.Errorf("%w: %w", ErrMediumUnavailable, err)
	}
	return err
}

// countsAgainstBreaker treats only transport-level failures as a sign the
// server is gone. Misses and full-memory replies prove it is alive.
func countsAgainstBreaker(err error) bool {
	return !errors.Is(err, redis.Nil) && !isOOM(err)
}

func isOOM(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "OOM ")
}

// escapeGlob quotes the characters SCAN MATCH treats as pattern syntax.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
