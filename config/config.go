// Package config loads tenantcache settings from the environment.
//
// Environment Variables:
//
//   - TENANTCACHE_DB_PATH: capacity tier bbolt file (default: user cache dir)
//   - TENANTCACHE_PREFIX: simple tier key prefix (default: tenantcache)
//   - TENANTCACHE_THRESHOLD_BYTES: capacity tier threshold (default: 1048576)
//   - TENANTCACHE_QUOTA_BYTES: in-memory simple tier quota (default: 5242880)
//   - TENANTCACHE_DEFAULT_TTL: ttl used when none is given (default: 30m)
//   - TENANTCACHE_SWEEP_INTERVAL: expiry sweep interval (default: 5m)
//   - TENANTCACHE_MEMO_MAX_COST: capacity read memo budget in bytes (default: 16777216, 0 disables)
//   - TENANTCACHE_REDIS_ADDR: keep the simple tier in Redis at this address (default: in-memory)
//   - TENANTCACHE_REDIS_PASSWORD: Redis password
//   - TENANTCACHE_REDIS_DB: Redis database number 0-15 (default: 0)
//   - LOG_LEVEL: debug, info, warn or error (default: info)
//
// Example usage:
//
//	cfg := config.Load()
//	if err := cfg.Validate(); err != nil {
//		return err
//	}
//	opts, _ := cfg.Options()
//	c, err := tenantcache.Open(ctx, opts...)
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap/zapcore"

	tenantcache "github.com/Ants-develop/MultiTenantAccounting-sub002"
	"github.com/Ants-develop/MultiTenantAccounting-sub002/simple"
)

// Config holds raw values as read from the environment. Validate parses
// them.
type Config struct {
	DBPath         string
	Prefix         string
	ThresholdBytes string
	QuotaBytes     string
	DefaultTTL     string
	SweepInterval  string
	MemoMaxCost    string

	RedisAddr     string
	RedisPassword string
	RedisDB       string

	LogLevel string
}

// Load reads the environment, falling back to defaults for unset variables.
// It does not validate.
func Load() *Config {
	return &Config{
		DBPath:         getEnv("TENANTCACHE_DB_PATH", tenantcache.DefaultCapacityPath()),
		Prefix:         getEnv("TENANTCACHE_PREFIX", simple.DefaultPrefix),
		ThresholdBytes: getEnv("TENANTCACHE_THRESHOLD_BYTES", strconv.FormatUint(tenantcache.DefaultThreshold, 10)),
		QuotaBytes:     getEnv("TENANTCACHE_QUOTA_BYTES", strconv.Itoa(simple.DefaultQuota)),
		DefaultTTL:     getEnv("TENANTCACHE_DEFAULT_TTL", tenantcache.DefaultTTL.String()),
		SweepInterval:  getEnv("TENANTCACHE_SWEEP_INTERVAL", tenantcache.DefaultSweepInterval.String()),
		MemoMaxCost:    getEnv("TENANTCACHE_MEMO_MAX_COST", strconv.Itoa(16<<20)),

		RedisAddr:     getEnv("TENANTCACHE_REDIS_ADDR", ""),
		RedisPassword: getEnv("TENANTCACHE_REDIS_PASSWORD", ""),
		RedisDB:       getEnv("TENANTCACHE_REDIS_DB", "0"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

type settings struct {
	threshold     uint64
	quota         int
	defaultTTL    time.Duration
	sweepInterval time.Duration
	memoMaxCost   int64
	redisDB       int
	level         zapcore.Level
}

func (c *Config) parse() (settings, error) {
	var s settings
	var err error

	if s.threshold, err = strconv.ParseUint(c.ThresholdBytes, 10, 64); err != nil || s.threshold == 0 {
		return s, fmt.Errorf("TENANTCACHE_THRESHOLD_BYTES must be a positive integer")
	}
	if s.quota, err = strconv.Atoi(c.QuotaBytes); err != nil || s.quota <= 0 {
		return s, fmt.Errorf("TENANTCACHE_QUOTA_BYTES must be a positive integer")
	}
	if s.defaultTTL, err = time.ParseDuration(c.DefaultTTL); err != nil || s.defaultTTL <= 0 {
		return s, fmt.Errorf("TENANTCACHE_DEFAULT_TTL must be a positive duration like 30m")
	}
	if s.sweepInterval, err = time.ParseDuration(c.SweepInterval); err != nil || s.sweepInterval <= 0 {
		return s, fmt.Errorf("TENANTCACHE_SWEEP_INTERVAL must be a positive duration like 5m")
	}
	if s.memoMaxCost, err = strconv.ParseInt(c.MemoMaxCost, 10, 64); err != nil || s.memoMaxCost < 0 {
		return s, fmt.Errorf("TENANTCACHE_MEMO_MAX_COST must be a non-negative integer")
	}
	if s.redisDB, err = strconv.Atoi(c.RedisDB); err != nil || s.redisDB < 0 || s.redisDB > 15 {
		return s, fmt.Errorf("TENANTCACHE_REDIS_DB must be between 0 and 15")
	}
	if s.level, err = zapcore.ParseLevel(c.LogLevel); err != nil {
		return s, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return s, nil
}

// Validate checks that every value parses and is in range.
func (c *Config) Validate() error {
	_, err := c.parse()
	return err
}

// Level returns the parsed LOG_LEVEL.
func (c *Config) Level() (zapcore.Level, error) {
	s, err := c.parse()
	return s.level, err
}

// Options converts the configuration to cache options.
func (c *Config) Options() ([]tenantcache.Option, error) {
	s, err := c.parse()
	if err != nil {
		return nil, err
	}
	opts := []tenantcache.Option{
		tenantcache.WithCapacityPath(c.DBPath),
		tenantcache.WithPrefix(c.Prefix),
		tenantcache.WithThreshold(s.threshold),
		tenantcache.WithQuota(s.quota),
		tenantcache.WithDefaultTTL(s.defaultTTL),
		tenantcache.WithSweepInterval(s.sweepInterval),
		tenantcache.WithMemo(s.memoMaxCost),
	}
	if c.RedisAddr != "" {
		opts = append(opts, tenantcache.WithRedis(simple.RedisOptions{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       s.redisDB,
		}))
	}
	return opts, nil
}
