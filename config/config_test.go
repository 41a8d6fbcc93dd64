package config

import (
	"testing"
	"time"

	"go.uber.org/zap/zapcore"

	tenantcache "github.com/Ants-develop/MultiTenantAccounting-sub002"
)

var allVars = []string{
	"TENANTCACHE_DB_PATH", "TENANTCACHE_PREFIX", "TENANTCACHE_THRESHOLD_BYTES",
	"TENANTCACHE_QUOTA_BYTES", "TENANTCACHE_DEFAULT_TTL", "TENANTCACHE_SWEEP_INTERVAL",
	"TENANTCACHE_MEMO_MAX_COST", "TENANTCACHE_REDIS_ADDR", "TENANTCACHE_REDIS_PASSWORD",
	"TENANTCACHE_REDIS_DB", "LOG_LEVEL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allVars {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg := Load()

	if cfg.Prefix != "tenantcache" {
		t.Errorf("Prefix = %q", cfg.Prefix)
	}
	if cfg.DefaultTTL != tenantcache.DefaultTTL.String() {
		t.Errorf("DefaultTTL = %q", cfg.DefaultTTL)
	}
	if cfg.SweepInterval != "5m0s" {
		t.Errorf("SweepInterval = %q", cfg.SweepInterval)
	}
	if cfg.ThresholdBytes != "1048576" {
		t.Errorf("ThresholdBytes = %q", cfg.ThresholdBytes)
	}
	if cfg.RedisAddr != "" {
		t.Errorf("RedisAddr = %q, want empty", cfg.RedisAddr)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
	if lvl, _ := cfg.Level(); lvl != zapcore.InfoLevel {
		t.Errorf("Level = %v", lvl)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("TENANTCACHE_DB_PATH", "/tmp/x.db")
	t.Setenv("TENANTCACHE_DEFAULT_TTL", "90s")
	t.Setenv("TENANTCACHE_REDIS_ADDR", "localhost:6380")
	t.Setenv("TENANTCACHE_REDIS_DB", "3")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := Load()
	if cfg.DBPath != "/tmp/x.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	s, _ := cfg.parse()
	if s.defaultTTL != 90*time.Second {
		t.Errorf("defaultTTL = %v", s.defaultTTL)
	}
	if s.redisDB != 3 {
		t.Errorf("redisDB = %d", s.redisDB)
	}
	if s.level != zapcore.DebugLevel {
		t.Errorf("level = %v", s.level)
	}

	opts, err := cfg.Options()
	if err != nil {
		t.Fatalf("Options: %v", err)
	}
	if len(opts) != 8 {
		t.Errorf("expected the Redis option to be appended, got %d options", len(opts))
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"zero threshold", "TENANTCACHE_THRESHOLD_BYTES", "0"},
		{"negative quota", "TENANTCACHE_QUOTA_BYTES", "-1"},
		{"bad ttl", "TENANTCACHE_DEFAULT_TTL", "soon"},
		{"negative interval", "TENANTCACHE_SWEEP_INTERVAL", "-5m"},
		{"negative memo", "TENANTCACHE_MEMO_MAX_COST", "-1"},
		{"redis db out of range", "TENANTCACHE_REDIS_DB", "16"},
		{"bad log level", "LOG_LEVEL", "loud"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)
			cfg := Load()
			if err := cfg.Validate(); err == nil {
				t.Fatalf("%s=%q should fail validation", tt.key, tt.val)
			}
			if _, err := cfg.Options(); err == nil {
				t.Fatal("Options should refuse an invalid config")
			}
		})
	}
}
