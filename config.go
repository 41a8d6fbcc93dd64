package tenantcache

import (
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/Ants-develop/MultiTenantAccounting-sub002/simple"
	"github.com/Ants-develop/MultiTenantAccounting-sub002/tracing"
)

// config holds the internal configuration assembled via functional options.
type config struct {
	capacityPath        string
	capacityOpenTimeout time.Duration
	memoMaxCost         int64

	prefix string
	quota  int
	medium simple.Medium
	redis  *simple.RedisOptions

	threshold     uint64
	defaultTTL    time.Duration
	sweepInterval time.Duration
	noSweeper     bool

	clock    clock.Clock
	logger   *zap.Logger
	registry prometheus.Registerer
	tracing  *tracing.Config
}

func newConfig(opts []Option) config {
	cfg := config{
		threshold:     DefaultThreshold,
		defaultTTL:    DefaultTTL,
		sweepInterval: DefaultSweepInterval,
		quota:         simple.DefaultQuota,
	}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.clock == nil {
		cfg.clock = clock.New()
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}
	return cfg
}
