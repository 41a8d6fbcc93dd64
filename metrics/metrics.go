// Package metrics exposes the cache's Prometheus collectors. A nil
// *Collectors is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Ants-develop/MultiTenantAccounting-sub002/tier"
)

const namespace = "tenantcache"

// Collectors groups every metric the cache records.
type Collectors struct {
	hits           *prometheus.CounterVec
	misses         prometheus.Counter
	writes         *prometheus.CounterVec
	fallbackWrites prometheus.Counter
	swept          *prometheus.CounterVec
	quota          *prometheus.CounterVec
	corrupt        *prometheus.CounterVec
	capacityState  prometheus.Gauge
}

// New builds the collectors and registers them on reg. A nil reg leaves them
// unregistered, which is useful in tests and embedded setups.
func New(reg prometheus.Registerer) (*Collectors, error) {
	c := &Collectors{
		hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hits_total",
			Help:      "Live entries returned by Get, by tier.",
		}, []string{"tier"}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "misses_total",
			Help:      "Get calls that found no live entry in either tier.",
		}),
		writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "writes_total",
			Help:      "Entries written, by the tier that stored them.",
		}, []string{"tier"}),
		fallbackWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallback_writes_total",
			Help:      "Capacity-sized writes diverted to the simple tier.",
		}),
		swept: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "swept_total",
			Help:      "Expired records removed by cleanup passes, by tier.",
		}, []string{"tier"}),
		quota: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quota_recoveries_total",
			Help:      "Quota-exceeded writes handled by sweep and retry, by outcome.",
		}, []string{"outcome"}),
		corrupt: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "corrupt_entries_total",
			Help:      "Records dropped because they failed to decode, by tier.",
		}, []string{"tier"}),
		capacityState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "capacity_state",
			Help:      "Capacity tier state: 0 uninitialized, 1 opening, 2 ready, 3 failed.",
		}),
	}
	if reg == nil {
		return c, nil
	}
	for _, col := range []prometheus.Collector{
		c.hits, c.misses, c.writes, c.fallbackWrites, c.swept, c.quota, c.corrupt, c.capacityState,
	} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Hit records a live entry served from t.
func (c *Collectors) Hit(t tier.Tier) {
	if c == nil {
		return
	}
	c.hits.WithLabelValues(t.String()).Inc()
}

// Miss records a Get that found nothing live.
func (c *Collectors) Miss() {
	if c == nil {
		return
	}
	c.misses.Inc()
}

// Write records an entry stored in t.
func (c *Collectors) Write(t tier.Tier) {
	if c == nil {
		return
	}
	c.writes.WithLabelValues(t.String()).Inc()
}

// FallbackWrite records a capacity-sized write stored in the simple tier.
func (c *Collectors) FallbackWrite() {
	if c == nil {
		return
	}
	c.fallbackWrites.Inc()
}

// Swept adds n removed records for t.
func (c *Collectors) Swept(t tier.Tier, n uint64) {
	if c == nil || n == 0 {
		return
	}
	c.swept.WithLabelValues(t.String()).Add(float64(n))
}

// QuotaRecovery records the outcome of a sweep-and-retry after a quota
// failure.
func (c *Collectors) QuotaRecovery(recovered bool) {
	if c == nil {
		return
	}
	outcome := "full"
	if recovered {
		outcome = "recovered"
	}
	c.quota.WithLabelValues(outcome).Inc()
}

// Corrupt records a dropped undecodable record in t.
func (c *Collectors) Corrupt(t tier.Tier) {
	if c == nil {
		return
	}
	c.corrupt.WithLabelValues(t.String()).Inc()
}

// CapacityState publishes the capacity tier state machine position.
func (c *Collectors) CapacityState(state int) {
	if c == nil {
		return
	}
	c.capacityState.Set(float64(state))
}
