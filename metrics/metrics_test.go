package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Ants-develop/MultiTenantAccounting-sub002/tier"
)

func TestCollectors_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := New(reg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	c.Hit(tier.Capacity)
	c.Hit(tier.Capacity)
	c.Hit(tier.Simple)
	c.Miss()
	c.Write(tier.Simple)
	c.FallbackWrite()
	c.Swept(tier.Simple, 3)
	c.Swept(tier.Simple, 0)
	c.QuotaRecovery(true)
	c.QuotaRecovery(false)
	c.Corrupt(tier.Simple)
	c.CapacityState(2)

	if got := testutil.ToFloat64(c.hits.WithLabelValues("capacity")); got != 2 {
		t.Fatalf("capacity hits: got %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.swept.WithLabelValues("simple")); got != 3 {
		t.Fatalf("simple swept: got %v, want 3", got)
	}
	if got := testutil.ToFloat64(c.quota.WithLabelValues("full")); got != 1 {
		t.Fatalf("quota full: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.capacityState); got != 2 {
		t.Fatalf("capacity state: got %v, want 2", got)
	}
	if n := testutil.CollectAndCount(c.hits); n != 2 {
		t.Fatalf("hit series: got %d, want 2", n)
	}
}

func TestCollectors_DoubleRegisterFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := New(reg); err != nil {
		t.Fatalf("first New: %v", err)
	}
	if _, err := New(reg); err == nil {
		t.Fatal("expected duplicate registration error")
	}
}

func TestCollectors_NilIsNoop(t *testing.T) {
	var c *Collectors
	c.Hit(tier.Simple)
	c.Miss()
	c.Write(tier.Capacity)
	c.FallbackWrite()
	c.Swept(tier.Capacity, 1)
	c.QuotaRecovery(true)
	c.Corrupt(tier.Capacity)
	c.CapacityState(3)
}
