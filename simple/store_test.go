package simple

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/Ants-develop/MultiTenantAccounting-sub002/storage"
)

func newTestStore(t *testing.T, quota int) (*Store, *MemoryMedium, *clock.Mock) {
	t.Helper()
	m := NewMemoryMedium(quota)
	mock := clock.NewMock()
	mock.Set(time.UnixMilli(1_700_000_000_000))
	return New(m, Options{Clock: mock}), m, mock
}

func mkEntry(data string, ns storage.TenantID, at time.Time, ttl time.Duration) storage.Entry {
	return storage.NewEntry(json.RawMessage(data), ns, at, ttl)
}

func TestKeyScheme(t *testing.T) {
	s := New(NewMemoryMedium(0), Options{})
	if got := s.Key(42, "ledger-page-1"); got != "tenantcache:42:ledger-page-1" {
		t.Fatalf("got %q", got)
	}
	s = New(NewMemoryMedium(0), Options{Prefix: "mta"})
	if got := s.Key(-1, "a:b"); got != "mta:-1:a:b" {
		t.Fatalf("got %q", got)
	}
}

func TestPutGet_RoundTrip(t *testing.T) {
	s, m, mock := newTestStore(t, 0)
	ctx := t.Context()

	want := mkEntry(`{"rows":[1,2,3]}`, 42, mock.Now(), time.Minute)
	if err := s.Put(ctx, 42, "grid", want); err != nil {
		t.Fatalf("Put: %v", err)
	}

	raw, ok, _ := m.Get(ctx, "tenantcache:42:grid")
	if !ok {
		t.Fatal("expected the literal key scheme in the medium")
	}
	var onDisk storage.Entry
	if err := json.Unmarshal(raw, &onDisk); err != nil {
		t.Fatalf("stored value is not JSON: %v", err)
	}

	got, ok, err := s.Get(ctx, 42, "grid")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if string(got.Data) != string(want.Data) || got.ExpiresAt != want.ExpiresAt {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestNamespaceIsolation(t *testing.T) {
	s, _, mock := newTestStore(t, 0)
	ctx := t.Context()
	now := mock.Now()

	_ = s.Put(ctx, 1, "k", mkEntry(`"A"`, 1, now, time.Minute))
	_ = s.Put(ctx, 12, "k", mkEntry(`"B"`, 12, now, time.Minute))

	if err := s.ClearNamespace(ctx, 1); err != nil {
		t.Fatalf("ClearNamespace: %v", err)
	}
	if _, ok, _ := s.Get(ctx, 1, "k"); ok {
		t.Fatal("namespace 1 survived its clear")
	}
	// "tenantcache:1:" must not match "tenantcache:12:".
	got, ok, _ := s.Get(ctx, 12, "k")
	if !ok || string(got.Data) != `"B"` {
		t.Fatal("clearing namespace 1 touched namespace 12")
	}
}

func TestClearAll_LeavesForeignKeys(t *testing.T) {
	s, m, mock := newTestStore(t, 0)
	ctx := t.Context()

	_ = m.Set(ctx, "session:token", []byte("abc"))
	_ = s.Put(ctx, 1, "a", mkEntry(`1`, 1, mock.Now(), time.Minute))
	_ = s.Put(ctx, 2, "b", mkEntry(`2`, 2, mock.Now(), time.Minute))

	for i := range 2 {
		if err := s.ClearAll(ctx); err != nil {
			t.Fatalf("ClearAll #%d: %v", i+1, err)
		}
	}
	if n, _ := s.Len(ctx); n != 0 {
		t.Fatalf("expected no owned keys, got %d", n)
	}
	if _, ok, _ := m.Get(ctx, "session:token"); !ok {
		t.Fatal("ClearAll removed a key it does not own")
	}
}

func TestGet_CorruptEntryDropped(t *testing.T) {
	s, m, _ := newTestStore(t, 0)
	ctx := t.Context()

	_ = m.Set(ctx, s.Key(7, "bad"), []byte("{not json"))
	if _, ok, err := s.Get(ctx, 7, "bad"); err != nil || ok {
		t.Fatalf("expected silent miss, got ok=%v err=%v", ok, err)
	}
	if _, ok, _ := m.Get(ctx, s.Key(7, "bad")); ok {
		t.Fatal("corrupt key not removed")
	}
}

func TestGet_ForeignNamespaceTreatedAsCorrupt(t *testing.T) {
	s, m, mock := newTestStore(t, 0)
	ctx := t.Context()

	// A record filed under tenant 7 that claims tenant 8.
	buf, _ := json.Marshal(mkEntry(`"leak"`, 8, mock.Now(), time.Minute))
	_ = m.Set(ctx, s.Key(7, "k"), buf)

	if _, ok, _ := s.Get(ctx, 7, "k"); ok {
		t.Fatal("returned a record owned by another namespace")
	}
}

func TestSweepExpired(t *testing.T) {
	s, m, mock := newTestStore(t, 0)
	ctx := t.Context()
	now := mock.Now()

	_ = s.Put(ctx, 1, "old", mkEntry(`1`, 1, now, time.Second))
	_ = s.Put(ctx, 2, "old", mkEntry(`1`, 2, now, time.Second))
	_ = s.Put(ctx, 1, "fresh", mkEntry(`1`, 1, now, time.Hour))
	_ = m.Set(ctx, "tenantcache:x:broken", []byte("zzz"))

	n, err := s.SweepExpired(ctx, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("SweepExpired: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 removed (2 expired, 1 corrupt), got %d", n)
	}
	if _, ok, _ := s.Get(ctx, 1, "fresh"); !ok {
		t.Fatal("live entry swept")
	}
}

func TestPut_QuotaRecoveredBySweep(t *testing.T) {
	s, m, mock := newTestStore(t, 4096)
	ctx := t.Context()
	past := mock.Now().Add(-time.Hour)

	filler := `"` + strings.Repeat("x", 900) + `"`
	for _, k := range []string{"a", "b", "c", "d"} {
		if err := s.Put(ctx, 1, k, mkEntry(filler, 1, past, time.Minute)); err != nil {
			t.Fatalf("preload %s: %v", k, err)
		}
	}
	before := m.Used()

	big := `"` + strings.Repeat("y", 1500) + `"`
	if err := m.Set(ctx, "probe", []byte(big)); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("test setup: expected the medium to be full, used=%d", before)
	}

	if err := s.Put(ctx, 1, "new", mkEntry(big, 1, mock.Now(), time.Minute)); err != nil {
		t.Fatalf("expected sweep-and-retry to make room, got %v", err)
	}
	for _, k := range []string{"a", "b", "c", "d"} {
		if _, ok, _ := m.Get(ctx, s.Key(1, k)); ok {
			t.Fatalf("expired entry %q still present after recovery", k)
		}
	}
	if _, ok, _ := s.Get(ctx, 1, "new"); !ok {
		t.Fatal("recovered write not readable")
	}
}

func TestPut_FullAfterRetry(t *testing.T) {
	s, _, mock := newTestStore(t, 1024)
	ctx := t.Context()

	filler := `"` + strings.Repeat("x", 600) + `"`
	if err := s.Put(ctx, 1, "live", mkEntry(filler, 1, mock.Now(), time.Hour)); err != nil {
		t.Fatalf("preload: %v", err)
	}

	err := s.Put(ctx, 1, "next", mkEntry(filler, 1, mock.Now(), time.Hour))
	if !errors.Is(err, storage.ErrFull) {
		t.Fatalf("expected ErrFull, got %v", err)
	}
	if _, ok, _ := s.Get(ctx, 1, "live"); !ok {
		t.Fatal("failed write disturbed the live entry")
	}
}

type failingMedium struct {
	*MemoryMedium
	err error
}

func (f failingMedium) Set(context.Context, string, []byte) error { return f.err }

func TestPut_MediumFailureIsUnavailable(t *testing.T) {
	s := New(failingMedium{MemoryMedium: NewMemoryMedium(0), err: errors.New("disk gone")}, Options{})
	err := s.Put(t.Context(), 1, "k", mkEntry(`1`, 1, time.Now(), time.Minute))
	if !errors.Is(err, storage.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
