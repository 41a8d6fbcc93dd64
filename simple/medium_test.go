package simple

import (
	"errors"
	"testing"
)

func TestMemoryMedium_QuotaAccounting(t *testing.T) {
	m := NewMemoryMedium(20)
	ctx := t.Context()

	if err := m.Set(ctx, "abc", []byte("0123456789")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got := m.Used(); got != 13 {
		t.Fatalf("used: got %d, want 13", got)
	}

	// Overwrite is charged by the difference, not the sum.
	if err := m.Set(ctx, "abc", []byte("0123456789abcdef!")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if got := m.Used(); got != 20 {
		t.Fatalf("used after overwrite: got %d, want 20", got)
	}

	if err := m.Set(ctx, "x", []byte("y")); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
	if _, ok, _ := m.Get(ctx, "x"); ok {
		t.Fatal("rejected write became visible")
	}

	_ = m.Remove(ctx, "abc")
	_ = m.Remove(ctx, "abc")
	if got := m.Used(); got != 0 {
		t.Fatalf("used after remove: got %d, want 0", got)
	}
}

func TestMemoryMedium_DefaultQuota(t *testing.T) {
	if q := NewMemoryMedium(0).Quota(); q != DefaultQuota {
		t.Fatalf("got %d, want %d", q, DefaultQuota)
	}
}

func TestMemoryMedium_KeysByPrefix(t *testing.T) {
	m := NewMemoryMedium(0)
	ctx := t.Context()
	for _, k := range []string{"p:2:b", "p:1:a", "q:1:a", "p:12:c"} {
		_ = m.Set(ctx, k, []byte("v"))
	}

	keys, err := m.Keys(ctx, "p:1:")
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != 1 || keys[0] != "p:1:a" {
		t.Fatalf("got %v", keys)
	}
	keys, _ = m.Keys(ctx, "p:")
	if len(keys) != 3 {
		t.Fatalf("expected 3 keys under p:, got %v", keys)
	}
}

func TestMemoryMedium_GetReturnsCopy(t *testing.T) {
	m := NewMemoryMedium(0)
	ctx := t.Context()
	_ = m.Set(ctx, "k", []byte("abc"))

	v, _, _ := m.Get(ctx, "k")
	v[0] = 'z'
	again, _, _ := m.Get(ctx, "k")
	if string(again) != "abc" {
		t.Fatalf("stored value mutated through Get result: %q", again)
	}
}
