package tier

import "testing"

func TestSelect_DefaultThreshold(t *testing.T) {
	var s Selector

	cases := []struct {
		size uint64
		want Tier
	}{
		{0, Simple},
		{1, Simple},
		{DefaultThreshold - 1, Simple},
		{DefaultThreshold, Capacity},
		{DefaultThreshold + 1, Capacity},
		{10 * DefaultThreshold, Capacity},
	}
	for _, tc := range cases {
		if got := s.Select(tc.size); got != tc.want {
			t.Fatalf("Select(%d): got %v, want %v", tc.size, got, tc.want)
		}
	}
}

func TestSelect_CustomThreshold(t *testing.T) {
	s := Selector{Threshold: 64}
	if got := s.Select(63); got != Simple {
		t.Fatalf("got %v, want simple", got)
	}
	if got := s.Select(64); got != Capacity {
		t.Fatalf("got %v, want capacity", got)
	}
}

func TestTierString(t *testing.T) {
	if Simple.String() != "simple" || Capacity.String() != "capacity" {
		t.Fatalf("unexpected names: %q %q", Simple, Capacity)
	}
	if Tier(9).String() != "unknown" {
		t.Fatalf("unexpected name for invalid tier: %q", Tier(9))
	}
}
