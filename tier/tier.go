// Package tier maps a serialized payload size to the backing store that
// should hold it.
package tier

// Tier names one of the two backing stores.
type Tier int

const (
	// Simple is the small, synchronous, quota-bound tier.
	Simple Tier = iota
	// Capacity is the larger, file-backed tier.
	Capacity
)

// DefaultThreshold is the payload size at which writes move to the capacity
// tier.
const DefaultThreshold uint64 = 1 << 20

func (t Tier) String() string {
	switch t {
	case Simple:
		return "simple"
	case Capacity:
		return "capacity"
	default:
		return "unknown"
	}
}

// Selector routes payloads by size. The zero value uses DefaultThreshold.
type Selector struct {
	Threshold uint64
}

// Select returns Capacity for sizes at or above the threshold and Simple
// below it.
func (s Selector) Select(size uint64) Tier {
	threshold := s.Threshold
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	if size >= threshold {
		return Capacity
	}
	return Simple
}
