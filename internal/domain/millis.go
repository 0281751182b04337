package domain

import (
	"math"
	"time"
)

// Millis is a reading of the monotonic millisecond counter. The counter wraps
// at 2^32; only differences between readings are meaningful.
type Millis uint32

// Since returns the time elapsed from earlier to m, correct across one wrap.
func (m Millis) Since(earlier Millis) time.Duration {
	return time.Duration(uint32(m)-uint32(earlier)) * time.Millisecond
}

// Add returns m advanced by d, wrapping like the hardware counter.
func (m Millis) Add(d time.Duration) Millis {
	return Millis(uint32(m) + uint32(d/time.Millisecond))
}

// MaxSpan is the longest interval the counter can measure. Longer intervals
// wrap before they elapse.
const MaxSpan = time.Duration(math.MaxUint32) * time.Millisecond
