// Package clock provides the monotonic millisecond counter on a host.
package clock

import (
	"time"

	"github.com/bft-labs/snapship/internal/domain"
)

// Monotonic counts milliseconds since it was created. Like the hardware
// counter it wraps after about 49.7 days.
type Monotonic struct {
	start time.Time
}

// NewMonotonic starts a counter at zero.
func NewMonotonic() *Monotonic {
	return &Monotonic{start: time.Now()}
}

// Millis returns the current reading.
func (m *Monotonic) Millis() domain.Millis {
	return domain.Millis(uint32(time.Since(m.start) / time.Millisecond))
}

// Sleep blocks for d.
func (m *Monotonic) Sleep(d time.Duration) {
	time.Sleep(d)
}
