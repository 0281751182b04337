package ports

import (
	"context"
	"time"

	"github.com/bft-labs/snapship/internal/domain"
)

// Clock is the monotonic millisecond counter plus a blocking delay. The
// delay is used for retry backoff, association polling and LED cadences.
type Clock interface {
	Millis() domain.Millis
	Sleep(d time.Duration)
}

// WallClock is the calendar time source. Now reports ok=false until a
// successful Sync.
type WallClock interface {
	Sync(ctx context.Context) error
	Now() (t time.Time, ok bool)
}
