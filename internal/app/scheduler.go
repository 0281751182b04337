package app

import (
	"time"

	"github.com/bft-labs/snapship/internal/domain"
)

// IdleWindowThreshold is how far away the next capture must be before the
// device may enter a bounded low-power wait.
const IdleWindowThreshold = 60 * time.Second

// Decision is the scheduler's verdict for one tick.
type Decision struct {
	CaptureDue          bool
	IdleWindowAvailable bool
	Remaining           time.Duration
}

// Scheduler owns the photo timer: the monotonic reading of the last
// scheduled capture attempt.
type Scheduler struct {
	interval time.Duration
	last     domain.Millis
}

// NewScheduler starts the photo timer at now.
func NewScheduler(interval time.Duration, now domain.Millis) *Scheduler {
	return &Scheduler{interval: interval, last: now}
}

// Evaluate decides whether a capture is due at now.
func (s *Scheduler) Evaluate(now domain.Millis) Decision {
	elapsed := now.Since(s.last)
	if elapsed >= s.interval {
		return Decision{CaptureDue: true}
	}
	remaining := s.interval - elapsed
	return Decision{
		Remaining:           remaining,
		IdleWindowAvailable: remaining > IdleWindowThreshold,
	}
}

// MarkCaptured resets the timer once a capture attempt has completed,
// whether or not it succeeded. A failed capture waits a full interval.
func (s *Scheduler) MarkCaptured(now domain.Millis) {
	s.last = now
}

// Last returns the reading of the last capture attempt.
func (s *Scheduler) Last() domain.Millis { return s.last }

// Interval returns the configured capture interval.
func (s *Scheduler) Interval() time.Duration { return s.interval }
