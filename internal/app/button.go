package app

import (
	"time"

	"github.com/bft-labs/snapship/internal/domain"
)

// LongPressThreshold separates a short press (capture) from a long press
// (deep sleep).
const LongPressThreshold = 3000 * time.Millisecond

// ButtonEvent is what one sample of the control input produced.
type ButtonEvent int

const (
	ButtonNone ButtonEvent = iota
	// ButtonPressed marks the high-to-low edge.
	ButtonPressed
	// LongPressThresholdCrossed fires once while the input is still held.
	LongPressThresholdCrossed
	ShortPress
	LongPress
)

func (e ButtonEvent) String() string {
	switch e {
	case ButtonNone:
		return "None"
	case ButtonPressed:
		return "Pressed"
	case LongPressThresholdCrossed:
		return "LongPressThresholdCrossed"
	case ShortPress:
		return "ShortPress"
	case LongPress:
		return "LongPress"
	default:
		return "Unknown"
	}
}

// ButtonState is the press-timing state threaded through each tick. It is
// re-derived from raw samples and never persisted.
//
// There is no debounce: each tick takes a single sample, so contact bounce
// shorter than the tick period is invisible and bounce that straddles a
// sample shows up as separate presses.
type ButtonState struct {
	Pressed           bool
	Since             domain.Millis
	ThresholdSignaled bool

	// LastHeld is the duration of the most recently released press.
	LastHeld time.Duration
}

// Update advances the state by one sample taken at now.
func (s *ButtonState) Update(pressed bool, now domain.Millis) ButtonEvent {
	switch {
	case pressed && !s.Pressed:
		s.Pressed = true
		s.Since = now
		s.ThresholdSignaled = false
		return ButtonPressed

	case pressed:
		if !s.ThresholdSignaled && now.Since(s.Since) >= LongPressThreshold {
			s.ThresholdSignaled = true
			return LongPressThresholdCrossed
		}
		return ButtonNone

	case s.Pressed:
		held := now.Since(s.Since)
		*s = ButtonState{LastHeld: held}
		if held >= LongPressThreshold {
			return LongPress
		}
		return ShortPress
	}
	return ButtonNone
}
