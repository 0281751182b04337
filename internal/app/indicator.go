package app

import (
	"context"
	"time"

	"github.com/bft-labs/snapship/internal/ports"
)

// BlinkPattern is a run of on/off pulses. Count zero means blink until the
// context ends.
type BlinkPattern struct {
	Count int
	On    time.Duration
	Off   time.Duration
}

// Status codes shown on the LED.
var (
	PatternPressAck           = BlinkPattern{Count: 1, On: 100 * time.Millisecond}
	PatternReady              = BlinkPattern{Count: 3, On: 300 * time.Millisecond, Off: 300 * time.Millisecond}
	PatternUploadOK           = BlinkPattern{Count: 2, On: 150 * time.Millisecond, Off: 150 * time.Millisecond}
	PatternConnectivityFailed = BlinkPattern{Count: 3, On: 100 * time.Millisecond, Off: 100 * time.Millisecond}
	PatternUploadFailed       = BlinkPattern{Count: 5, On: 100 * time.Millisecond, Off: 100 * time.Millisecond}
	PatternDeepSleepWarning   = BlinkPattern{Count: 3, On: 200 * time.Millisecond, Off: 200 * time.Millisecond}
	PatternFatal              = BlinkPattern{On: 100 * time.Millisecond, Off: 100 * time.Millisecond}
)

// Indicator drives the status LED. Capture in progress is shown solid on.
type Indicator struct {
	led   ports.LED
	clock ports.Clock
}

// NewIndicator creates an indicator on led using clock for cadence.
func NewIndicator(led ports.LED, clock ports.Clock) *Indicator {
	return &Indicator{led: led, clock: clock}
}

func (i *Indicator) On()  { i.led.Set(true) }
func (i *Indicator) Off() { i.led.Set(false) }

// Blink plays p and leaves the LED off.
func (i *Indicator) Blink(p BlinkPattern) {
	i.Off()
	for n := 0; n < p.Count; n++ {
		i.pulse(p)
	}
}

// BlinkUntil repeats p until ctx ends. Used for the fatal sensor code.
func (i *Indicator) BlinkUntil(ctx context.Context, p BlinkPattern) {
	defer i.Off()
	for ctx.Err() == nil {
		i.pulse(p)
	}
}

func (i *Indicator) pulse(p BlinkPattern) {
	i.led.Set(true)
	i.clock.Sleep(p.On)
	i.led.Set(false)
	if p.Off > 0 {
		i.clock.Sleep(p.Off)
	}
}
