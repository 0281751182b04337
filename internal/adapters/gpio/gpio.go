// Package gpio drives the control input and status LED through the Linux
// GPIO character device.
package gpio

import (
	"fmt"
	"sync"

	gpiod "github.com/warthog618/go-gpiocdev"

	"github.com/bft-labs/snapship/pkg/log"
)

// valueLine is the part of *gpiod.Line used here.
type valueLine interface {
	Value() (int, error)
	SetValue(value int) error
	Close() error
}

// Button is the active-low push button with the internal pull-up enabled.
// Falling edges are delivered on Wake so a suspended device can be woken.
type Button struct {
	line   valueLine
	wake   chan struct{}
	logger log.Logger
}

// OpenButton requests offset on chip (e.g. "gpiochip0") as an input with
// both-edge events.
func OpenButton(chip string, offset int, logger log.Logger) (*Button, error) {
	b := &Button{
		wake:   make(chan struct{}, 1),
		logger: logger,
	}
	line, err := gpiod.RequestLine(chip, offset,
		gpiod.AsInput,
		gpiod.WithPullUp,
		gpiod.WithBothEdges,
		gpiod.WithEventHandler(b.handleEvent),
	)
	if err != nil {
		return nil, fmt.Errorf("request button line %s:%d: %w", chip, offset, err)
	}
	b.line = line
	return b, nil
}

// Pressed samples the line once. A read error reads as released.
func (b *Button) Pressed() bool {
	v, err := b.line.Value()
	if err != nil {
		b.logger.Debug("read button line", log.Err(err))
		return false
	}
	return v == 0
}

// Wake delivers a value on each press edge.
func (b *Button) Wake() <-chan struct{} { return b.wake }

// Close releases the line.
func (b *Button) Close() error { return b.line.Close() }

func (b *Button) handleEvent(evt gpiod.LineEvent) {
	if !isPressEdge(evt.Type) {
		return
	}
	select {
	case b.wake <- struct{}{}:
	default:
	}
}

// isPressEdge reports whether evt is a press on an active-low input.
func isPressEdge(evt gpiod.LineEventType) bool {
	return evt == gpiod.LineEventFallingEdge
}

// LED is an active-high output line.
type LED struct {
	mu     sync.Mutex
	line   valueLine
	logger log.Logger
}

// OpenLED requests offset on chip as an output, initially off.
func OpenLED(chip string, offset int, logger log.Logger) (*LED, error) {
	line, err := gpiod.RequestLine(chip, offset, gpiod.AsOutput(0))
	if err != nil {
		return nil, fmt.Errorf("request led line %s:%d: %w", chip, offset, err)
	}
	return &LED{line: line, logger: logger}, nil
}

// Set drives the LED.
func (l *LED) Set(on bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	v := 0
	if on {
		v = 1
	}
	if err := l.line.SetValue(v); err != nil {
		l.logger.Debug("set led line", log.Err(err))
	}
}

// Close turns the LED off and releases the line.
func (l *LED) Close() error {
	l.Set(false)
	return l.line.Close()
}
