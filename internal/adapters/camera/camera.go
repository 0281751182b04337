// Package camera implements ports.Sensor on a Linux camera, either through a
// still-capture command (libcamera-still, rpicam-still) or through OpenCV
// when built with the gocv tag.
package camera

import (
	"errors"
	"sync"
)

// ErrBufferHeld is returned when a capture is attempted while the previous
// frame has not been released.
var ErrBufferHeld = errors.New("frame buffer still held")

// bufferGuard enforces a single frame buffer. One frame is out at a time
// and must be released before the next capture.
type bufferGuard struct {
	mu   sync.Mutex
	held bool
}

func (g *bufferGuard) acquire() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.held {
		return false
	}
	g.held = true
	return true
}

func (g *bufferGuard) release() {
	g.mu.Lock()
	g.held = false
	g.mu.Unlock()
}
