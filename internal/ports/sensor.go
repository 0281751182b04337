package ports

import "github.com/bft-labs/snapship/internal/domain"

// SensorSettings configures the image sensor at init.
type SensorSettings struct {
	Width       int
	Height      int
	VFlip       bool
	HMirror     bool
	JPEGQuality int // 1-100, higher is better
}

// Sensor is the image sensor driver.
type Sensor interface {
	// Init powers up and configures the sensor. A failure is fatal to capture
	// for the rest of the boot.
	Init(settings SensorSettings) error

	// Capture takes one JPEG. ok is false when no frame could be produced.
	// The returned frame must be released by the caller.
	Capture() (frame *domain.Frame, ok bool)

	// Deinit releases the sensor. Calling it twice must be harmless.
	Deinit() error
}
