package domain

import "fmt"

// MaxFrameBytes is the hard upper bound on a frame length.
const MaxFrameBytes = 500000

// Frame is one captured image buffer. It is owned by whoever holds it until
// Release is called; the sensor driver may reuse the buffer afterwards.
type Frame struct {
	data     []byte
	release  func()
	released bool
}

// NewFrame wraps data produced by a sensor. release is invoked by the first
// call to Release and may be nil.
func NewFrame(data []byte, release func()) *Frame {
	return &Frame{data: data, release: release}
}

// Data returns the frame bytes. The slice must not be used after Release.
func (f *Frame) Data() []byte {
	if f == nil {
		return nil
	}
	return f.data
}

// Len returns the frame length in bytes.
func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.data)
}

// Release hands the buffer back to the sensor. Subsequent calls do nothing.
func (f *Frame) Release() {
	if f == nil || f.released {
		return
	}
	f.released = true
	f.data = nil
	if f.release != nil {
		f.release()
	}
}

// Released reports whether Release has been called.
func (f *Frame) Released() bool {
	return f != nil && f.released
}

// Validate checks 0 < length <= MaxFrameBytes and a non-nil buffer.
func (f *Frame) Validate() error {
	switch {
	case f == nil || f.data == nil:
		return fmt.Errorf("%w: nil buffer", ErrFrameEmpty)
	case len(f.data) == 0:
		return ErrFrameEmpty
	case len(f.data) > MaxFrameBytes:
		return fmt.Errorf("%w: %d > %d bytes", ErrFrameTooLarge, len(f.data), MaxFrameBytes)
	}
	return nil
}
