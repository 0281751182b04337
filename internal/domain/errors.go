package domain

import "errors"

// Domain errors, checked with errors.Is.
var (
	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("snapship: invalid configuration")

	// ErrInvalidTransition is returned for a power-state change outside the transition table.
	ErrInvalidTransition = errors.New("snapship: invalid power state transition")

	// ErrSensorInit is returned when the image sensor cannot be initialized.
	// Capture stays disabled for the rest of the boot.
	ErrSensorInit = errors.New("snapship: sensor init failed")

	// ErrDeepSleepWake is returned by the agent after the external wake source
	// fired. The process is expected to restart.
	ErrDeepSleepWake = errors.New("snapship: woke from deep sleep")

	// ErrNotActive is returned when a capture is attempted outside the Active state.
	ErrNotActive = errors.New("snapship: device not active")

	ErrFrameEmpty    = errors.New("snapship: frame is empty")
	ErrFrameTooLarge = errors.New("snapship: frame exceeds size limit")

	ErrNetworkUnavailable = errors.New("snapship: network unavailable")
	ErrConnectFailed      = errors.New("snapship: connect failed")
	ErrWriteFailed        = errors.New("snapship: write failed")
	ErrResponseTimeout    = errors.New("snapship: response timeout")
	ErrServerRejected     = errors.New("snapship: server rejected upload")
)
