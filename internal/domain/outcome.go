package domain

import "fmt"

// OutcomeStatus classifies the result of one upload.
type OutcomeStatus int

const (
	OutcomeSuccess OutcomeStatus = iota
	OutcomeInvalidFrame
	OutcomeNetworkUnavailable
	OutcomeConnectFailed
	OutcomeWriteFailed
	OutcomeTimeout
	OutcomeServerRejected
	OutcomeNotActive
)

// String returns a human-readable representation of the status.
func (s OutcomeStatus) String() string {
	switch s {
	case OutcomeSuccess:
		return "Success"
	case OutcomeInvalidFrame:
		return "InvalidFrame"
	case OutcomeNetworkUnavailable:
		return "NetworkUnavailable"
	case OutcomeConnectFailed:
		return "ConnectFailed"
	case OutcomeWriteFailed:
		return "WriteFailed"
	case OutcomeTimeout:
		return "Timeout"
	case OutcomeServerRejected:
		return "ServerRejected"
	case OutcomeNotActive:
		return "NotActive"
	default:
		return "Unknown"
	}
}

// Outcome is what the upload pipeline reports to its caller. StatusCode is
// set for ServerRejected (0 when the status line could not be parsed) and
// Detail holds the leading part of the error body, if any. Cause is the
// validation error behind InvalidFrame.
type Outcome struct {
	Status     OutcomeStatus
	StatusCode int
	Detail     string
	Cause      error
}

// OK reports whether the upload succeeded.
func (o Outcome) OK() bool { return o.Status == OutcomeSuccess }

// Err maps the outcome to a domain error, nil on success.
func (o Outcome) Err() error {
	switch o.Status {
	case OutcomeSuccess:
		return nil
	case OutcomeInvalidFrame:
		if o.Cause != nil {
			return o.Cause
		}
		return ErrFrameEmpty
	case OutcomeNetworkUnavailable:
		return ErrNetworkUnavailable
	case OutcomeConnectFailed:
		return ErrConnectFailed
	case OutcomeWriteFailed:
		return ErrWriteFailed
	case OutcomeTimeout:
		return ErrResponseTimeout
	case OutcomeServerRejected:
		return fmt.Errorf("%w: status %d", ErrServerRejected, o.StatusCode)
	case OutcomeNotActive:
		return ErrNotActive
	default:
		return fmt.Errorf("snapship: unknown outcome %d", o.Status)
	}
}

func (o Outcome) String() string {
	if o.Status == OutcomeServerRejected {
		return fmt.Sprintf("ServerRejected(%d)", o.StatusCode)
	}
	return o.Status.String()
}
