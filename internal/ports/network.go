package ports

import (
	"context"
	"io"
	"time"
)

// LinkInfo is a snapshot of the station association.
type LinkInfo struct {
	Connected bool
	Address   string
	Signal    int // dBm when known, 0 otherwise
	Status    string
}

// Network is the WiFi station-mode client.
type Network interface {
	// Connect starts association with the given credentials. It does not wait
	// for the association to complete; poll Info for that.
	Connect(ctx context.Context, ssid, password string) error

	// Info reports the current association state.
	Info(ctx context.Context) LinkInfo

	// Disconnect drops the association.
	Disconnect(ctx context.Context) error

	// PowerOff turns the radio off until the next boot.
	PowerOff(ctx context.Context) error

	// SetPowerSave toggles radio power saving used during light sleep.
	SetPowerSave(ctx context.Context, enabled bool) error
}

// Conn is an established encrypted stream.
type Conn interface {
	io.Reader
	// Write sends p and reports how many bytes the stack accepted. A short
	// count without an error is possible on constrained stacks.
	Write(p []byte) (int, error)
	SetReadDeadline(t time.Time) error
	Close() error
}

// Dialer opens encrypted streams. timeout bounds the connection attempt and
// each subsequent socket operation.
type Dialer interface {
	Dial(ctx context.Context, host, port string, timeout time.Duration) (Conn, error)
}
