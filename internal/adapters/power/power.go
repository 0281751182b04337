// Package power implements sleep on a host process: a light sleep is a
// bounded wait and deep sleep blocks until the control input fires.
package power

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bft-labs/snapship/internal/domain"
	"github.com/bft-labs/snapship/pkg/log"
)

// ErrWakeNotArmed is returned by SuspendUntilExternalWake when no wake
// source was enabled.
var ErrWakeNotArmed = errors.New("external wake source not armed")

// Host waits on a timer and the control input's wake channel.
type Host struct {
	wake     <-chan struct{}
	asserted func() bool
	logger   log.Logger

	mu    sync.Mutex
	armed bool
}

// NewHost creates a Host woken by wake, typically the button adapter's
// Wake channel. asserted samples the live input level; a press edge that
// arrived before the suspend is only honored if the input is still held.
// A nil wake channel never fires and a nil asserted is never true.
func NewHost(wake <-chan struct{}, asserted func() bool, logger log.Logger) *Host {
	return &Host{wake: wake, asserted: asserted, logger: logger}
}

// SuspendFor waits d, or less if the control input is pressed. It returns
// at once when the input is already held.
func (h *Host) SuspendFor(ctx context.Context, d time.Duration) (domain.WakeCause, error) {
	h.drain()
	if h.asserted != nil && h.asserted() {
		return domain.WakeExternal, nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return domain.WakeTimer, ctx.Err()
	case <-timer.C:
		return domain.WakeTimer, nil
	case <-h.wake:
		return domain.WakeExternal, nil
	}
}

// EnableExternalWake arms the control input as the deep-sleep wake source.
func (h *Host) EnableExternalWake() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.wake == nil {
		return ErrWakeNotArmed
	}
	h.armed = true
	return nil
}

// SuspendUntilExternalWake blocks until the next press.
func (h *Host) SuspendUntilExternalWake(ctx context.Context) error {
	h.mu.Lock()
	armed := h.armed
	h.mu.Unlock()
	if !armed {
		return ErrWakeNotArmed
	}

	// A press still registered from the long press itself is not a wake.
	h.drain()
	h.logger.Debug("suspended until external wake")

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-h.wake:
		return nil
	}
}

func (h *Host) drain() {
	for {
		select {
		case <-h.wake:
		default:
			return
		}
	}
}
