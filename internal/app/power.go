package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bft-labs/snapship/internal/domain"
	"github.com/bft-labs/snapship/pkg/log"
)

// LightSleepQuantum bounds one light-sleep window.
const LightSleepQuantum = 30 * time.Second

// StateObserver is called when the power state changes.
type StateObserver interface {
	OnPowerStateChange(previous, current domain.PowerState, reason string)
}

// PowerController is the state machine governing Active, LightSleepWindow,
// DeepSleepPending and DeepSleep. It is the only writer of the power state.
//
// Valid transitions:
//   - Active -> LightSleepWindow, DeepSleepPending
//   - LightSleepWindow -> Active
//   - DeepSleepPending -> DeepSleep
//
// DeepSleep is terminal; only a process restart leaves it.
type PowerController struct {
	mu       sync.RWMutex
	state    domain.PowerState
	dev      *Device
	boot     *bootLog
	logger   log.Logger
	observer StateObserver

	// Guards so that hardware is released at most once per boot.
	radioReleased  bool
	sensorReleased bool
}

// NewPowerController creates a controller in the Active state.
func NewPowerController(dev *Device, boot *bootLog, logger log.Logger, observer StateObserver) *PowerController {
	return &PowerController{
		state:    domain.PowerActive,
		dev:      dev,
		boot:     boot,
		logger:   logger,
		observer: observer,
	}
}

// State returns the current power state.
func (c *PowerController) State() domain.PowerState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// TransitionTo moves to newState. Returns domain.ErrInvalidTransition if the
// transition is not in the table.
func (c *PowerController) TransitionTo(newState domain.PowerState, reason string) error {
	c.mu.Lock()
	oldState := c.state

	valid := false
	switch oldState {
	case domain.PowerActive:
		valid = newState == domain.PowerLightSleepWindow || newState == domain.PowerDeepSleepPending
	case domain.PowerLightSleepWindow:
		valid = newState == domain.PowerActive
	case domain.PowerDeepSleepPending:
		valid = newState == domain.PowerDeepSleep
	}
	if !valid {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, oldState, newState)
	}

	c.state = newState
	c.mu.Unlock()

	// Emit event outside of lock
	if c.observer != nil {
		c.observer.OnPowerStateChange(oldState, newState, reason)
	}

	c.logger.Info("power state transition",
		log.String("from", oldState.String()),
		log.String("to", newState.String()),
		log.String("reason", reason),
	)
	return nil
}

// LightSleep enters a bounded light-sleep window and always returns to
// Active, whatever woke the device.
func (c *PowerController) LightSleep(ctx context.Context) (domain.WakeCause, error) {
	if err := c.TransitionTo(domain.PowerLightSleepWindow, "idle window"); err != nil {
		return domain.WakeTimer, err
	}

	if err := c.dev.Network.SetPowerSave(ctx, true); err != nil {
		c.logger.Warn("enable radio power save", log.Err(err))
	}

	// The input may have gone low after the tick sampled it.
	cause := domain.WakeExternal
	var err error
	if c.dev.Button.Pressed() {
		c.logger.Debug("control input held, skipping light sleep")
	} else {
		c.logger.Debug("entering light sleep", log.Duration("quantum", LightSleepQuantum))
		cause, err = c.dev.Power.SuspendFor(ctx, LightSleepQuantum)
	}

	if perr := c.dev.Network.SetPowerSave(ctx, false); perr != nil {
		c.logger.Warn("disable radio power save", log.Err(perr))
	}

	if terr := c.TransitionTo(domain.PowerActive, "woke: "+cause.String()); terr != nil {
		return cause, terr
	}
	return cause, err
}

// Shutdown runs the ordered deep-sleep sequence: radio down, camera
// released, wake source armed, diagnostics flushed, then suspend until the
// control input wakes the device. It returns domain.ErrDeepSleepWake once
// woken; the caller restarts the process. Calling Shutdown while a shutdown
// is already under way or complete does nothing.
func (c *PowerController) Shutdown(ctx context.Context) error {
	if st := c.State(); st == domain.PowerDeepSleepPending || st == domain.PowerDeepSleep {
		c.logger.Debug("shutdown already in progress", log.String("state", st.String()))
		return nil
	}
	if c.State() == domain.PowerLightSleepWindow {
		// A long press is only seen between ticks, after the window closed.
		return fmt.Errorf("%w: shutdown from %s", domain.ErrInvalidTransition, domain.PowerLightSleepWindow)
	}

	if err := c.TransitionTo(domain.PowerDeepSleepPending, "long press"); err != nil {
		return err
	}

	c.logger.Info("entering deep sleep")
	c.ReleaseHardware(ctx)

	if err := c.dev.Power.EnableExternalWake(); err != nil {
		c.logger.Error("configure wake source", log.Err(err))
	}
	c.boot.mark(ctx, domain.PhaseDeepSleep)

	c.logger.Info("deep sleep: press the control input to wake")
	if err := log.Flush(c.logger); err != nil {
		c.logger.Warn("flush diagnostics", log.Err(err))
	}

	if err := c.TransitionTo(domain.PowerDeepSleep, "shutdown complete"); err != nil {
		return err
	}

	if err := c.dev.Power.SuspendUntilExternalWake(ctx); err != nil {
		return err
	}
	return domain.ErrDeepSleepWake
}

// ReleaseHardware disconnects and powers down the radio and deinitializes
// the sensor. Each resource is released at most once per boot.
func (c *PowerController) ReleaseHardware(ctx context.Context) {
	c.mu.Lock()
	releaseRadio := !c.radioReleased
	releaseSensor := !c.sensorReleased
	c.radioReleased = true
	c.sensorReleased = true
	c.mu.Unlock()

	if releaseRadio {
		if err := c.dev.Network.Disconnect(ctx); err != nil {
			c.logger.Warn("disconnect radio", log.Err(err))
		}
		if err := c.dev.Network.PowerOff(ctx); err != nil {
			c.logger.Warn("power off radio", log.Err(err))
		}
	}
	if releaseSensor {
		if err := c.dev.Sensor.Deinit(); err != nil {
			c.logger.Warn("deinit sensor", log.Err(err))
		}
	}
	if releaseRadio || releaseSensor {
		c.logger.Info("hardware released")
	}
}
