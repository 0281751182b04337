package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bft-labs/snapship/internal/domain"
	"github.com/bft-labs/snapship/internal/ports"
	"github.com/bft-labs/snapship/pkg/log"
)

// Agent loop timing.
const (
	TickPeriod           = 100 * time.Millisecond
	StatusReportInterval = 5 * time.Minute
)

// Config contains configuration for the agent loop.
type Config struct {
	SSID          string
	Password      string
	PhotoInterval time.Duration
	Uploader      UploaderConfig
	Sensor        ports.SensorSettings
}

// Validate checks the loop configuration.
func (c Config) Validate() error {
	if c.SSID == "" {
		return fmt.Errorf("%w: wifi ssid is required", domain.ErrInvalidConfig)
	}
	if c.PhotoInterval <= 0 {
		return fmt.Errorf("%w: photo interval must be positive", domain.ErrInvalidConfig)
	}
	if c.PhotoInterval > domain.MaxSpan {
		return fmt.Errorf("%w: photo interval exceeds %v", domain.ErrInvalidConfig, domain.MaxSpan)
	}
	return nil
}

// Agent orchestrates boot, the capture schedule, the control input and the
// power state.
type Agent struct {
	config    Config
	dev       *Device
	logger    log.Logger
	boot      *bootLog
	power     *PowerController
	station   *Station
	uploader  *Uploader
	indicator *Indicator
	cycle     *CaptureCycle
	scheduler *Scheduler
	button    ButtonState

	started    domain.Millis
	lastReport domain.Millis
}

// NewAgent creates a new agent with the given dependencies. observer may be
// nil.
func NewAgent(config Config, dev *Device, logger log.Logger, observer StateObserver) (*Agent, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if err := dev.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
	}

	uploader, err := NewUploader(config.Uploader, dev.Network, dev.Dialer, DefaultConnectPolicy(dev.Clock.Sleep), logger)
	if err != nil {
		return nil, err
	}

	boot := newBootLog(dev.Boot, logger)
	power := NewPowerController(dev, boot, logger, observer)
	station := NewStation(dev, config.SSID, config.Password, logger)
	indicator := NewIndicator(dev.LED, dev.Clock)

	return &Agent{
		config:    config,
		dev:       dev,
		logger:    logger,
		boot:      boot,
		power:     power,
		station:   station,
		uploader:  uploader,
		indicator: indicator,
		cycle:     NewCaptureCycle(dev, power, station, uploader, indicator, logger),
	}, nil
}

// Power returns the power state controller.
func (a *Agent) Power() *PowerController { return a.power }

// Boot brings the device up: reset reason, sensor, WiFi, time sync, ready
// signal and photo timer. A sensor failure is returned as
// domain.ErrSensorInit; WiFi and time sync failures are not fatal.
func (a *Agent) Boot(ctx context.Context) error {
	reason := a.boot.start(ctx)
	a.logger.Info("starting",
		log.String("reset_reason", string(reason)),
		log.Int64("boot_count", int64(a.boot.bootCount())),
		log.Duration("photo_interval", a.config.PhotoInterval),
	)
	if reason == domain.ResetDeepSleep {
		a.logger.Info("woke from deep sleep via control input")
	}

	a.indicator.On()

	s := a.config.Sensor
	if err := a.dev.Sensor.Init(s); err != nil {
		a.logger.Error("camera init failed", log.Err(err))
		return fmt.Errorf("%w: %v", domain.ErrSensorInit, err)
	}
	a.logger.Info("camera initialized",
		log.Int("width", s.Width),
		log.Int("height", s.Height),
		log.Int("jpeg_quality", s.JPEGQuality),
	)

	if err := a.station.Connect(ctx); err == nil {
		a.station.SyncTime(ctx)
	}

	a.indicator.Blink(PatternReady)

	now := a.dev.Clock.Millis()
	a.scheduler = NewScheduler(a.config.PhotoInterval, now)
	a.started = now
	a.lastReport = now

	if err := a.dev.Power.EnableExternalWake(); err != nil {
		a.logger.Warn("configure wake source", log.Err(err))
	}

	a.logger.Info("setup complete",
		log.String("short_press", "capture now"),
		log.Duration("long_press", LongPressThreshold),
	)
	return nil
}

// Run boots the device and runs the tick loop until ctx ends or the device
// wakes from deep sleep, in which case domain.ErrDeepSleepWake is returned
// and the caller is expected to restart.
func (a *Agent) Run(ctx context.Context) error {
	if err := a.Boot(ctx); err != nil {
		if errors.Is(err, domain.ErrSensorInit) {
			a.indicator.BlinkUntil(ctx, PatternFatal)
			a.Stop(context.WithoutCancel(ctx))
		}
		return err
	}

	for {
		if ctx.Err() != nil {
			a.Stop(context.WithoutCancel(ctx))
			return ctx.Err()
		}
		if err := a.Tick(ctx); err != nil {
			if errors.Is(err, domain.ErrDeepSleepWake) {
				return err
			}
			a.logger.Error("tick failed", log.Err(err))
			if a.power.State() == domain.PowerDeepSleep {
				return err
			}
		}
		a.dev.Clock.Sleep(TickPeriod)
	}
}

// Tick runs one pass of the main loop: sample the control input, service a
// due capture, then use the idle window if there is one.
func (a *Agent) Tick(ctx context.Context) error {
	now := a.dev.Clock.Millis()
	pressed := a.dev.Button.Pressed()

	switch ev := a.button.Update(pressed, now); ev {
	case ButtonPressed:
		a.logger.Debug("button pressed")
		a.indicator.Blink(PatternPressAck)
	case LongPressThresholdCrossed:
		a.logger.Info("long press detected, release to enter deep sleep")
		a.indicator.Blink(PatternDeepSleepWarning)
	case ShortPress:
		a.logger.Info("short press, manual photo", log.Duration("held", a.button.LastHeld))
		a.cycle.Run(ctx, TriggerButton)
	case LongPress:
		a.logger.Info("long press released", log.Duration("held", a.button.LastHeld))
		a.serviceDueCapture(ctx)
		return a.power.Shutdown(ctx)
	}

	if a.serviceDueCapture(ctx) {
		return nil
	}

	a.reportStatus(ctx)

	d := a.scheduler.Evaluate(a.dev.Clock.Millis())
	if d.IdleWindowAvailable && !a.button.Pressed {
		cause, err := a.power.LightSleep(ctx)
		if err != nil {
			return err
		}
		if cause == domain.WakeExternal {
			a.logger.Debug("light sleep interrupted by control input")
		}
	}
	return nil
}

// serviceDueCapture runs a scheduled capture if one is due and restarts the
// photo timer whatever the outcome.
func (a *Agent) serviceDueCapture(ctx context.Context) bool {
	if !a.scheduler.Evaluate(a.dev.Clock.Millis()).CaptureDue {
		return false
	}
	a.logger.Info("photo timer triggered")
	res := a.cycle.Run(ctx, TriggerSchedule)
	a.scheduler.MarkCaptured(a.dev.Clock.Millis())
	a.logger.Debug("scheduled capture finished",
		log.Bool("captured", res.Captured),
		log.String("outcome", res.Outcome.String()),
	)
	return true
}

func (a *Agent) reportStatus(ctx context.Context) {
	now := a.dev.Clock.Millis()
	if now.Since(a.lastReport) < StatusReportInterval {
		return
	}
	a.lastReport = now

	d := a.scheduler.Evaluate(now)
	link := a.dev.Network.Info(ctx)
	a.logger.Info("status",
		log.Duration("uptime", now.Since(a.started)),
		log.String("next_photo", formatMinSec(d.Remaining)),
		log.Bool("wifi_connected", link.Connected),
		log.Int("signal_dbm", link.Signal),
	)
}

// Stop releases hardware and records a clean stop. It does nothing to the
// boot record once the device has entered deep sleep.
func (a *Agent) Stop(ctx context.Context) {
	if st := a.power.State(); st == domain.PowerDeepSleep || st == domain.PowerDeepSleepPending {
		return
	}
	a.power.ReleaseHardware(ctx)
	a.boot.mark(ctx, domain.PhaseStopped)
	a.logger.Info("stopped")
	_ = log.Flush(a.logger)
}

func formatMinSec(d time.Duration) string {
	secs := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}
