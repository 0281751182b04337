package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/bft-labs/snapship/internal/adapters/camera"
	"github.com/bft-labs/snapship/internal/adapters/clock"
	"github.com/bft-labs/snapship/internal/adapters/fs"
	"github.com/bft-labs/snapship/internal/adapters/gpio"
	"github.com/bft-labs/snapship/internal/adapters/ntp"
	"github.com/bft-labs/snapship/internal/adapters/power"
	"github.com/bft-labs/snapship/internal/adapters/tlsconn"
	"github.com/bft-labs/snapship/internal/adapters/wifi"
	"github.com/bft-labs/snapship/internal/app"
	"github.com/bft-labs/snapship/internal/cliconfig"
	"github.com/bft-labs/snapship/internal/domain"
	"github.com/bft-labs/snapship/internal/ports"
	"github.com/bft-labs/snapship/pkg/log"
)

// buildDevice opens every hardware handle selected by cfg. The returned
// func releases what was opened.
func buildDevice(ctx context.Context, cfg cliconfig.Config, logger log.Logger) (*app.Device, func(), error) {
	var closers []func() error
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				logger.Warn("close device", log.Err(err))
			}
		}
	}

	network, err := newNetwork(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	dev := &app.Device{
		Network: network,
		Dialer:  tlsconn.NewDialer(),
		Clock:   clock.NewMonotonic(),
		Wall:    ntp.NewClock(cfg.NTPServer, cfg.GMTOffset, cfg.DaylightOffset),
		Boot:    fs.NewBootRecordFile(cfg.StateDir),
	}

	var wake <-chan struct{}
	switch cfg.InputBackend {
	case cliconfig.InputGPIO:
		button, err := gpio.OpenButton(cfg.GPIOChip, cfg.ButtonLine, logger)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, button.Close)
		led, err := gpio.OpenLED(cfg.GPIOChip, cfg.LEDLine, logger)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		closers = append(closers, led.Close)
		dev.Button, dev.LED, wake = button, led, button.Wake()

	case cliconfig.InputFile:
		button := fs.NewLevelFile(cfg.InputFile, logger)
		if err := button.Watch(ctx); err != nil {
			return nil, nil, err
		}
		dev.Button, dev.LED, wake = button, fs.NewLEDFile(cfg.LEDFile, logger), button.Wake()

	default:
		return nil, nil, fmt.Errorf("%w: input backend %q", domain.ErrInvalidConfig, cfg.InputBackend)
	}
	dev.Power = power.NewHost(wake, dev.Button.Pressed, logger)

	sensor, err := newSensor(cfg, logger)
	if err != nil {
		closeAll()
		return nil, nil, err
	}
	dev.Sensor = sensor

	return dev, closeAll, nil
}

func newNetwork(cfg cliconfig.Config, logger log.Logger) (ports.Network, error) {
	if cfg.NetworkBackend == cliconfig.NetworkStatic {
		return wifi.Static{}, nil
	}
	return wifi.NewStation(cfg.Iface, wifi.ExecRunner, logger)
}

func newSensor(cfg cliconfig.Config, logger log.Logger) (ports.Sensor, error) {
	switch cfg.SensorBackend {
	case cliconfig.SensorExec:
		return camera.NewCommand(cfg.CaptureCommand, logger), nil
	case cliconfig.SensorGoCV:
		return camera.NewOpenCV(cfg.CameraDevice, logger)
	}
	return nil, fmt.Errorf("%w: sensor backend %q", domain.ErrInvalidConfig, cfg.SensorBackend)
}

// uploadFile sends one JPEG from disk through the upload pipeline.
func uploadFile(ctx context.Context, cfg cliconfig.Config, path, name string) error {
	zl := cliconfig.Logger(cfg.LogLevel)
	logger := log.NewZerologAdapterWithLogger(zl, os.Stderr)

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	network, err := newNetwork(cfg, logger)
	if err != nil {
		return err
	}
	uploader, err := app.NewUploader(
		agentConfig(cfg).Uploader,
		network,
		tlsconn.NewDialer(),
		app.DefaultConnectPolicy(time.Sleep),
		logger,
	)
	if err != nil {
		return err
	}

	if name == "" {
		name = photoName(ctx, cfg, logger)
	}

	frame := domain.NewFrame(data, nil)
	defer frame.Release()

	outcome := uploader.Upload(ctx, frame, name)
	if !outcome.OK() {
		return fmt.Errorf("upload %s: %w", name, outcome.Err())
	}
	logger.Info("uploaded", log.String("file", name), log.Int("bytes", len(data)))
	return nil
}

func photoName(ctx context.Context, cfg cliconfig.Config, logger log.Logger) string {
	wall := ntp.NewClock(cfg.NTPServer, cfg.GMTOffset, cfg.DaylightOffset)
	if err := wall.Sync(ctx); err != nil {
		logger.Warn("time sync failed, using monotonic timestamp", log.Err(err))
	}
	t, ok := wall.Now()
	return domain.PhotoFilename(t, ok, clock.NewMonotonic().Millis())
}
