package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/snapship/internal/app"
	"github.com/bft-labs/snapship/internal/cliconfig"
	"github.com/bft-labs/snapship/internal/domain"
	"github.com/bft-labs/snapship/internal/ports"
	"github.com/bft-labs/snapship/pkg/log"
)

const helpDescription = `
Capture a photo on a schedule and ship it to object storage.

Highlights:
  - One JPEG per interval (default hourly), streamed over TLS without buffering a copy.
  - Short press on the control button takes a photo now; a 3 s press puts the device to sleep.
  - Idle time is spent in bounded light sleep; the WiFi link is re-established on demand.
  - Configure via file ($HOME/.snapship/config.toml), SNAPSHIP_* env vars, or flags.
`

var exampleUsage = strings.TrimSpace(`
  snapship --wifi-ssid cam-net --endpoint https://project.example.co --auth-key <key>
  snapship --input-backend file --network-backend static --config ./snapship.toml
  snapship upload ./test.jpg
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	root := &cobra.Command{
		Use:           "snapship",
		Short:         "Scheduled photo capture and upload for a camera appliance",
		Long:          strings.TrimSpace(helpDescription),
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := resolveConfig(cmd, cfgPath, &cfg); err != nil {
				return err
			}
			return runDevice(cfg)
		},
	}

	var uploadName string
	upload := &cobra.Command{
		Use:   "upload <file.jpg>",
		Short: "Upload one JPEG through the device's upload pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := resolveConfig(cmd, cfgPath, &cfg); err != nil {
				return err
			}
			return uploadFile(cmd.Context(), cfg, args[0], uploadName)
		},
	}
	upload.Flags().StringVar(&uploadName, "filename", "", "object name (default: photo_<timestamp>.jpg)")
	root.AddCommand(upload)

	registerFlags(root.PersistentFlags(), &cfg, &cfgPath)

	if err := root.Execute(); err != nil {
		logger := cliconfig.Logger(cfg.LogLevel)
		logger.Error().Err(err).Msg("snapship")
		os.Exit(1)
	}
}

func registerFlags(fs *pflag.FlagSet, cfg *cliconfig.Config, cfgPath *string) {
	fs.StringVar(cfgPath, "config", "", "path to config file (default: $HOME/.snapship/config.toml)")

	fs.StringVar(&cfg.SSID, "wifi-ssid", cfg.SSID, "WiFi network name")
	fs.StringVar(&cfg.Password, "wifi-password", cfg.Password, "WiFi passphrase")
	fs.StringVar(&cfg.Iface, "wifi-iface", cfg.Iface, "wireless interface")
	fs.StringVar(&cfg.NetworkBackend, "network-backend", cfg.NetworkBackend, "network control: networkmanager or static")

	fs.StringVar(&cfg.Endpoint, "endpoint", cfg.Endpoint, "object storage base URL")
	fs.StringVar(&cfg.AuthKey, "auth-key", cfg.AuthKey, "bearer key for the storage API")
	fs.StringVar(&cfg.Bucket, "bucket", cfg.Bucket, "storage bucket")
	fs.BoolVar(&cfg.LegacyStatusMatch, "legacy-status-match", cfg.LegacyStatusMatch, "accept any status line containing 200 or 201")
	fs.IntVar(&cfg.PhotoIntervalHours, "photo-interval", cfg.PhotoIntervalHours, "hours between scheduled photos")

	fs.StringVar(&cfg.NTPServer, "ntp-server", cfg.NTPServer, "NTP server")
	fs.DurationVar(&cfg.GMTOffset, "gmt-offset", cfg.GMTOffset, "time zone offset used in filenames")
	fs.DurationVar(&cfg.DaylightOffset, "daylight-offset", cfg.DaylightOffset, "daylight saving offset used in filenames")

	fs.StringVar(&cfg.InputBackend, "input-backend", cfg.InputBackend, "button and LED: gpio or file")
	fs.StringVar(&cfg.GPIOChip, "gpio-chip", cfg.GPIOChip, "GPIO chip")
	fs.IntVar(&cfg.ButtonLine, "button-line", cfg.ButtonLine, "GPIO line of the active-low button")
	fs.IntVar(&cfg.LEDLine, "led-line", cfg.LEDLine, "GPIO line of the status LED")
	fs.StringVar(&cfg.InputFile, "input-file", cfg.InputFile, "button level file for the file backend (default: <state-dir>/button)")
	fs.StringVar(&cfg.LEDFile, "led-file", cfg.LEDFile, "LED file for the file backend (default: <state-dir>/led)")

	fs.StringVar(&cfg.SensorBackend, "sensor-backend", cfg.SensorBackend, "camera: exec or gocv")
	fs.StringVar(&cfg.CaptureCommand, "capture-command", cfg.CaptureCommand, "still capture program for the exec backend")
	fs.StringVar(&cfg.CameraDevice, "camera-device", cfg.CameraDevice, "camera index or path for the gocv backend")
	fs.IntVar(&cfg.FrameWidth, "frame-width", cfg.FrameWidth, "frame width")
	fs.IntVar(&cfg.FrameHeight, "frame-height", cfg.FrameHeight, "frame height")
	fs.BoolVar(&cfg.VFlip, "vflip", cfg.VFlip, "flip frames vertically")
	fs.BoolVar(&cfg.HMirror, "hmirror", cfg.HMirror, "mirror frames horizontally")
	fs.IntVar(&cfg.JPEGQuality, "jpeg-quality", cfg.JPEGQuality, "JPEG quality (1-100)")

	fs.StringVar(&cfg.StateDir, "state-dir", cfg.StateDir, "state directory for boot.json (default: $HOME/.snapship)")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
}

// resolveConfig applies file, then env, under explicitly set flags and
// validates the result.
func resolveConfig(cmd *cobra.Command, cfgPath string, cfg *cliconfig.Config) error {
	cfgFile := cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}

	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(cfg, fc, changed); err != nil {
			return err
		}
	}

	// Env overrides the file; flags override both (checked via changed map).
	if err := cliconfig.ApplyEnvConfig(cfg, changed); err != nil {
		return err
	}
	return cfg.Validate()
}

func runDevice(cfg cliconfig.Config) error {
	zl := cliconfig.Logger(cfg.LogLevel)
	zl.Info().Interface("config", cfg.Redacted()).Msg("configuration")
	logger := log.NewZerologAdapterWithLogger(zl, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dev, closeDev, err := buildDevice(ctx, cfg, logger)
	if err != nil {
		return err
	}

	agent, err := app.NewAgent(agentConfig(cfg), dev, logger, nil)
	if err != nil {
		closeDev()
		return err
	}

	err = agent.Run(ctx)
	closeDev()

	switch {
	case errors.Is(err, domain.ErrDeepSleepWake):
		logger.Info("woken from deep sleep, restarting")
		return restart()
	case errors.Is(err, context.Canceled):
		logger.Info("received signal, stopped")
		return nil
	}
	return err
}

func agentConfig(cfg cliconfig.Config) app.Config {
	return app.Config{
		SSID:          cfg.SSID,
		Password:      cfg.Password,
		PhotoInterval: cfg.PhotoInterval(),
		Uploader: app.UploaderConfig{
			Endpoint:          cfg.Endpoint,
			Bucket:            cfg.Bucket,
			AuthKey:           cfg.AuthKey,
			LegacyStatusMatch: cfg.LegacyStatusMatch,
		},
		Sensor: ports.SensorSettings{
			Width:       cfg.FrameWidth,
			Height:      cfg.FrameHeight,
			VFlip:       cfg.VFlip,
			HMirror:     cfg.HMirror,
			JPEGQuality: cfg.JPEGQuality,
		},
	}
}

// restart replaces the process with a fresh copy, the host equivalent of
// the reset that follows a deep-sleep wake.
func restart() error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("restart: %w", err)
	}
	return syscall.Exec(exe, os.Args, os.Environ())
}
