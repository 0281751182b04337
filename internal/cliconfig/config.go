package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bft-labs/snapship/internal/domain"
)

// Backend names.
const (
	NetworkManager = "networkmanager"
	NetworkStatic  = "static"
	InputGPIO      = "gpio"
	InputFile      = "file"
	SensorExec     = "exec"
	SensorGoCV     = "gocv"
)

// Config holds CLI configuration for snapship.
type Config struct {
	SSID           string
	Password       string
	Iface          string
	NetworkBackend string

	Endpoint          string
	AuthKey           string
	Bucket            string
	LegacyStatusMatch bool

	PhotoIntervalHours int

	NTPServer      string
	GMTOffset      time.Duration
	DaylightOffset time.Duration

	InputBackend string
	GPIOChip     string
	ButtonLine   int
	LEDLine      int
	InputFile    string
	LEDFile      string

	SensorBackend  string
	CaptureCommand string
	CameraDevice   string
	FrameWidth     int
	FrameHeight    int
	VFlip          bool
	HMirror        bool
	JPEGQuality    int

	StateDir string
	LogLevel string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Iface:              "wlan0",
		NetworkBackend:     NetworkManager,
		Bucket:             "photos",
		PhotoIntervalHours: 1,
		NTPServer:          "pool.ntp.org",
		InputBackend:       InputGPIO,
		GPIOChip:           "gpiochip0",
		ButtonLine:         17,
		LEDLine:            27,
		SensorBackend:      SensorExec,
		CaptureCommand:     "libcamera-still",
		CameraDevice:       "0",
		FrameWidth:         640,
		FrameHeight:        480,
		VFlip:              true,
		JPEGQuality:        85,
		StateDir:           "", // Derived from the home directory during Validate
		LogLevel:           "info",
		AuthKey:            os.Getenv("SNAPSHIP_AUTH_KEY"),
	}
}

// PhotoInterval returns the capture interval as a duration.
func (c Config) PhotoInterval() time.Duration {
	return time.Duration(c.PhotoIntervalHours) * time.Hour
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	if c.NetworkBackend != NetworkManager && c.NetworkBackend != NetworkStatic {
		return fmt.Errorf("unknown network backend %q", c.NetworkBackend)
	}
	if c.NetworkBackend == NetworkManager && c.SSID == "" {
		return fmt.Errorf("wifi-ssid is required")
	}
	if c.NetworkBackend == NetworkStatic && c.SSID == "" {
		c.SSID = "static"
	}

	if c.Endpoint == "" {
		return fmt.Errorf("endpoint is required")
	}
	// Ensure no trailing slash
	c.Endpoint = strings.TrimRight(c.Endpoint, "/")

	if c.AuthKey == "" {
		return fmt.Errorf("auth-key is required")
	}
	if c.Bucket == "" {
		return fmt.Errorf("bucket is required")
	}
	if c.PhotoIntervalHours <= 0 {
		return fmt.Errorf("photo interval must be a positive number of hours")
	}
	if maxHours := int(domain.MaxSpan / time.Hour); c.PhotoIntervalHours > maxHours {
		return fmt.Errorf("photo interval must be at most %d hours", maxHours)
	}

	if c.InputBackend != InputGPIO && c.InputBackend != InputFile {
		return fmt.Errorf("unknown input backend %q", c.InputBackend)
	}
	if c.SensorBackend != SensorExec && c.SensorBackend != SensorGoCV {
		return fmt.Errorf("unknown sensor backend %q", c.SensorBackend)
	}
	if c.FrameWidth <= 0 || c.FrameHeight <= 0 {
		return fmt.Errorf("frame size must be positive")
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("jpeg quality must be between 1 and 100")
	}

	if c.StateDir == "" {
		h, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("state-dir is required: %w", err)
		}
		c.StateDir = filepath.Join(h, ".snapship")
	}
	if c.InputFile == "" {
		c.InputFile = filepath.Join(c.StateDir, "button")
	}
	if c.LEDFile == "" {
		c.LEDFile = filepath.Join(c.StateDir, "led")
	}

	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Redacted returns a copy safe to log.
func (c Config) Redacted() Config {
	if len(c.AuthKey) > 0 {
		c.AuthKey = "*****"
	}
	if len(c.Password) > 0 {
		c.Password = "*****"
	}
	return c
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
// Used for environment variables that come as strings.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
