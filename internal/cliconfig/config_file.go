package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	WiFi    WiFiFileConfig    `toml:"wifi"`
	Storage StorageFileConfig `toml:"storage"`
	Time    TimeFileConfig    `toml:"time"`
	Input   InputFileConfig   `toml:"input"`
	Camera  CameraFileConfig  `toml:"camera"`

	PhotoIntervalHours int    `toml:"photo_interval_hours"`
	StateDir           string `toml:"state_dir"`
	LogLevel           string `toml:"log_level"`
}

// WiFiFileConfig is the [wifi] table.
type WiFiFileConfig struct {
	SSID     string `toml:"ssid"`
	Password string `toml:"password"`
	Iface    string `toml:"iface"`
	Backend  string `toml:"backend"`
}

// StorageFileConfig is the [storage] table.
type StorageFileConfig struct {
	Endpoint          string `toml:"endpoint"`
	AuthKey           string `toml:"auth_key"`
	Bucket            string `toml:"bucket"`
	LegacyStatusMatch *bool  `toml:"legacy_status_match"`
}

// TimeFileConfig is the [time] table.
type TimeFileConfig struct {
	NTPServer      string `toml:"ntp_server"`
	GMTOffset      string `toml:"gmt_offset"`
	DaylightOffset string `toml:"daylight_offset"`
}

// InputFileConfig is the [input] table.
type InputFileConfig struct {
	Backend    string `toml:"backend"`
	GPIOChip   string `toml:"gpio_chip"`
	ButtonLine int    `toml:"button_line"`
	LEDLine    int    `toml:"led_line"`
	ButtonFile string `toml:"button_file"`
	LEDFile    string `toml:"led_file"`
}

// CameraFileConfig is the [camera] table.
type CameraFileConfig struct {
	Backend     string `toml:"backend"`
	Command     string `toml:"command"`
	Device      string `toml:"device"`
	Width       int    `toml:"width"`
	Height      int    `toml:"height"`
	VFlip       *bool  `toml:"vflip"`
	HMirror     *bool  `toml:"hmirror"`
	JPEGQuality int    `toml:"jpeg_quality"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.snapship/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".snapship", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("wifi-ssid", fc.WiFi.SSID, &cfg.SSID)
	s.setString("wifi-password", fc.WiFi.Password, &cfg.Password)
	s.setString("wifi-iface", fc.WiFi.Iface, &cfg.Iface)
	s.setString("network-backend", fc.WiFi.Backend, &cfg.NetworkBackend)

	s.setString("endpoint", fc.Storage.Endpoint, &cfg.Endpoint)
	s.setString("auth-key", fc.Storage.AuthKey, &cfg.AuthKey)
	s.setString("bucket", fc.Storage.Bucket, &cfg.Bucket)
	s.setBool("legacy-status-match", fc.Storage.LegacyStatusMatch, &cfg.LegacyStatusMatch)

	s.setString("ntp-server", fc.Time.NTPServer, &cfg.NTPServer)
	if err := s.setDuration("gmt-offset", fc.Time.GMTOffset, &cfg.GMTOffset); err != nil {
		return err
	}
	if err := s.setDuration("daylight-offset", fc.Time.DaylightOffset, &cfg.DaylightOffset); err != nil {
		return err
	}

	s.setString("input-backend", fc.Input.Backend, &cfg.InputBackend)
	s.setString("gpio-chip", fc.Input.GPIOChip, &cfg.GPIOChip)
	s.setInt("button-line", fc.Input.ButtonLine, &cfg.ButtonLine)
	s.setInt("led-line", fc.Input.LEDLine, &cfg.LEDLine)
	s.setString("input-file", fc.Input.ButtonFile, &cfg.InputFile)
	s.setString("led-file", fc.Input.LEDFile, &cfg.LEDFile)

	s.setString("sensor-backend", fc.Camera.Backend, &cfg.SensorBackend)
	s.setString("capture-command", fc.Camera.Command, &cfg.CaptureCommand)
	s.setString("camera-device", fc.Camera.Device, &cfg.CameraDevice)
	s.setInt("frame-width", fc.Camera.Width, &cfg.FrameWidth)
	s.setInt("frame-height", fc.Camera.Height, &cfg.FrameHeight)
	s.setBool("vflip", fc.Camera.VFlip, &cfg.VFlip)
	s.setBool("hmirror", fc.Camera.HMirror, &cfg.HMirror)
	s.setInt("jpeg-quality", fc.Camera.JPEGQuality, &cfg.JPEGQuality)

	s.setInt("photo-interval", fc.PhotoIntervalHours, &cfg.PhotoIntervalHours)
	s.setString("state-dir", fc.StateDir, &cfg.StateDir)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
