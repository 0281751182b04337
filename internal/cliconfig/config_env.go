package cliconfig

import "os"

// ApplyEnvConfig applies SNAPSHIP_* environment variables to cfg. Values
// override the config file but never a flag that was set explicitly.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("wifi-ssid", os.Getenv("SNAPSHIP_WIFI_SSID"), &cfg.SSID)
	s.setString("wifi-password", os.Getenv("SNAPSHIP_WIFI_PASSWORD"), &cfg.Password)
	s.setString("wifi-iface", os.Getenv("SNAPSHIP_WIFI_IFACE"), &cfg.Iface)
	s.setString("network-backend", os.Getenv("SNAPSHIP_NETWORK_BACKEND"), &cfg.NetworkBackend)
	s.setString("endpoint", os.Getenv("SNAPSHIP_ENDPOINT"), &cfg.Endpoint)
	s.setString("auth-key", os.Getenv("SNAPSHIP_AUTH_KEY"), &cfg.AuthKey)
	s.setString("bucket", os.Getenv("SNAPSHIP_BUCKET"), &cfg.Bucket)
	s.setString("ntp-server", os.Getenv("SNAPSHIP_NTP_SERVER"), &cfg.NTPServer)
	s.setString("input-backend", os.Getenv("SNAPSHIP_INPUT_BACKEND"), &cfg.InputBackend)
	s.setString("gpio-chip", os.Getenv("SNAPSHIP_GPIO_CHIP"), &cfg.GPIOChip)
	s.setString("input-file", os.Getenv("SNAPSHIP_INPUT_FILE"), &cfg.InputFile)
	s.setString("led-file", os.Getenv("SNAPSHIP_LED_FILE"), &cfg.LEDFile)
	s.setString("sensor-backend", os.Getenv("SNAPSHIP_SENSOR_BACKEND"), &cfg.SensorBackend)
	s.setString("capture-command", os.Getenv("SNAPSHIP_CAPTURE_COMMAND"), &cfg.CaptureCommand)
	s.setString("camera-device", os.Getenv("SNAPSHIP_CAMERA_DEVICE"), &cfg.CameraDevice)
	s.setString("state-dir", os.Getenv("SNAPSHIP_STATE_DIR"), &cfg.StateDir)
	s.setString("log-level", os.Getenv("SNAPSHIP_LOG_LEVEL"), &cfg.LogLevel)

	if err := s.setDuration("gmt-offset", os.Getenv("SNAPSHIP_GMT_OFFSET"), &cfg.GMTOffset); err != nil {
		return err
	}
	if err := s.setDuration("daylight-offset", os.Getenv("SNAPSHIP_DAYLIGHT_OFFSET"), &cfg.DaylightOffset); err != nil {
		return err
	}

	ints := []struct {
		flag, env string
		dst       *int
	}{
		{"photo-interval", "SNAPSHIP_PHOTO_INTERVAL_HOURS", &cfg.PhotoIntervalHours},
		{"button-line", "SNAPSHIP_BUTTON_LINE", &cfg.ButtonLine},
		{"led-line", "SNAPSHIP_LED_LINE", &cfg.LEDLine},
		{"frame-width", "SNAPSHIP_FRAME_WIDTH", &cfg.FrameWidth},
		{"frame-height", "SNAPSHIP_FRAME_HEIGHT", &cfg.FrameHeight},
		{"jpeg-quality", "SNAPSHIP_JPEG_QUALITY", &cfg.JPEGQuality},
	}
	for _, i := range ints {
		if err := s.setIntFromString(i.flag, os.Getenv(i.env), i.dst); err != nil {
			return err
		}
	}

	s.setBoolFromString("legacy-status-match", os.Getenv("SNAPSHIP_LEGACY_STATUS_MATCH"), &cfg.LegacyStatusMatch)
	s.setBoolFromString("vflip", os.Getenv("SNAPSHIP_VFLIP"), &cfg.VFlip)
	s.setBoolFromString("hmirror", os.Getenv("SNAPSHIP_HMIRROR"), &cfg.HMirror)

	return nil
}
