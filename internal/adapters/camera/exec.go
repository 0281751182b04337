package camera

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"time"

	"github.com/bft-labs/snapship/internal/domain"
	"github.com/bft-labs/snapship/internal/ports"
	"github.com/bft-labs/snapship/pkg/log"
)

// DefaultCommand is the still-capture program used when none is configured.
const DefaultCommand = "libcamera-still"

const captureTimeout = 10 * time.Second

// commandRunner runs a capture command and returns its stdout.
type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil && stderr.Len() > 0 {
		return nil, fmt.Errorf("%s: %w: %s", name, err, bytes.TrimSpace(stderr.Bytes()))
	}
	return out, err
}

// Command captures stills by running a libcamera-style program that writes
// a JPEG to stdout.
type Command struct {
	command  string
	run      commandRunner
	lookPath func(string) (string, error)
	logger   log.Logger

	settings ports.SensorSettings
	ready    bool
	guard    bufferGuard
}

// NewCommand creates a sensor running command (DefaultCommand if empty).
func NewCommand(command string, logger log.Logger) *Command {
	if command == "" {
		command = DefaultCommand
	}
	return &Command{
		command:  command,
		run:      runCommand,
		lookPath: exec.LookPath,
		logger:   logger,
	}
}

// Init checks the capture program is present and stores the settings.
func (c *Command) Init(settings ports.SensorSettings) error {
	if _, err := c.lookPath(c.command); err != nil {
		return fmt.Errorf("camera command %q: %w", c.command, err)
	}
	if settings.Width <= 0 || settings.Height <= 0 {
		return fmt.Errorf("invalid frame size %dx%d", settings.Width, settings.Height)
	}
	c.settings = settings
	c.ready = true
	return nil
}

// Capture runs the program once. ok is false when the sensor is not
// initialized, the buffer is still held or the program fails.
func (c *Command) Capture() (*domain.Frame, bool) {
	if !c.ready {
		c.logger.Error("capture before init")
		return nil, false
	}
	if !c.guard.acquire() {
		c.logger.Error("capture failed", log.Err(ErrBufferHeld))
		return nil, false
	}

	ctx, cancel := context.WithTimeout(context.Background(), captureTimeout)
	defer cancel()

	data, err := c.run(ctx, c.command, c.args()...)
	if err != nil {
		c.guard.release()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%w after %v", err, captureTimeout)
		}
		c.logger.Error("capture command failed", log.Err(err))
		return nil, false
	}
	return domain.NewFrame(data, c.guard.release), true
}

// Deinit marks the sensor uninitialized.
func (c *Command) Deinit() error {
	c.ready = false
	return nil
}

func (c *Command) args() []string {
	s := c.settings
	args := []string{
		"--nopreview",
		"--immediate",
		"-t", "1",
		"--encoding", "jpg",
		"--width", strconv.Itoa(s.Width),
		"--height", strconv.Itoa(s.Height),
	}
	if s.JPEGQuality > 0 {
		args = append(args, "--quality", strconv.Itoa(s.JPEGQuality))
	}
	if s.VFlip {
		args = append(args, "--vflip")
	}
	if s.HMirror {
		args = append(args, "--hflip")
	}
	return append(args, "-o", "-")
}
