package app

import (
	"context"

	"github.com/bft-labs/snapship/internal/domain"
	"github.com/bft-labs/snapship/pkg/log"
)

// Trigger names what started a capture.
type Trigger string

const (
	TriggerSchedule Trigger = "schedule"
	TriggerButton   Trigger = "button"
)

// CycleResult summarizes one capture cycle.
type CycleResult struct {
	Captured bool
	Filename string
	Outcome  domain.Outcome
}

// CaptureCycle runs capture, validation, reconnection and upload for a
// single frame. The frame is released exactly once on every path.
type CaptureCycle struct {
	dev       *Device
	power     *PowerController
	station   *Station
	uploader  *Uploader
	indicator *Indicator
	logger    log.Logger
}

// NewCaptureCycle wires a capture cycle.
func NewCaptureCycle(dev *Device, power *PowerController, station *Station, uploader *Uploader, indicator *Indicator, logger log.Logger) *CaptureCycle {
	return &CaptureCycle{
		dev:       dev,
		power:     power,
		station:   station,
		uploader:  uploader,
		indicator: indicator,
		logger:    logger,
	}
}

// Run captures and uploads one frame.
func (c *CaptureCycle) Run(ctx context.Context, trigger Trigger) CycleResult {
	if st := c.power.State(); st != domain.PowerActive {
		c.logger.Warn("capture refused", log.String("state", st.String()), log.String("trigger", string(trigger)))
		return CycleResult{Outcome: domain.Outcome{Status: domain.OutcomeNotActive, Detail: st.String()}}
	}

	c.logger.Info("taking photo", log.String("trigger", string(trigger)))
	c.indicator.On()

	frame, ok := c.dev.Sensor.Capture()
	if !ok {
		c.logger.Error("camera capture failed")
		c.indicator.Off()
		return CycleResult{Outcome: domain.Outcome{Status: domain.OutcomeInvalidFrame, Detail: "capture failed"}}
	}
	defer frame.Release()

	c.logger.Info("photo captured", log.Int("bytes", frame.Len()))
	res := CycleResult{Captured: true}

	if err := frame.Validate(); err != nil {
		c.logger.Error("invalid frame", log.Err(err))
		res.Outcome = domain.Outcome{Status: domain.OutcomeInvalidFrame, Detail: err.Error(), Cause: err}
		c.indicator.Blink(PatternUploadFailed)
		return res
	}

	if !c.station.Connected(ctx) {
		c.logger.Warn("wifi disconnected, reconnecting")
		if err := c.station.Connect(ctx); err != nil {
			c.logger.Error("wifi reconnect failed, photo dropped", log.Err(err))
			res.Outcome = domain.Outcome{Status: domain.OutcomeNetworkUnavailable, Detail: err.Error()}
			c.indicator.Blink(PatternConnectivityFailed)
			return res
		}
	}

	wall, synced := c.dev.Wall.Now()
	res.Filename = domain.PhotoFilename(wall, synced, c.dev.Clock.Millis())
	res.Outcome = c.uploader.Upload(ctx, frame, res.Filename)

	if res.Outcome.OK() {
		c.indicator.Blink(PatternUploadOK)
	} else {
		c.indicator.Blink(PatternUploadFailed)
	}
	return res
}
