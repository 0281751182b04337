package app

import (
	"context"
	"errors"
	"time"

	"github.com/bft-labs/snapship/internal/ports"
	"github.com/bft-labs/snapship/pkg/log"
)

// Station association and time sync timing.
const (
	AssociationTimeout = 15 * time.Second
	associationPoll    = 500 * time.Millisecond
	ReconnectAttempts  = 3
	ReconnectDelay     = 5 * time.Second
	TimeSyncAttempts   = 10
	TimeSyncDelay      = 1 * time.Second
)

var errAssociationTimeout = errors.New("association timed out")

// Station brings up and checks the WiFi association.
type Station struct {
	net      ports.Network
	wall     ports.WallClock
	clock    ports.Clock
	ssid     string
	password string
	retry    RetryPolicy
	sync     RetryPolicy
	logger   log.Logger
}

// NewStation creates a station using the reconnect and time-sync policies
// derived from clock.
func NewStation(dev *Device, ssid, password string, logger log.Logger) *Station {
	return &Station{
		net:      dev.Network,
		wall:     dev.Wall,
		clock:    dev.Clock,
		ssid:     ssid,
		password: password,
		retry: RetryPolicy{
			MaxAttempts: ReconnectAttempts,
			Backoff:     FixedBackoff(ReconnectDelay),
			Sleep:       dev.Clock.Sleep,
		},
		sync: RetryPolicy{
			MaxAttempts: TimeSyncAttempts,
			Backoff:     FixedBackoff(TimeSyncDelay),
			Sleep:       dev.Clock.Sleep,
		},
		logger: logger,
	}
}

// Connected reports whether the station is associated.
func (s *Station) Connected(ctx context.Context) bool {
	return s.net.Info(ctx).Connected
}

// Connect associates with the configured network, waiting up to
// AssociationTimeout per attempt.
func (s *Station) Connect(ctx context.Context) error {
	err := s.retry.Do(ctx, func(attempt int) error {
		s.logger.Info("wifi connecting",
			log.String("ssid", s.ssid),
			log.Int("attempt", attempt),
			log.Int("max_attempts", s.retry.MaxAttempts),
		)
		if err := s.net.Connect(ctx, s.ssid, s.password); err != nil {
			s.logger.Warn("wifi connect failed", log.Err(err), log.Int("attempt", attempt))
			return err
		}
		if err := s.awaitAssociation(ctx); err != nil {
			s.logger.Warn("wifi connection failed",
				log.Err(err),
				log.String("status", s.net.Info(ctx).Status),
				log.Int("attempt", attempt),
			)
			return err
		}
		return nil
	})
	if err != nil {
		s.logger.Error("wifi failed to connect after all retries", log.Err(err))
	}
	return err
}

func (s *Station) awaitAssociation(ctx context.Context) error {
	start := s.clock.Millis()
	for {
		info := s.net.Info(ctx)
		if info.Connected {
			s.logger.Info("wifi connected",
				log.String("address", info.Address),
				log.Int("signal_dbm", info.Signal),
			)
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.clock.Millis().Since(start) >= AssociationTimeout {
			return errAssociationTimeout
		}
		s.clock.Sleep(associationPoll)
	}
}

// SyncTime waits for the wall clock to sync. It reports false when all
// attempts failed; filenames then fall back to the monotonic counter.
func (s *Station) SyncTime(ctx context.Context) bool {
	err := s.sync.Do(ctx, func(attempt int) error {
		if err := s.wall.Sync(ctx); err != nil {
			s.logger.Debug("waiting for time sync", log.Err(err), log.Int("attempt", attempt))
			return err
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("time sync failed, using monotonic timestamps", log.Err(err))
		return false
	}
	if t, ok := s.wall.Now(); ok {
		s.logger.Info("time synchronized", log.String("now", t.Format(time.RFC3339)))
	}
	return true
}
