// Package ntp provides the calendar time source. Until the first successful
// query the time is reported as unavailable.
package ntp

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/beevik/ntp"
)

// DefaultServer is the pool queried when none is configured.
const DefaultServer = "pool.ntp.org"

const queryTimeout = 5 * time.Second

type queryFunc func(host string, opt ntp.QueryOptions) (*ntp.Response, error)

// Clock corrects the host clock by the offset measured against an NTP
// server and renders it in a fixed zone.
type Clock struct {
	server string
	zone   *time.Location
	query  queryFunc
	now    func() time.Time

	mu     sync.RWMutex
	offset time.Duration
	synced bool
}

// NewClock creates a clock for server. gmtOffset and daylightOffset are
// added together to form the zone used for filenames.
func NewClock(server string, gmtOffset, daylightOffset time.Duration) *Clock {
	if server == "" {
		server = DefaultServer
	}
	total := gmtOffset + daylightOffset
	return &Clock{
		server: server,
		zone:   time.FixedZone(zoneName(total), int(total/time.Second)),
		query:  ntp.QueryWithOptions,
		now:    time.Now,
	}
}

// Sync queries the server once and records the offset.
func (c *Clock) Sync(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	opts := ntp.QueryOptions{Timeout: queryTimeout}
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left < opts.Timeout {
			opts.Timeout = left
		}
	}

	resp, err := c.query(c.server, opts)
	if err != nil {
		return fmt.Errorf("ntp query %s: %w", c.server, err)
	}
	if err := resp.Validate(); err != nil {
		return fmt.Errorf("ntp response from %s: %w", c.server, err)
	}

	c.mu.Lock()
	c.offset = resp.ClockOffset
	c.synced = true
	c.mu.Unlock()
	return nil
}

// Now returns the corrected time, ok=false before the first Sync.
func (c *Clock) Now() (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.synced {
		return time.Time{}, false
	}
	return c.now().Add(c.offset).In(c.zone), true
}

func zoneName(offset time.Duration) string {
	if offset == 0 {
		return "UTC"
	}
	sign := '+'
	if offset < 0 {
		sign = '-'
		offset = -offset
	}
	return fmt.Sprintf("UTC%c%02d:%02d", sign, int(offset.Hours()), int(offset.Minutes())%60)
}
