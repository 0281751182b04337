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

// Device owns the handles to every hardware resource. It is built once at
// startup and passed by reference to each component; nothing in this
// package reaches hardware any other way.
type Device struct {
	Sensor  ports.Sensor
	Network ports.Network
	Dialer  ports.Dialer
	Clock   ports.Clock
	Wall    ports.WallClock
	Button  ports.InputPin
	LED     ports.LED
	Power   ports.Power
	Boot    ports.BootRecordRepository
}

// Validate checks that every handle is set.
func (d *Device) Validate() error {
	var missing []error
	check := func(ok bool, name string) {
		if !ok {
			missing = append(missing, fmt.Errorf("device: %s is nil", name))
		}
	}
	check(d.Sensor != nil, "sensor")
	check(d.Network != nil, "network")
	check(d.Dialer != nil, "dialer")
	check(d.Clock != nil, "clock")
	check(d.Wall != nil, "wall clock")
	check(d.Button != nil, "button")
	check(d.LED != nil, "led")
	check(d.Power != nil, "power")
	check(d.Boot != nil, "boot record repository")
	return errors.Join(missing...)
}

// bootLog keeps the boot record current so the next process can tell why it
// started. Failures are logged and otherwise ignored.
type bootLog struct {
	repo   ports.BootRecordRepository
	rec    domain.BootRecord
	logger log.Logger
	now    func() time.Time
}

func newBootLog(repo ports.BootRecordRepository, logger log.Logger) *bootLog {
	return &bootLog{repo: repo, logger: logger, now: time.Now}
}

// start loads the previous record, derives the reset reason and records
// this boot as running.
func (b *bootLog) start(ctx context.Context) domain.ResetReason {
	prev, err := b.repo.Load(ctx)
	if err != nil {
		b.logger.Warn("load boot record", log.Err(err))
	}
	b.rec = domain.BootRecord{BootCount: prev.BootCount + 1}
	b.mark(ctx, domain.PhaseRunning)
	return prev.ResetReason()
}

func (b *bootLog) mark(ctx context.Context, phase domain.BootPhase) {
	if b == nil {
		return
	}
	b.rec.Phase = phase
	b.rec.UpdatedAt = b.now().UTC()
	if err := b.repo.Save(ctx, b.rec); err != nil {
		b.logger.Warn("save boot record", log.Err(err), log.String("phase", string(phase)))
	}
}

func (b *bootLog) bootCount() uint64 { return b.rec.BootCount }
