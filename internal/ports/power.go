package ports

import (
	"context"
	"time"

	"github.com/bft-labs/snapship/internal/domain"
)

// Power abstracts the sleep primitives.
type Power interface {
	// SuspendFor halts for at most d. It returns early with WakeExternal when
	// the control input is asserted.
	SuspendFor(ctx context.Context, d time.Duration) (domain.WakeCause, error)

	// EnableExternalWake arms the control input (active-low) as the deep
	// sleep wake source.
	EnableExternalWake() error

	// SuspendUntilExternalWake halts until the wake source fires. On real
	// hardware it never returns; the next boot is a fresh process.
	SuspendUntilExternalWake(ctx context.Context) error
}

// BootRecordRepository persists the boot record across process restarts.
type BootRecordRepository interface {
	// Load returns an empty record and nil error when none exists.
	Load(ctx context.Context) (domain.BootRecord, error)

	// Save persists the record atomically.
	Save(ctx context.Context, rec domain.BootRecord) error
}
