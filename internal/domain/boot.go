package domain

import "time"

// ResetReason is why the current process started.
type ResetReason string

const (
	ResetPowerOn   ResetReason = "power-on"
	ResetSoftware  ResetReason = "software"
	ResetPanic     ResetReason = "panic"
	ResetDeepSleep ResetReason = "deep-sleep"
	ResetUnknown   ResetReason = "unknown"
)

// BootPhase is what the running process last recorded about itself.
type BootPhase string

const (
	PhaseRunning   BootPhase = "running"
	PhaseStopped   BootPhase = "stopped"
	PhaseDeepSleep BootPhase = "deep-sleep"
)

// BootRecord is persisted across process restarts so the next boot can tell
// a deep-sleep wake from a crash. It is diagnostics only and never alters
// startup behavior.
type BootRecord struct {
	Phase     BootPhase `json:"phase"`
	BootCount uint64    `json:"boot_count"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ResetReason derives why this boot happened from the previous record. An
// empty record means there was no previous boot.
func (r BootRecord) ResetReason() ResetReason {
	switch r.Phase {
	case "":
		return ResetPowerOn
	case PhaseDeepSleep:
		return ResetDeepSleep
	case PhaseStopped:
		return ResetSoftware
	case PhaseRunning:
		// The previous process never recorded an orderly exit.
		return ResetPanic
	default:
		return ResetUnknown
	}
}
