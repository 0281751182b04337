package domain

// PowerState is the device power state. Exactly one instance exists per
// process, owned by the power state controller.
type PowerState int

const (
	PowerActive PowerState = iota
	PowerLightSleepWindow
	PowerDeepSleepPending
	PowerDeepSleep
)

// String returns a human-readable representation of the state.
func (s PowerState) String() string {
	switch s {
	case PowerActive:
		return "Active"
	case PowerLightSleepWindow:
		return "LightSleepWindow"
	case PowerDeepSleepPending:
		return "DeepSleepPending"
	case PowerDeepSleep:
		return "DeepSleep"
	default:
		return "Unknown"
	}
}

// WakeCause tells why a bounded suspend ended.
type WakeCause int

const (
	WakeTimer WakeCause = iota
	WakeExternal
)

func (c WakeCause) String() string {
	if c == WakeExternal {
		return "external"
	}
	return "timer"
}
