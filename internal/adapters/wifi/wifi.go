// Package wifi controls the station interface through NetworkManager over
// D-Bus. Signal level and 802.11 power saving go through the iw utility.
package wifi

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/bft-labs/snapship/internal/ports"
	"github.com/bft-labs/snapship/pkg/log"
)

// Runner executes a command and returns its standard output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs commands on the host.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if ee, ok := err.(*exec.ExitError); ok && len(ee.Stderr) > 0 {
		return out, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(ee.Stderr)))
	}
	return out, err
}

// Device state codes reported by NetworkManager.
const (
	stateUnknown      uint32 = 0
	stateUnmanaged    uint32 = 10
	stateUnavailable  uint32 = 20
	stateDisconnected uint32 = 30
	stateActivated    uint32 = 100
	stateFailed       uint32 = 120
)

// deviceState is one reading of the station device.
type deviceState struct {
	Code    uint32
	Address string
}

// manager is the part of NetworkManager the station uses.
type manager interface {
	SetWirelessEnabled(on bool) error
	Activate(iface, ssid, password string) error
	Device(iface string) (deviceState, error)
	Disconnect(iface string) error
}

// Station implements ports.Network for one wireless interface.
type Station struct {
	iface  string
	nm     manager
	run    Runner
	logger log.Logger
}

// NewStation connects to NetworkManager on the system bus and returns a
// station client for iface (e.g. "wlan0").
func NewStation(iface string, run Runner, logger log.Logger) (*Station, error) {
	nm, err := newDBusManager()
	if err != nil {
		return nil, err
	}
	return newStation(iface, nm, run, logger), nil
}

func newStation(iface string, nm manager, run Runner, logger log.Logger) *Station {
	if run == nil {
		run = ExecRunner
	}
	return &Station{iface: iface, nm: nm, run: run, logger: logger}
}

// Connect requests association without waiting for it to complete.
func (s *Station) Connect(ctx context.Context, ssid, password string) error {
	if err := s.nm.SetWirelessEnabled(true); err != nil {
		s.logger.Debug("enable radio", log.Err(err))
	}
	if err := s.nm.Activate(s.iface, ssid, password); err != nil {
		return fmt.Errorf("connect %q: %w", ssid, err)
	}
	return nil
}

// Info reports the association state, address and signal level.
func (s *Station) Info(ctx context.Context) ports.LinkInfo {
	st, err := s.nm.Device(s.iface)
	if err != nil {
		return ports.LinkInfo{Status: err.Error()}
	}
	info := ports.LinkInfo{
		Connected: st.Code == stateActivated,
		Address:   st.Address,
		Status:    stateName(st.Code),
	}
	if info.Connected {
		if link, err := s.run(ctx, "iw", "dev", s.iface, "link"); err == nil {
			info.Signal = parseSignal(link)
		}
	}
	return info
}

// Disconnect drops the association.
func (s *Station) Disconnect(ctx context.Context) error {
	return s.nm.Disconnect(s.iface)
}

// PowerOff switches the WiFi radio off.
func (s *Station) PowerOff(ctx context.Context) error {
	return s.nm.SetWirelessEnabled(false)
}

// SetPowerSave toggles 802.11 power saving on the interface. NetworkManager
// only applies its powersave setting when a connection is activated, so the
// live toggle goes through iw.
func (s *Station) SetPowerSave(ctx context.Context, enabled bool) error {
	mode := "off"
	if enabled {
		mode = "on"
	}
	_, err := s.run(ctx, "iw", "dev", s.iface, "set", "power_save", mode)
	return err
}

func stateName(code uint32) string {
	switch {
	case code == stateUnknown:
		return "unknown"
	case code == stateUnmanaged:
		return "unmanaged"
	case code == stateUnavailable:
		return "unavailable"
	case code == stateDisconnected:
		return "disconnected"
	case code == stateActivated:
		return "connected"
	case code == stateFailed:
		return "failed"
	case code > stateDisconnected && code < stateActivated:
		return "connecting"
	case code > stateActivated && code < stateFailed:
		return "deactivating"
	}
	return "state " + strconv.FormatUint(uint64(code), 10)
}

// parseSignal extracts the level in dBm from `iw dev <if> link`, 0 if
// absent. NetworkManager only reports a 0-100 strength.
func parseSignal(out []byte) int {
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) >= 2 && fields[0] == "signal:" {
			if v, err := strconv.Atoi(fields[1]); err == nil {
				return v
			}
		}
	}
	return 0
}

// Static is a Network for hosts whose link is managed elsewhere. It always
// reports connected.
type Static struct{}

func (Static) Connect(context.Context, string, string) error { return nil }
func (Static) Info(context.Context) ports.LinkInfo {
	return ports.LinkInfo{Connected: true, Status: "static"}
}
func (Static) Disconnect(context.Context) error         { return nil }
func (Static) PowerOff(context.Context) error           { return nil }
func (Static) SetPowerSave(context.Context, bool) error { return nil }
