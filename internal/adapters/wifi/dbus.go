package wifi

import (
	"errors"
	"fmt"

	gonm "github.com/Wifx/gonetworkmanager/v2"
)

var errSSIDNotVisible = errors.New("ssid not visible")

// dbusManager drives NetworkManager through its D-Bus API.
type dbusManager struct {
	nm gonm.NetworkManager
}

func newDBusManager() (*dbusManager, error) {
	nm, err := gonm.NewNetworkManager()
	if err != nil {
		return nil, fmt.Errorf("networkmanager: %w", err)
	}
	return &dbusManager{nm: nm}, nil
}

func (m *dbusManager) SetWirelessEnabled(on bool) error {
	return m.nm.SetPropertyWirelessEnabled(on)
}

// Activate starts a connection to ssid on iface, reusing a saved profile
// with the same id when there is one.
func (m *dbusManager) Activate(iface, ssid, password string) error {
	dev, err := m.nm.GetDeviceByIpIface(iface)
	if err != nil {
		return fmt.Errorf("device %s: %w", iface, err)
	}
	wireless, err := gonm.NewDeviceWireless(dev.GetPath())
	if err != nil {
		return fmt.Errorf("device %s: %w", iface, err)
	}

	ap, err := findAccessPoint(wireless, ssid)
	if err != nil {
		return err
	}

	if saved, ok := findConnection(ssid); ok {
		_, err = m.nm.ActivateWirelessConnection(saved, dev, ap)
		return err
	}

	settings := map[string]map[string]interface{}{
		"connection": {
			"id":   ssid,
			"type": "802-11-wireless",
		},
		"802-11-wireless": {
			"ssid": []byte(ssid),
			"mode": "infrastructure",
		},
	}
	if password != "" {
		settings["802-11-wireless-security"] = map[string]interface{}{
			"key-mgmt": "wpa-psk",
			"psk":      password,
		}
	}
	_, err = m.nm.AddAndActivateWirelessConnection(settings, dev, ap)
	return err
}

func findAccessPoint(wireless gonm.DeviceWireless, ssid string) (gonm.AccessPoint, error) {
	aps, err := wireless.GetAccessPoints()
	if err != nil {
		return nil, fmt.Errorf("access points: %w", err)
	}
	for _, ap := range aps {
		if name, err := ap.GetPropertySSID(); err == nil && name == ssid {
			return ap, nil
		}
	}
	// The next attempt sees fresh results.
	_ = wireless.RequestScan()
	return nil, fmt.Errorf("%w: %q", errSSIDNotVisible, ssid)
}

func findConnection(id string) (gonm.Connection, bool) {
	settings, err := gonm.NewSettings()
	if err != nil {
		return nil, false
	}
	conns, err := settings.ListConnections()
	if err != nil {
		return nil, false
	}
	for _, c := range conns {
		s, err := c.GetSettings()
		if err != nil {
			continue
		}
		if got, ok := s["connection"]["id"].(string); ok && got == id {
			return c, true
		}
	}
	return nil, false
}

func (m *dbusManager) Device(iface string) (deviceState, error) {
	dev, err := m.nm.GetDeviceByIpIface(iface)
	if err != nil {
		return deviceState{}, fmt.Errorf("device %s: %w", iface, err)
	}
	code, err := dev.GetPropertyState()
	if err != nil {
		return deviceState{}, err
	}
	st := deviceState{Code: uint32(code)}
	if st.Code != stateActivated {
		return st, nil
	}
	if ip4, err := dev.GetPropertyIP4Config(); err == nil && ip4 != nil {
		if addrs, err := ip4.GetPropertyAddressData(); err == nil && len(addrs) > 0 {
			st.Address = addrs[0].Address
		}
	}
	return st, nil
}

func (m *dbusManager) Disconnect(iface string) error {
	dev, err := m.nm.GetDeviceByIpIface(iface)
	if err != nil {
		return fmt.Errorf("device %s: %w", iface, err)
	}
	return dev.Disconnect()
}
