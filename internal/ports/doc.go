// Package ports defines the interfaces that connect the capture agent to the
// hardware and network it runs on.
//
// The application layer (internal/app) depends only on these interfaces.
// Adapters in internal/adapters implement them for Linux GPIO, file-backed
// simulation, NetworkManager, crypto/tls, NTP and the camera drivers; tests
// implement them with fakes that record calls instead of touching hardware.
//
// # Port Interfaces
//
//   - [Sensor]: image sensor producing JPEG frames
//   - [Network]: WiFi station client
//   - [Dialer], [Conn]: encrypted streaming socket
//   - [Clock]: monotonic millisecond counter and blocking delay
//   - [WallClock]: calendar time, unavailable until synced
//   - [InputPin], [LED]: control input and status indicator
//   - [Power]: light and deep sleep primitives
//   - [BootRecordRepository]: reset-reason bookkeeping across restarts
package ports
