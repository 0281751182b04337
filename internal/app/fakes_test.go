package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bft-labs/snapship/internal/domain"
	"github.com/bft-labs/snapship/internal/ports"
	"github.com/bft-labs/snapship/pkg/log"
)

// mockLogger records messages for assertions.
type mockLogger struct {
	mu      sync.Mutex
	entries []string
	flushes int
}

func (m *mockLogger) record(level, msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, level+" "+msg)
}

func (m *mockLogger) Debug(msg string, fields ...log.Field) { m.record("DEBUG", msg) }
func (m *mockLogger) Info(msg string, fields ...log.Field)  { m.record("INFO", msg) }
func (m *mockLogger) Warn(msg string, fields ...log.Field)  { m.record("WARN", msg) }
func (m *mockLogger) Error(msg string, fields ...log.Field) { m.record("ERROR", msg) }

func (m *mockLogger) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flushes++
	m.entries = append(m.entries, "FLUSH")
	return nil
}

func (m *mockLogger) contains(substr string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if strings.Contains(e, substr) {
			return true
		}
	}
	return false
}

// fakeClock is a manual monotonic clock. Sleep advances it.
type fakeClock struct {
	now     domain.Millis
	slept   []time.Duration
	onSleep func(d time.Duration)
}

func (c *fakeClock) Millis() domain.Millis { return c.now }

func (c *fakeClock) Sleep(d time.Duration) {
	c.slept = append(c.slept, d)
	c.now = c.now.Add(d)
	if c.onSleep != nil {
		c.onSleep(d)
	}
}

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type fakeSensor struct {
	initErr    error
	initCalls  int
	deinits    int
	captures   int
	failNext   bool
	data       []byte
	releases   int
	lastFrame  *domain.Frame
	initConfig ports.SensorSettings
}

func (s *fakeSensor) Init(settings ports.SensorSettings) error {
	s.initCalls++
	s.initConfig = settings
	return s.initErr
}

func (s *fakeSensor) Capture() (*domain.Frame, bool) {
	s.captures++
	if s.failNext {
		s.failNext = false
		return nil, false
	}
	s.lastFrame = domain.NewFrame(s.data, func() { s.releases++ })
	return s.lastFrame, true
}

func (s *fakeSensor) Deinit() error {
	s.deinits++
	return nil
}

// fakeNetwork associates on the Connect call numbered associateOn (1-based);
// zero means never.
type fakeNetwork struct {
	connected    bool
	associateOn  int
	connectCalls int
	disconnects  int
	powerOffs    int
	powerSave    []bool
	calls        []string
}

func (n *fakeNetwork) Connect(ctx context.Context, ssid, password string) error {
	n.connectCalls++
	n.calls = append(n.calls, "connect")
	if n.associateOn > 0 && n.connectCalls >= n.associateOn {
		n.connected = true
	}
	return nil
}

func (n *fakeNetwork) Info(ctx context.Context) ports.LinkInfo {
	if n.connected {
		return ports.LinkInfo{Connected: true, Address: "192.168.1.20", Signal: -55, Status: "connected"}
	}
	return ports.LinkInfo{Status: "disconnected"}
}

func (n *fakeNetwork) Disconnect(ctx context.Context) error {
	n.disconnects++
	n.connected = false
	n.calls = append(n.calls, "disconnect")
	return nil
}

func (n *fakeNetwork) PowerOff(ctx context.Context) error {
	n.powerOffs++
	n.calls = append(n.calls, "poweroff")
	return nil
}

func (n *fakeNetwork) SetPowerSave(ctx context.Context, enabled bool) error {
	n.powerSave = append(n.powerSave, enabled)
	return nil
}

// fakeConn records writes and replays response.
type fakeConn struct {
	writes      [][]byte
	shortWrite  int // 1-based write call that accepts one byte less; 0 disables
	writeErr    error
	response    *strings.Reader
	readErr     error
	closed      int
	readTimeout time.Time
}

func newFakeConn(response string) *fakeConn {
	return &fakeConn{response: strings.NewReader(response)}
}

func (c *fakeConn) Write(p []byte) (int, error) {
	if c.writeErr != nil {
		return 0, c.writeErr
	}
	c.writes = append(c.writes, append([]byte(nil), p...))
	if c.shortWrite == len(c.writes) && len(p) > 0 {
		return len(p) - 1, nil
	}
	return len(p), nil
}

func (c *fakeConn) Read(p []byte) (int, error) {
	if c.readErr != nil {
		return 0, c.readErr
	}
	return c.response.Read(p)
}

func (c *fakeConn) SetReadDeadline(t time.Time) error {
	c.readTimeout = t
	return nil
}

func (c *fakeConn) Close() error {
	c.closed++
	return nil
}

// body returns everything written after the header write.
func (c *fakeConn) body() []byte {
	var out []byte
	for _, w := range c.writes[1:] {
		out = append(out, w...)
	}
	return out
}

// fakeDialer fails the first failures dials, then returns newConn().
type fakeDialer struct {
	failures int
	dials    int
	timeouts []time.Duration
	conns    []*fakeConn
	newConn  func() *fakeConn
}

func (d *fakeDialer) Dial(ctx context.Context, host, port string, timeout time.Duration) (ports.Conn, error) {
	d.dials++
	d.timeouts = append(d.timeouts, timeout)
	if d.dials <= d.failures || d.newConn == nil {
		return nil, fmt.Errorf("dial %s:%s: %w", host, port, errors.New("connection refused"))
	}
	c := d.newConn()
	d.conns = append(d.conns, c)
	return c, nil
}

func (d *fakeDialer) last() *fakeConn {
	if len(d.conns) == 0 {
		return nil
	}
	return d.conns[len(d.conns)-1]
}

type fakeWall struct {
	syncAfter int
	syncCalls int
	t         time.Time
}

func (w *fakeWall) Sync(ctx context.Context) error {
	w.syncCalls++
	if w.syncCalls < w.syncAfter || w.syncAfter == 0 {
		return errors.New("ntp: no response")
	}
	return nil
}

func (w *fakeWall) Now() (time.Time, bool) {
	if w.syncAfter == 0 || w.syncCalls < w.syncAfter {
		return time.Time{}, false
	}
	return w.t, true
}

// fakeButton is pressed while pressedAt returns true for the clock reading.
type fakeButton struct {
	clock     *fakeClock
	pressedAt func(now domain.Millis) bool
}

func (b *fakeButton) Pressed() bool {
	if b.pressedAt == nil {
		return false
	}
	return b.pressedAt(b.clock.Millis())
}

type fakeLED struct {
	sets []bool
}

func (l *fakeLED) Set(on bool) { l.sets = append(l.sets, on) }

// offPulses counts on->off edges.
func (l *fakeLED) offPulses() int {
	n := 0
	for i := 1; i < len(l.sets); i++ {
		if l.sets[i-1] && !l.sets[i] {
			n++
		}
	}
	return n
}

type fakePower struct {
	clock           *fakeClock
	wakeExternal    bool
	suspends        []time.Duration
	externalArmed   int
	deepSleeps      int
	calls           *[]string
	suspendUntilErr error
}

func (p *fakePower) SuspendFor(ctx context.Context, d time.Duration) (domain.WakeCause, error) {
	p.suspends = append(p.suspends, d)
	if p.wakeExternal {
		p.clock.Advance(time.Second)
		return domain.WakeExternal, nil
	}
	p.clock.Advance(d)
	return domain.WakeTimer, nil
}

func (p *fakePower) EnableExternalWake() error {
	p.externalArmed++
	if p.calls != nil {
		*p.calls = append(*p.calls, "arm-wake")
	}
	return nil
}

func (p *fakePower) SuspendUntilExternalWake(ctx context.Context) error {
	p.deepSleeps++
	if p.calls != nil {
		*p.calls = append(*p.calls, "deep-sleep")
	}
	return p.suspendUntilErr
}

type fakeBootRepo struct {
	rec   domain.BootRecord
	saves []domain.BootRecord
}

func (r *fakeBootRepo) Load(ctx context.Context) (domain.BootRecord, error) {
	return r.rec, nil
}

func (r *fakeBootRepo) Save(ctx context.Context, rec domain.BootRecord) error {
	r.rec = rec
	r.saves = append(r.saves, rec)
	return nil
}

// testRig bundles a Device with direct access to its fakes.
type testRig struct {
	dev    *Device
	clock  *fakeClock
	sensor *fakeSensor
	net    *fakeNetwork
	dialer *fakeDialer
	wall   *fakeWall
	button *fakeButton
	led    *fakeLED
	power  *fakePower
	boot   *fakeBootRepo
	logger *mockLogger
}

const okResponse = "HTTP/1.1 200 OK\r\nContent-Type: application/json\r\n\r\n{\"Key\":\"photos/x.jpg\"}"

func newTestRig() *testRig {
	clock := &fakeClock{now: 1000}
	r := &testRig{
		clock:  clock,
		sensor: &fakeSensor{data: make([]byte, 4096)},
		net:    &fakeNetwork{connected: true, associateOn: 1},
		dialer: &fakeDialer{newConn: func() *fakeConn { return newFakeConn(okResponse) }},
		wall:   &fakeWall{syncAfter: 1, t: time.Date(2024, 3, 9, 14, 30, 5, 0, time.UTC)},
		button: &fakeButton{clock: clock},
		led:    &fakeLED{},
		power:  &fakePower{clock: clock},
		boot:   &fakeBootRepo{},
		logger: &mockLogger{},
	}
	r.dev = &Device{
		Sensor:  r.sensor,
		Network: r.net,
		Dialer:  r.dialer,
		Clock:   r.clock,
		Wall:    r.wall,
		Button:  r.button,
		LED:     r.led,
		Power:   r.power,
		Boot:    r.boot,
	}
	return r
}

func testUploaderConfig() UploaderConfig {
	return UploaderConfig{
		Endpoint: "https://project.example.co",
		Bucket:   "photos",
		AuthKey:  "secret-key",
	}
}

func (r *testRig) uploader(cfg UploaderConfig) *Uploader {
	u, err := NewUploader(cfg, r.net, r.dialer, DefaultConnectPolicy(r.clock.Sleep), r.logger)
	if err != nil {
		panic(err)
	}
	return u
}

func (r *testRig) powerController() *PowerController {
	return NewPowerController(r.dev, newBootLog(r.boot, r.logger), r.logger, nil)
}
