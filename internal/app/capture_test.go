package app

import (
	"context"
	"errors"
	"testing"

	"github.com/bft-labs/snapship/internal/domain"
)

func (r *testRig) captureCycle() (*CaptureCycle, *PowerController) {
	pc := r.powerController()
	station := NewStation(r.dev, "cam-net", "pw", r.logger)
	ind := NewIndicator(r.led, r.clock)
	return NewCaptureCycle(r.dev, pc, station, r.uploader(testUploaderConfig()), ind, r.logger), pc
}

func TestCaptureCycle_Success(t *testing.T) {
	r := newTestRig()
	_ = r.wall.Sync(context.Background())
	cycle, _ := r.captureCycle()

	res := cycle.Run(context.Background(), TriggerButton)

	if !res.Captured || !res.Outcome.OK() {
		t.Fatalf("result = %+v", res)
	}
	if res.Filename != "photo_20240309_143005.jpg" {
		t.Errorf("Filename = %q", res.Filename)
	}
	if r.sensor.releases != 1 {
		t.Errorf("releases = %d, want 1", r.sensor.releases)
	}
	if r.dialer.dials != 1 {
		t.Errorf("dials = %d, want 1", r.dialer.dials)
	}
	if got, want := r.led.offPulses(), 1+PatternUploadOK.Count; got != want {
		t.Errorf("led pulses = %d, want %d", got, want)
	}
	if r.led.sets[len(r.led.sets)-1] {
		t.Error("led left on")
	}
}

func TestCaptureCycle_UnsyncedFilename(t *testing.T) {
	r := newTestRig()
	cycle, _ := r.captureCycle()

	res := cycle.Run(context.Background(), TriggerSchedule)
	if res.Filename != "photo_1000.jpg" {
		t.Errorf("Filename = %q, want photo_1000.jpg", res.Filename)
	}
}

func TestCaptureCycle_UploadFailureBlinks(t *testing.T) {
	r := newTestRig()
	r.dialer.newConn = func() *fakeConn { return newFakeConn("HTTP/1.1 401 Unauthorized\r\n\r\n") }
	cycle, _ := r.captureCycle()

	res := cycle.Run(context.Background(), TriggerSchedule)

	if res.Outcome.Status != domain.OutcomeServerRejected || res.Outcome.StatusCode != 401 {
		t.Errorf("Outcome = %v", res.Outcome)
	}
	if got, want := r.led.offPulses(), 1+PatternUploadFailed.Count; got != want {
		t.Errorf("led pulses = %d, want %d", got, want)
	}
	if r.sensor.releases != 1 {
		t.Errorf("releases = %d, want 1", r.sensor.releases)
	}
}

func TestCaptureCycle_Reconnect(t *testing.T) {
	tests := []struct {
		name         string
		associateOn  int
		wantConnects int
		wantDials    int
		wantStatus   domain.OutcomeStatus
	}{
		{"second attempt", 2, 2, 1, domain.OutcomeSuccess},
		{"never associates", 0, ReconnectAttempts, 0, domain.OutcomeNetworkUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRig()
			r.net.connected = false
			r.net.associateOn = tt.associateOn
			cycle, _ := r.captureCycle()
			start := r.clock.Millis()

			res := cycle.Run(context.Background(), TriggerSchedule)

			if res.Outcome.Status != tt.wantStatus {
				t.Errorf("Status = %v, want %v", res.Outcome.Status, tt.wantStatus)
			}
			if r.net.connectCalls != tt.wantConnects {
				t.Errorf("connect calls = %d, want %d", r.net.connectCalls, tt.wantConnects)
			}
			if r.dialer.dials != tt.wantDials {
				t.Errorf("dials = %d, want %d", r.dialer.dials, tt.wantDials)
			}
			if r.sensor.releases != 1 {
				t.Errorf("releases = %d, want 1", r.sensor.releases)
			}
			if tt.associateOn == 0 {
				// Three association windows and two gaps between them.
				minWait := 3*AssociationTimeout + 2*ReconnectDelay
				if waited := r.clock.Millis().Since(start); waited < minWait {
					t.Errorf("waited %v, want at least %v", waited, minWait)
				}
				if got, want := r.led.offPulses(), 1+PatternConnectivityFailed.Count; got != want {
					t.Errorf("led pulses = %d, want %d", got, want)
				}
			}
		})
	}
}

func TestCaptureCycle_CaptureFailed(t *testing.T) {
	r := newTestRig()
	r.sensor.failNext = true
	cycle, _ := r.captureCycle()

	res := cycle.Run(context.Background(), TriggerButton)

	if res.Captured {
		t.Error("Captured = true after sensor failure")
	}
	if r.dialer.dials != 0 || r.sensor.releases != 0 {
		t.Errorf("dials=%d releases=%d, want 0/0", r.dialer.dials, r.sensor.releases)
	}
}

func TestCaptureCycle_InvalidFrame(t *testing.T) {
	for _, size := range []int{0, domain.MaxFrameBytes + 1} {
		r := newTestRig()
		r.sensor.data = make([]byte, size)
		r.net.connected = false
		cycle, _ := r.captureCycle()

		res := cycle.Run(context.Background(), TriggerSchedule)

		if res.Outcome.Status != domain.OutcomeInvalidFrame {
			t.Errorf("size %d: Status = %v, want InvalidFrame", size, res.Outcome.Status)
		}
		if r.dialer.dials != 0 || r.net.connectCalls != 0 {
			t.Errorf("size %d: dials=%d reconnects=%d, want none", size, r.dialer.dials, r.net.connectCalls)
		}
		if r.sensor.releases != 1 {
			t.Errorf("size %d: releases = %d, want 1", size, r.sensor.releases)
		}
	}
}

func TestCaptureCycle_RefusedUnlessActive(t *testing.T) {
	r := newTestRig()
	cycle, pc := r.captureCycle()
	pc.state = domain.PowerDeepSleepPending

	res := cycle.Run(context.Background(), TriggerButton)

	if res.Captured || r.sensor.captures != 0 {
		t.Error("capture ran outside Active")
	}
	if res.Outcome.Status != domain.OutcomeNotActive || !errors.Is(res.Outcome.Err(), domain.ErrNotActive) {
		t.Errorf("Outcome = %v, Err() = %v; want NotActive", res.Outcome, res.Outcome.Err())
	}
}
