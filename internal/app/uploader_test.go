package app

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/bft-labs/snapship/internal/domain"
)

func TestNewUploader_Endpoint(t *testing.T) {
	tests := []struct {
		endpoint string
		wantHost string
		wantPort string
		wantBase string
		wantErr  bool
	}{
		{"https://project.example.co", "project.example.co", "443", "", false},
		{"https://storage.local:8443/api", "storage.local", "8443", "/api", false},
		{"not a url", "", "", "", true},
		{"://bad", "", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			r := newTestRig()
			u, err := NewUploader(UploaderConfig{Endpoint: tt.endpoint, Bucket: "b"}, r.net, r.dialer, RetryPolicy{}, r.logger)
			if tt.wantErr {
				if !errors.Is(err, domain.ErrInvalidConfig) {
					t.Fatalf("err = %v, want ErrInvalidConfig", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewUploader: %v", err)
			}
			if u.host != tt.wantHost || u.port != tt.wantPort || u.basePath != tt.wantBase {
				t.Errorf("got host=%q port=%q base=%q", u.host, u.port, u.basePath)
			}
		})
	}
}

func TestUploader_InvalidFrameNeverDials(t *testing.T) {
	tests := []struct {
		name    string
		frame   *domain.Frame
		wantErr error
	}{
		{"nil frame", nil, domain.ErrFrameEmpty},
		{"nil buffer", domain.NewFrame(nil, nil), domain.ErrFrameEmpty},
		{"empty", domain.NewFrame([]byte{}, nil), domain.ErrFrameEmpty},
		{"too large", domain.NewFrame(make([]byte, domain.MaxFrameBytes+1), nil), domain.ErrFrameTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRig()
			got := r.uploader(testUploaderConfig()).Upload(context.Background(), tt.frame, "photo_1.jpg")

			if got.Status != domain.OutcomeInvalidFrame {
				t.Errorf("Status = %v, want InvalidFrame", got.Status)
			}
			if !errors.Is(got.Err(), tt.wantErr) {
				t.Errorf("Err() = %v, want %v", got.Err(), tt.wantErr)
			}
			if r.dialer.dials != 0 {
				t.Errorf("dials = %d, want 0", r.dialer.dials)
			}
		})
	}
}

func TestUploader_MaxFrameAccepted(t *testing.T) {
	r := newTestRig()
	frame := domain.NewFrame(make([]byte, domain.MaxFrameBytes), nil)

	got := r.uploader(testUploaderConfig()).Upload(context.Background(), frame, "photo_1.jpg")
	if !got.OK() {
		t.Fatalf("Upload = %v, want Success", got)
	}
}

func TestUploader_NetworkUnavailable(t *testing.T) {
	r := newTestRig()
	r.net.connected = false

	got := r.uploader(testUploaderConfig()).Upload(context.Background(), domain.NewFrame([]byte{1}, nil), "p.jpg")
	if got.Status != domain.OutcomeNetworkUnavailable {
		t.Errorf("Status = %v, want NetworkUnavailable", got.Status)
	}
	if r.dialer.dials != 0 {
		t.Errorf("dials = %d, want 0", r.dialer.dials)
	}
}

func TestUploader_ConnectRetries(t *testing.T) {
	tests := []struct {
		name       string
		failures   int
		wantDials  int
		wantStatus domain.OutcomeStatus
	}{
		{"first try", 0, 1, domain.OutcomeSuccess},
		{"third try", 2, 3, domain.OutcomeSuccess},
		{"all fail", 3, 3, domain.OutcomeConnectFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRig()
			r.dialer.failures = tt.failures

			got := r.uploader(testUploaderConfig()).Upload(context.Background(), domain.NewFrame([]byte{0xFF, 0xD8}, nil), "p.jpg")

			if got.Status != tt.wantStatus {
				t.Errorf("Status = %v, want %v", got.Status, tt.wantStatus)
			}
			if r.dialer.dials != tt.wantDials {
				t.Errorf("dials = %d, want %d", r.dialer.dials, tt.wantDials)
			}
			for _, d := range r.clock.slept {
				if d != ConnectBackoff {
					t.Errorf("backoff %v, want %v", d, ConnectBackoff)
				}
			}
			if len(r.clock.slept) != tt.wantDials-1 {
				t.Errorf("backoffs = %d, want %d", len(r.clock.slept), tt.wantDials-1)
			}
			for _, to := range r.dialer.timeouts {
				if to != SocketTimeout {
					t.Errorf("dial timeout %v, want %v", to, SocketTimeout)
				}
			}
		})
	}
}

func TestUploader_StreamsInChunks(t *testing.T) {
	sizes := []int{1, 1023, 1024, 1025, 4096, 60000, domain.MaxFrameBytes}

	for _, n := range sizes {
		r := newTestRig()
		data := bytes.Repeat([]byte{0xAB}, n)
		data[0] = 0xFF

		got := r.uploader(testUploaderConfig()).Upload(context.Background(), domain.NewFrame(data, nil), "photo_1.jpg")
		if !got.OK() {
			t.Fatalf("n=%d: Upload = %v", n, got)
		}

		conn := r.dialer.last()
		wantWrites := 1 + (n+ChunkSize-1)/ChunkSize
		if len(conn.writes) != wantWrites {
			t.Errorf("n=%d: writes = %d, want %d", n, len(conn.writes), wantWrites)
		}
		for i, w := range conn.writes[1:] {
			if len(w) > ChunkSize {
				t.Errorf("n=%d: chunk %d is %d bytes", n, i, len(w))
			}
		}
		if !bytes.Equal(conn.body(), data) {
			t.Errorf("n=%d: body differs from frame", n)
		}
		if conn.closed != 1 {
			t.Errorf("n=%d: closed = %d, want 1", n, conn.closed)
		}
	}
}

func TestUploader_HeaderBeforeBody(t *testing.T) {
	r := newTestRig()
	cfg := testUploaderConfig()
	cfg.Endpoint = "https://storage.local:8443/api/"

	got := r.uploader(cfg).Upload(context.Background(), domain.NewFrame(make([]byte, 2048), nil), "photo_20240309_143005.jpg")
	if !got.OK() {
		t.Fatalf("Upload = %v", got)
	}

	header := string(r.dialer.last().writes[0])
	for _, want := range []string{
		"POST /api/storage/v1/object/photos/photo_20240309_143005.jpg HTTP/1.1\r\n",
		"Host: storage.local:8443\r\n",
		"Authorization: Bearer secret-key\r\n",
		"Content-Type: image/jpeg\r\n",
		"Content-Length: 2048\r\n",
		"x-upsert: true\r\n",
		"Connection: close\r\n\r\n",
	} {
		if !strings.Contains(header, want) {
			t.Errorf("header missing %q:\n%s", want, header)
		}
	}
	if !strings.HasSuffix(header, "\r\n\r\n") {
		t.Error("header write does not end with the blank line")
	}
}

func TestUploader_ShortWrite(t *testing.T) {
	tests := []struct {
		name       string
		shortWrite int
		writeErr   error
	}{
		{"header short", 1, nil},
		{"body chunk short", 3, nil},
		{"write error", 0, errors.New("connection reset")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRig()
			r.dialer.newConn = func() *fakeConn {
				c := newFakeConn(okResponse)
				c.shortWrite = tt.shortWrite
				c.writeErr = tt.writeErr
				return c
			}

			got := r.uploader(testUploaderConfig()).Upload(context.Background(), domain.NewFrame(make([]byte, 5000), nil), "p.jpg")

			if got.Status != domain.OutcomeWriteFailed {
				t.Errorf("Status = %v, want WriteFailed", got.Status)
			}
			conn := r.dialer.last()
			if conn.closed != 1 {
				t.Errorf("closed = %d, want 1", conn.closed)
			}
			if tt.shortWrite > 0 && len(conn.writes) != tt.shortWrite {
				t.Errorf("writes = %d, want streaming to stop at %d", len(conn.writes), tt.shortWrite)
			}
			if r.dialer.dials != 1 {
				t.Errorf("dials = %d, want no retry after a write failure", r.dialer.dials)
			}
		})
	}
}

func TestUploader_Response(t *testing.T) {
	tests := []struct {
		name       string
		response   string
		readErr    error
		legacy     bool
		wantStatus domain.OutcomeStatus
		wantCode   int
		wantDetail string
		wantLog    string
	}{
		{
			name:       "200",
			response:   okResponse,
			wantStatus: domain.OutcomeSuccess,
			wantCode:   200,
		},
		{
			name:       "201",
			response:   "HTTP/1.1 201 Created\r\n\r\n",
			wantStatus: domain.OutcomeSuccess,
			wantCode:   201,
		},
		{
			name:       "403 captures body",
			response:   "HTTP/1.1 403 Forbidden\r\nContent-Type: application/json\r\n\r\n{\"error\":\"Unauthorized\"}",
			wantStatus: domain.OutcomeServerRejected,
			wantCode:   403,
			wantDetail: "{\"error\":\"Unauthorized\"}",
		},
		{
			name:       "detail truncated",
			response:   "HTTP/1.1 500 Internal Server Error\r\n\r\n" + strings.Repeat("x", 300),
			wantStatus: domain.OutcomeServerRejected,
			wantCode:   500,
			wantDetail: strings.Repeat("x", maxDetailBytes),
		},
		{
			name:       "strict ignores 200 elsewhere in line",
			response:   "HTTP/1.1 500 Error 200\r\n\r\n",
			wantStatus: domain.OutcomeServerRejected,
			wantCode:   500,
		},
		{
			name:       "legacy matches 200 anywhere",
			response:   "HTTP/1.1 500 Error 200\r\n\r\n",
			legacy:     true,
			wantStatus: domain.OutcomeSuccess,
			wantCode:   500,
		},
		{
			name:       "legacy 201",
			response:   "HTTP/1.1 201 Created\r\n\r\n",
			legacy:     true,
			wantStatus: domain.OutcomeSuccess,
			wantCode:   201,
		},
		{
			name:       "legacy rejects code at line start",
			response:   "200 OK\r\n\r\n",
			legacy:     true,
			wantStatus: domain.OutcomeServerRejected,
			wantCode:   0,
		},
		{
			name:       "garbage status line",
			response:   "garbage\r\n\r\n",
			wantStatus: domain.OutcomeServerRejected,
			wantCode:   0,
		},
		{
			name:       "deadline exceeded",
			readErr:    os.ErrDeadlineExceeded,
			wantStatus: domain.OutcomeTimeout,
		},
		{
			name:       "closed without response",
			response:   "",
			wantStatus: domain.OutcomeTimeout,
			wantLog:    "server closed connection without response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRig()
			r.dialer.newConn = func() *fakeConn {
				c := newFakeConn(tt.response)
				c.readErr = tt.readErr
				return c
			}
			cfg := testUploaderConfig()
			cfg.LegacyStatusMatch = tt.legacy
			u := r.uploader(cfg)
			fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
			u.now = func() time.Time { return fixed }

			got := u.Upload(context.Background(), domain.NewFrame([]byte{1, 2, 3}, nil), "p.jpg")

			if got.Status != tt.wantStatus {
				t.Errorf("Status = %v, want %v", got.Status, tt.wantStatus)
			}
			if got.StatusCode != tt.wantCode {
				t.Errorf("StatusCode = %d, want %d", got.StatusCode, tt.wantCode)
			}
			if tt.wantDetail != "" && got.Detail != tt.wantDetail {
				t.Errorf("Detail = %q, want %q", got.Detail, tt.wantDetail)
			}
			if tt.wantLog != "" && !r.logger.contains(tt.wantLog) {
				t.Errorf("missing log %q", tt.wantLog)
			}
			conn := r.dialer.last()
			if !conn.readTimeout.Equal(fixed.Add(ResponseTimeout)) {
				t.Errorf("read deadline = %v, want now+%v", conn.readTimeout, ResponseTimeout)
			}
			if conn.closed != 1 {
				t.Errorf("closed = %d, want 1", conn.closed)
			}
		})
	}
}

func TestUploader_FrameNotReleased(t *testing.T) {
	r := newTestRig()
	released := 0
	frame := domain.NewFrame([]byte{1}, func() { released++ })

	r.uploader(testUploaderConfig()).Upload(context.Background(), frame, "p.jpg")

	if released != 0 || frame.Released() {
		t.Error("uploader must leave the frame to its caller")
	}
}
