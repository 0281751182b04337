package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bft-labs/snapship/internal/domain"
	"github.com/bft-labs/snapship/internal/ports"
	"github.com/bft-labs/snapship/pkg/log"
)

// Upload pipeline limits.
const (
	ChunkSize       = 1024
	ConnectAttempts = 3
	ConnectBackoff  = 2 * time.Second
	SocketTimeout   = 30 * time.Second
	ResponseTimeout = 15 * time.Second
	maxDetailBytes  = 100
	defaultTLSPort  = "443"
)

// UploaderConfig is the static upload configuration.
type UploaderConfig struct {
	// Endpoint is the storage base URL, e.g. https://project.example.co.
	Endpoint string
	Bucket   string
	AuthKey  string

	// LegacyStatusMatch treats any status line containing "200" or "201" as
	// success instead of comparing the status code.
	LegacyStatusMatch bool
}

// Uploader streams one frame per call to the object-storage endpoint.
type Uploader struct {
	cfg      UploaderConfig
	host     string
	port     string
	hostHdr  string
	basePath string
	net      ports.Network
	dialer   ports.Dialer
	retry    RetryPolicy
	logger   log.Logger
	now      func() time.Time
}

// NewUploader resolves the endpoint and returns an uploader. retry governs
// connection attempts only; a failed write or response is never retried.
func NewUploader(cfg UploaderConfig, network ports.Network, dialer ports.Dialer, retry RetryPolicy, logger log.Logger) (*Uploader, error) {
	u, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: endpoint: %v", domain.ErrInvalidConfig, err)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("%w: endpoint %q has no host", domain.ErrInvalidConfig, cfg.Endpoint)
	}
	port := u.Port()
	if port == "" {
		port = defaultTLSPort
	}
	return &Uploader{
		cfg:      cfg,
		host:     u.Hostname(),
		port:     port,
		hostHdr:  u.Host,
		basePath: u.Path,
		net:      network,
		dialer:   dialer,
		retry:    retry,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// DefaultConnectPolicy is three attempts two seconds apart.
func DefaultConnectPolicy(sleep func(time.Duration)) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: ConnectAttempts,
		Backoff:     FixedBackoff(ConnectBackoff),
		Sleep:       sleep,
	}
}

// Upload sends frame as filename. The frame stays owned by the caller; the
// connection, once opened, is closed on every path.
func (u *Uploader) Upload(ctx context.Context, frame *domain.Frame, filename string) domain.Outcome {
	if err := frame.Validate(); err != nil {
		u.logger.Error("invalid image data", log.Err(err))
		return domain.Outcome{Status: domain.OutcomeInvalidFrame, Detail: err.Error(), Cause: err}
	}
	if !u.net.Info(ctx).Connected {
		u.logger.Error("wifi not connected")
		return domain.Outcome{Status: domain.OutcomeNetworkUnavailable}
	}

	req := domain.NewUploadRequest(u.hostHdr, u.basePath, u.cfg.Bucket, filename, u.cfg.AuthKey, frame.Len())
	u.logger.Info("uploading",
		log.String("file", filename),
		log.Int("bytes", frame.Len()),
		log.String("path", req.Path()),
	)

	conn, err := u.connect(ctx)
	if err != nil {
		u.logger.Error("failed to connect after all retries", log.Err(err))
		return domain.Outcome{Status: domain.OutcomeConnectFailed, Detail: err.Error()}
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			u.logger.Debug("close connection", log.Err(cerr))
		}
	}()

	if err := writeChunk(conn, []byte(req.Header())); err != nil {
		u.logger.Error("header write failed", log.Err(err))
		return domain.Outcome{Status: domain.OutcomeWriteFailed, Detail: err.Error()}
	}
	if err := u.stream(conn, frame.Data()); err != nil {
		return domain.Outcome{Status: domain.OutcomeWriteFailed, Detail: err.Error()}
	}

	u.logger.Debug("data sent, waiting for response")
	outcome := u.readResponse(conn)
	if outcome.OK() {
		u.logger.Info("upload succeeded", log.String("file", filename))
	} else {
		u.logger.Error("upload failed",
			log.String("file", filename),
			log.String("outcome", outcome.String()),
			log.String("body", outcome.Detail),
		)
	}
	return outcome
}

func (u *Uploader) connect(ctx context.Context) (ports.Conn, error) {
	var conn ports.Conn
	err := u.retry.Do(ctx, func(attempt int) error {
		a := domain.ConnectionAttempt{
			Host:        u.host,
			Port:        u.port,
			Attempt:     attempt,
			MaxAttempts: u.retry.MaxAttempts,
			Timeout:     SocketTimeout,
		}
		u.logger.Info("connecting",
			log.String("host", a.Host),
			log.String("port", a.Port),
			log.Int("attempt", a.Attempt),
			log.Int("max_attempts", a.MaxAttempts),
		)
		c, err := u.dialer.Dial(ctx, a.Host, a.Port, a.Timeout)
		if err != nil {
			u.logger.Warn("connection failed", log.Err(err), log.Int("attempt", a.Attempt))
			return err
		}
		conn = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// stream writes data in ChunkSize pieces straight from the frame buffer. A
// short write aborts the upload.
func (u *Uploader) stream(conn ports.Conn, data []byte) error {
	total := len(data)
	for sent := 0; sent < total; {
		end := min(sent+ChunkSize, total)
		if err := writeChunk(conn, data[sent:end]); err != nil {
			u.logger.Error("write error", log.Err(err), log.Int("at_byte", sent))
			return err
		}
		prev := sent
		sent = end
		if sent*10/total != prev*10/total {
			u.logger.Debug("upload progress", log.Int("percent", sent*100/total))
		}
	}
	return nil
}

func writeChunk(conn ports.Conn, p []byte) error {
	n, err := conn.Write(p)
	if err != nil {
		return fmt.Errorf("%w: %d/%d bytes: %v", domain.ErrWriteFailed, n, len(p), err)
	}
	if n != len(p) {
		return fmt.Errorf("%w: short write %d/%d bytes", domain.ErrWriteFailed, n, len(p))
	}
	return nil
}

func (u *Uploader) readResponse(conn ports.Conn) domain.Outcome {
	if err := conn.SetReadDeadline(u.now().Add(ResponseTimeout)); err != nil {
		u.logger.Debug("set read deadline", log.Err(err))
	}
	r := bufio.NewReader(conn)

	if _, err := r.Peek(1); err != nil {
		// All three are reported as Timeout: no status line arrived.
		switch {
		case isTimeout(err):
			u.logger.Error("response timeout", log.Duration("waited", ResponseTimeout))
		case errors.Is(err, io.EOF):
			u.logger.Error("server closed connection without response")
		default:
			u.logger.Error("no response", log.Err(err))
		}
		return domain.Outcome{Status: domain.OutcomeTimeout, Detail: err.Error()}
	}

	statusLine, _ := r.ReadString('\n')
	statusLine = strings.TrimSpace(statusLine)
	u.logger.Info("http response", log.String("status", statusLine))
	code := parseStatusCode(statusLine)

	// Headers are not interpreted.
	for {
		line, err := r.ReadString('\n')
		if strings.TrimSpace(line) == "" || err != nil {
			break
		}
	}

	if u.statusOK(statusLine, code) {
		return domain.Outcome{Status: domain.OutcomeSuccess, StatusCode: code}
	}

	body, _ := io.ReadAll(io.LimitReader(r, maxDetailBytes))
	return domain.Outcome{
		Status:     domain.OutcomeServerRejected,
		StatusCode: code,
		Detail:     strings.TrimSpace(string(body)),
	}
}

func (u *Uploader) statusOK(statusLine string, code int) bool {
	if u.cfg.LegacyStatusMatch {
		// A code at offset 0 never matched on the old firmware.
		return strings.Index(statusLine, "200") > 0 || strings.Index(statusLine, "201") > 0
	}
	return code == 200 || code == 201
}

// parseStatusCode extracts the code from "HTTP/1.1 201 Created"; 0 if the
// line is not a status line.
func parseStatusCode(line string) int {
	fields := strings.Fields(line)
	if len(fields) < 2 || !strings.HasPrefix(fields[0], "HTTP/") {
		return 0
	}
	code, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0
	}
	return code
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
