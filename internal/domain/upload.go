package domain

import (
	"strconv"
	"strings"
	"time"
)

// TimestampLayout is the calendar part of a photo filename (YYYYMMDD_HHMMSS).
const TimestampLayout = "20060102_150405"

// ObjectPathPrefix is the storage API prefix in front of bucket/filename.
const ObjectPathPrefix = "/storage/v1/object/"

// PhotoFilename names a photo. A synced wall-clock time yields
// photo_YYYYMMDD_HHMMSS.jpg; otherwise the monotonic reading is used,
// photo_<millis>.jpg. Consumers of the bucket depend on this convention.
func PhotoFilename(wall time.Time, synced bool, mono Millis) string {
	if synced {
		return "photo_" + wall.Format(TimestampLayout) + ".jpg"
	}
	return "photo_" + strconv.FormatUint(uint64(mono), 10) + ".jpg"
}

// UploadRequest describes one object upload. It is immutable once built.
type UploadRequest struct {
	host          string
	path          string
	filename      string
	authKey       string
	contentLength int
}

// NewUploadRequest builds the request for filename in bucket. basePath is the
// path component of the configured endpoint and may be empty.
func NewUploadRequest(host, basePath, bucket, filename, authKey string, contentLength int) UploadRequest {
	path := strings.TrimRight(basePath, "/") + ObjectPathPrefix + bucket + "/" + filename
	return UploadRequest{
		host:          host,
		path:          path,
		filename:      filename,
		authKey:       authKey,
		contentLength: contentLength,
	}
}

func (r UploadRequest) Host() string       { return r.host }
func (r UploadRequest) Path() string       { return r.path }
func (r UploadRequest) Filename() string   { return r.filename }
func (r UploadRequest) ContentLength() int { return r.contentLength }

// Header renders the request line and headers, terminated by the blank line.
// The body is never chunked; Content-Length always equals the frame length.
func (r UploadRequest) Header() string {
	var b strings.Builder
	b.WriteString("POST " + r.path + " HTTP/1.1\r\n")
	b.WriteString("Host: " + r.host + "\r\n")
	b.WriteString("Authorization: Bearer " + r.authKey + "\r\n")
	b.WriteString("Content-Type: image/jpeg\r\n")
	b.WriteString("Content-Length: " + strconv.Itoa(r.contentLength) + "\r\n")
	b.WriteString("x-upsert: true\r\n")
	b.WriteString("Connection: close\r\n\r\n")
	return b.String()
}

// ConnectionAttempt records one try at opening the upload connection. It
// lives only for the duration of one upload.
type ConnectionAttempt struct {
	Host        string
	Port        string
	Attempt     int
	MaxAttempts int
	Timeout     time.Duration
}
