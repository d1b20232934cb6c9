// Package testutil provides a range-aware mock origin for download tests.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// PatternByte is the deterministic content generator: tests can verify any
// byte of a served file without storing it.
func PatternByte(i int64) byte {
	return byte((i*31 + 7) % 251)
}

// PatternBytes renders [offset, offset+n) of the pattern.
func PatternBytes(offset, n int64) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = PatternByte(offset + int64(i))
	}
	return out
}

type options struct {
	fileSize      int64
	rangeSupport  bool
	latency       time.Duration
	status        int
	omitLength    bool
	truncateAt    int64
	disposition   string
	serveChunkLen int64
}

type Option func(*options)

// WithFileSize sets the total resource size.
func WithFileSize(n int64) Option { return func(o *options) { o.fileSize = n } }

// WithRangeSupport toggles Accept-Ranges/206 handling.
func WithRangeSupport(enabled bool) Option { return func(o *options) { o.rangeSupport = enabled } }

// WithLatency sleeps between served chunks so tests can interrupt
// mid-transfer.
func WithLatency(d time.Duration) Option { return func(o *options) { o.latency = d } }

// WithStatus makes every request answer with the given status code.
func WithStatus(code int) Option { return func(o *options) { o.status = code } }

// WithoutContentLength streams chunked responses that never disclose a
// size.
func WithoutContentLength() Option { return func(o *options) { o.omitLength = true } }

// WithTruncateAt ends transfer request bodies cleanly after n bytes while
// the first (create-time) request still advertises the full size.
func WithTruncateAt(n int64) Option { return func(o *options) { o.truncateAt = n } }

// WithContentDisposition adds a Content-Disposition filename to responses.
func WithContentDisposition(name string) Option { return func(o *options) { o.disposition = name } }

// MockServer is an httptest-backed origin serving deterministic bytes.
type MockServer struct {
	srv      *httptest.Server
	opts     options
	requests atomic.Int64
}

func NewMockServer(opts ...Option) *MockServer {
	o := options{
		fileSize:      1 << 20,
		rangeSupport:  true,
		serveChunkLen: 64 * 1024,
	}
	for _, opt := range opts {
		opt(&o)
	}
	m := &MockServer{opts: o}
	m.srv = httptest.NewServer(http.HandlerFunc(m.handler))
	return m
}

// URL returns the origin URL with a stable filename path.
func (m *MockServer) URL() string {
	return m.srv.URL + "/testfile.bin"
}

// BareURL returns an origin URL without any path segment.
func (m *MockServer) BareURL() string {
	return m.srv.URL + "/"
}

// Requests reports how many requests the origin has served.
func (m *MockServer) Requests() int64 {
	return m.requests.Load()
}

func (m *MockServer) Close() {
	m.srv.Close()
}

func (m *MockServer) handler(w http.ResponseWriter, r *http.Request) {
	seq := m.requests.Add(1)

	if m.opts.status != 0 {
		http.Error(w, "mock failure", m.opts.status)
		return
	}
	if m.opts.disposition != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", m.opts.disposition))
	}
	if m.opts.rangeSupport {
		w.Header().Set("Accept-Ranges", "bytes")
	}

	offset := int64(0)
	length := m.opts.fileSize
	status := http.StatusOK

	if rng := r.Header.Get("Range"); rng != "" && m.opts.rangeSupport {
		if v, ok := strings.CutPrefix(rng, "bytes="); ok {
			start, err := strconv.ParseInt(strings.TrimSuffix(v, "-"), 10, 64)
			if err == nil && start < m.opts.fileSize {
				offset = start
				length = m.opts.fileSize - start
				status = http.StatusPartialContent
				w.Header().Set("Content-Range",
					fmt.Sprintf("bytes %d-%d/%d", start, m.opts.fileSize-1, m.opts.fileSize))
			}
		}
	}

	// The first request is the create-time metadata GET and always sees
	// the full advertised size; truncation only hits transfer requests.
	truncated := m.opts.truncateAt > 0 && seq > 1
	if truncated && length > m.opts.truncateAt {
		length = m.opts.truncateAt
	}

	if m.opts.omitLength || truncated {
		w.WriteHeader(status)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	} else {
		w.Header().Set("Content-Length", strconv.FormatInt(length, 10))
		w.WriteHeader(status)
	}

	for served := int64(0); served < length; {
		n := m.opts.serveChunkLen
		if remaining := length - served; remaining < n {
			n = remaining
		}
		if _, err := w.Write(PatternBytes(offset+served, n)); err != nil {
			return
		}
		served += n
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		if m.opts.latency > 0 {
			time.Sleep(m.opts.latency)
		}
	}
}
