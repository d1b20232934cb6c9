package download

import (
	"net/http"
	"time"
)

const (
	// DefaultUserAgent is sent with every request unless overridden in Config.
	DefaultUserAgent = "fetchd"

	// DefaultChunkSize is the advisory read granularity for the streaming loop.
	DefaultChunkSize = 1024 * 1024

	// DefaultTimeout bounds the create-time metadata request. The streaming
	// request itself has no wall-clock timeout; large downloads may take hours.
	DefaultTimeout = 60 * time.Second
)

// Config shapes the requests a Download issues against its origin.
type Config struct {
	// Timeout applies only to the create-time metadata GET.
	Timeout time.Duration
	// Headers are merged into every request.
	Headers http.Header
	// ChunkSize is the read buffer size. Servers are free to deliver
	// smaller reads; nothing here depends on them honoring it.
	ChunkSize int
}

// DefaultConfig returns the config used when the caller passes none.
func DefaultConfig() Config {
	headers := make(http.Header)
	headers.Set("User-Agent", DefaultUserAgent)
	return Config{
		Timeout:   DefaultTimeout,
		Headers:   headers,
		ChunkSize: DefaultChunkSize,
	}
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.Headers == nil {
		c.Headers = make(http.Header)
	}
	if c.Headers.Get("User-Agent") == "" {
		c.Headers.Set("User-Agent", DefaultUserAgent)
	}
	return c
}
