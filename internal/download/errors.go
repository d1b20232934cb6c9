package download

import (
	"errors"
	"fmt"
)

// ErrMissingContentLength rejects origins that do not disclose the
// resource size at create time.
var ErrMissingContentLength = errors.New("content length not provided")

// BadStatusError is returned when the create-time request answers with a
// non-200 status.
type BadStatusError struct {
	Code int
	Body string
}

func (e *BadStatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// StreamTruncatedError is returned when the response body ends below the
// advertised content length.
type StreamTruncatedError struct {
	Bytes int64
}

func (e *StreamTruncatedError) Error() string {
	return fmt.Sprintf("stream ended before completion, downloaded bytes: %d", e.Bytes)
}

// AlreadyCompleteError is returned by resume when the on-disk file already
// holds the full content.
type AlreadyCompleteError struct {
	Bytes int64
}

func (e *AlreadyCompleteError) Error() string {
	return fmt.Sprintf("download already finished, downloaded bytes: %d", e.Bytes)
}
