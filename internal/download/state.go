package download

import "github.com/google/uuid"

// Status discriminates the State variants.
type Status string

const (
	StatusPaused   Status = "paused"
	StatusRunning  Status = "running"
	StatusComplete Status = "complete"
	StatusError    Status = "error"
)

// State is the latest known status of a download.
type State struct {
	Status Status `json:"status"`
	// BytesDownloaded is set for paused and running states. For paused it
	// equals the on-disk file size at pause time.
	BytesDownloaded int64 `json:"bytes_downloaded,omitempty"`
	// BytesPerSecond is the throughput over the last emission window,
	// only set while running.
	BytesPerSecond int64 `json:"bytes_per_second,omitempty"`
	// Error carries the rendered failure reason for the error state.
	Error string `json:"error,omitempty"`
}

func Paused(bytesDownloaded int64) State {
	return State{Status: StatusPaused, BytesDownloaded: bytesDownloaded}
}

func Running(bytesDownloaded, bytesPerSecond int64) State {
	return State{
		Status:          StatusRunning,
		BytesDownloaded: bytesDownloaded,
		BytesPerSecond:  bytesPerSecond,
	}
}

func Complete() State {
	return State{Status: StatusComplete}
}

func Errored(reason string) State {
	return State{Status: StatusError, Error: reason}
}

// Terminal reports whether the state ends a run. Running is the only
// non-terminal variant.
func (s State) Terminal() bool {
	return s.Status != StatusRunning
}

// Update is the unit emitted by a running download and, exactly once per
// run, by the item wrapping it.
type Update struct {
	ID    uuid.UUID `json:"id"`
	State State     `json:"state"`
}

// Metadata is the immutable projection of a Download returned by queries.
type Metadata struct {
	ID            uuid.UUID `json:"id"`
	URL           string    `json:"url"`
	FilePath      string    `json:"file_path"`
	ContentLength int64     `json:"content_length"`
}

// StateEntry pairs an id with its latest state in subscriber batches and
// bulk state queries.
type StateEntry struct {
	ID    uuid.UUID `json:"id"`
	State State     `json:"state"`
}
