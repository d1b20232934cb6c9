package manager

import (
	"errors"
	"log/slog"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/fetchd-app/fetchd/internal/download"
)

// updateChannelCap bounds the shared progress channel. Progress emits are
// non-blocking and loss-tolerant; terminal emits block until accepted.
const updateChannelCap = 1000

var (
	ErrNotFound       = errors.New("download not found")
	ErrAlreadyRunning = errors.New("download is already running")
	ErrNotRunning     = errors.New("download is not running")
)

// UpdateConsumer receives every update emitted by the manager's items, in
// channel order, on a single dedicated goroutine.
type UpdateConsumer interface {
	Consume(update download.Update)
}

// Manager owns the registry of downloads and serializes lifecycle commands
// against it. It also owns the single outbound update channel shared by
// all items.
type Manager struct {
	mu      sync.RWMutex
	items   map[uuid.UUID]*Item
	updates chan download.Update
}

// New creates a manager and spawns the consumer goroutine feeding the
// given consumer. The update channel staying open is a process invariant:
// it closing while the program is live is fatal.
func New(consumer UpdateConsumer) *Manager {
	m := &Manager{
		items:   make(map[uuid.UUID]*Item),
		updates: make(chan download.Update, updateChannelCap),
	}
	slog.Info("spawning update consumer task")
	go func() {
		for update := range m.updates {
			consumer.Consume(update)
		}
		slog.Error("update channel closed, the consumer must outlive every download")
		os.Exit(1)
	}()
	return m
}

// Add inserts the download into the registry and returns its id.
func (m *Manager) Add(d *download.Download) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	slog.Info("adding download", "id", d.ID, "url", d.URL.String())
	m.items[d.ID] = newItem(d)
	return d.ID
}

// Start begins a transfer from byte zero, truncating any partial file.
func (m *Manager) Start(id uuid.UUID) error {
	return m.run(id, false)
}

// Resume continues a transfer from the current on-disk length.
func (m *Manager) Resume(id uuid.UUID) error {
	return m.run(id, true)
}

func (m *Manager) run(id uuid.UUID, resume bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return ErrNotFound
	}
	if item.running() {
		return ErrAlreadyRunning
	}
	item.run(m.updates, resume)
	return nil
}

// Stop requests cancellation of the running task for id. It does not wait
// for the task to exit.
func (m *Manager) Stop(id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return ErrNotFound
	}
	slog.Info("stop requested", "id", id)
	return item.stop()
}

// Delete cancels any running task, removes the registry entry and, when
// deleteFile is set, unlinks the file on disk. Unlink failures are logged
// and do not surface.
func (m *Manager) Delete(id uuid.UUID, deleteFile bool) error {
	m.mu.Lock()
	item, ok := m.items[id]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	if err := item.stop(); err != nil && !errors.Is(err, ErrNotRunning) {
		slog.Warn("stopping download before delete", "id", id, "err", err)
	}
	filePath := item.download.FilePath()
	delete(m.items, id)
	m.mu.Unlock()

	slog.Info("removed download", "id", id, "delete_file", deleteFile)
	if deleteFile {
		if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
			slog.Warn("deleting download file", "id", id, "file", filePath, "err", err)
		}
	}
	return nil
}

// StartAll runs every idle item in resume mode so partial files continue
// where they left off.
func (m *Manager) StartAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	slog.Info("start/resume all downloads", "count", len(m.items))
	for id, item := range m.items {
		if item.running() {
			slog.Info("download already running, skipping", "id", id)
			continue
		}
		item.run(m.updates, true)
	}
}

// StopAll requests cancellation of every running item.
func (m *Manager) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	slog.Info("stopping all downloads", "count", len(m.items))
	for _, item := range m.items {
		_ = item.stop()
	}
}

// Metadata returns the metadata projection for id.
func (m *Manager) Metadata(id uuid.UUID) (download.Metadata, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.items[id]
	if !ok {
		return download.Metadata{}, ErrNotFound
	}
	return item.download.Metadata(), nil
}

// MetadataAll snapshots the metadata of every registered download. Order
// is unspecified.
func (m *Manager) MetadataAll() []download.Metadata {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]download.Metadata, 0, len(m.items))
	for _, item := range m.items {
		result = append(result, item.download.Metadata())
	}
	return result
}
