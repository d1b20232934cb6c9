package observer

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/fetchd-app/fetchd/internal/download"
)

// Observer keeps the authoritative current state of every tracked
// download. It is the primary publisher subscriber and serves the state
// queries of the control plane.
type Observer struct {
	mu    sync.RWMutex
	state map[uuid.UUID]download.State
}

func New() *Observer {
	return &Observer{state: make(map[uuid.UUID]download.State)}
}

// Track installs an initial state for id. Called right after Manager.Add
// so the id is known before any update arrives.
func (o *Observer) Track(id uuid.UUID, initial download.State) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state[id] = initial
}

// Untrack removes the entry for id. In-flight updates for the id arriving
// afterwards are dropped by Update.
func (o *Observer) Untrack(id uuid.UUID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.state, id)
}

// State returns the current state for id.
func (o *Observer) State(id uuid.UUID) (download.State, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	state, ok := o.state[id]
	return state, ok
}

// StateAll snapshots all (id, state) pairs. Order is unspecified.
func (o *Observer) StateAll() []download.StateEntry {
	o.mu.RLock()
	defer o.mu.RUnlock()
	result := make([]download.StateEntry, 0, len(o.state))
	for id, state := range o.state {
		result = append(result, download.StateEntry{ID: id, State: state})
	}
	return result
}

// Update implements Subscriber. States for ids that were never tracked, or
// were deleted while the batch was in flight, are not installed.
func (o *Observer) Update(batch []download.StateEntry) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, entry := range batch {
		if _, ok := o.state[entry.ID]; !ok {
			slog.Warn("dropping update for untracked download", "id", entry.ID)
			continue
		}
		o.state[entry.ID] = entry.State
	}
}
