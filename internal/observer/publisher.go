package observer

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fetchd-app/fetchd/internal/download"
)

// flushInterval rate-limits batches carrying only running updates.
const flushInterval = 500 * time.Millisecond

// Subscriber consumes state batches from the publisher. Each batch holds
// the latest state per id, each id at most once.
type Subscriber interface {
	Update(batch []download.StateEntry)
}

// Publisher is the manager's update consumer. It coalesces the high-rate
// per-download update stream into low-rate batches and fans each batch
// out to subscribers without ever blocking the producer side.
type Publisher struct {
	mu        sync.Mutex
	cache     map[uuid.UUID]download.State
	lastFlush time.Time

	subsMu      sync.Mutex
	subscribers []Subscriber
}

func NewPublisher() *Publisher {
	return &Publisher{
		cache:     make(map[uuid.UUID]download.State),
		lastFlush: time.Now(),
	}
}

// Subscribe registers a subscriber for all future batches.
func (p *Publisher) Subscribe(s Subscriber) {
	p.subsMu.Lock()
	defer p.subsMu.Unlock()
	p.subscribers = append(p.subscribers, s)
}

// Consume installs the update in the cache (last writer wins) and decides
// whether to flush: terminal transitions flush immediately, running
// updates at most once per flush interval.
func (p *Publisher) Consume(update download.Update) {
	p.mu.Lock()
	p.cache[update.ID] = update.State
	flush := update.State.Terminal() || time.Since(p.lastFlush) > flushInterval
	if !flush {
		p.mu.Unlock()
		return
	}
	batch := make([]download.StateEntry, 0, len(p.cache))
	for id, state := range p.cache {
		batch = append(batch, download.StateEntry{ID: id, State: state})
	}
	p.cache = make(map[uuid.UUID]download.State)
	p.lastFlush = time.Now()
	p.mu.Unlock()

	go p.dispatch(batch)
}

// dispatch delivers one batch to every subscriber, each on its own
// goroutine so a slow subscriber cannot stall the others.
func (p *Publisher) dispatch(batch []download.StateEntry) {
	p.subsMu.Lock()
	subscribers := make([]Subscriber, len(p.subscribers))
	copy(subscribers, p.subscribers)
	p.subsMu.Unlock()

	for _, s := range subscribers {
		go s.Update(batch)
	}
}
