package manager

import (
	"context"
	"log/slog"

	"github.com/fetchd-app/fetchd/internal/download"
)

// Item wraps one Download with its run-state: the background task
// currently executing it, if any, and the cancellation handle for that
// task. All field access is serialized by the owning Manager's lock.
type Item struct {
	download *download.Download
	cancel   context.CancelFunc
	done     chan struct{}
}

func newItem(d *download.Download) *Item {
	return &Item{download: d}
}

// running reports whether a task is in flight. A task that exited on its
// own (complete or errored) counts as idle again.
func (it *Item) running() bool {
	if it.cancel == nil {
		return false
	}
	select {
	case <-it.done:
		return false
	default:
		return true
	}
}

// run spawns the transfer task. The task emits exactly one terminal update
// on exit; that send is blocking so the event survives buffer pressure,
// unlike the advisory progress stream.
func (it *Item) run(updates chan<- download.Update, resume bool) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	it.cancel = cancel
	it.done = done

	d := it.download
	go func() {
		defer close(done)
		defer cancel()

		var bytes int64
		var err error
		if resume {
			bytes, err = d.Resume(ctx, updates)
		} else {
			bytes, err = d.Start(ctx, updates)
		}

		var state download.State
		switch {
		case err != nil:
			slog.Error("download task failed", "id", d.ID, "err", err)
			state = download.Errored(err.Error())
		case bytes == d.ContentLength():
			state = download.Complete()
		default:
			// Cancellation won the race. Re-read the file size so the
			// reported count matches what the file actually contains.
			state = download.Paused(d.BytesOnDisk())
		}
		updates <- download.Update{ID: d.ID, State: state}
	}()
}

// stop fires the cancellation signal and returns without waiting for the
// task; the terminal Paused update is the observable acknowledgement.
func (it *Item) stop() error {
	if !it.running() {
		return ErrNotRunning
	}
	it.cancel()
	it.cancel = nil
	it.done = nil
	return nil
}
