package manager_test

import (
	"context"
	"net/http"
	"net/url"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fetchd-app/fetchd/internal/download"
	"github.com/fetchd-app/fetchd/internal/manager"
	"github.com/fetchd-app/fetchd/internal/testutil"
)

// collector records every update the manager's consumer loop sees.
type collector struct {
	mu      sync.Mutex
	updates []download.Update
}

func (c *collector) Consume(u download.Update) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updates = append(c.updates, u)
}

func (c *collector) snapshot() []download.Update {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]download.Update, len(c.updates))
	copy(out, c.updates)
	return out
}

func (c *collector) terminalFor(id uuid.UUID) []download.State {
	var out []download.State
	for _, u := range c.snapshot() {
		if u.ID == id && u.State.Terminal() {
			out = append(out, u.State)
		}
	}
	return out
}

func setupDownload(t *testing.T, srv *testutil.MockServer) *download.Download {
	t.Helper()
	u, err := url.Parse(srv.URL())
	require.NoError(t, err)
	d, err := download.Create(context.Background(), u, t.TempDir(), "testfile.bin", &http.Client{}, nil)
	require.NoError(t, err)
	return d
}

func TestManager_AddAndMetadata(t *testing.T) {
	srv := testutil.NewMockServer(testutil.WithFileSize(4096))
	defer srv.Close()

	m := manager.New(&collector{})
	d := setupDownload(t, srv)

	id := m.Add(d)
	assert.Equal(t, d.ID, id)

	md, err := m.Metadata(id)
	require.NoError(t, err)
	assert.Equal(t, d.Metadata(), md)

	all := m.MetadataAll()
	require.Len(t, all, 1)
	assert.Equal(t, d.Metadata(), all[0])
}

func TestManager_UnknownID(t *testing.T) {
	m := manager.New(&collector{})
	id := uuid.New()

	assert.ErrorIs(t, m.Start(id), manager.ErrNotFound)
	assert.ErrorIs(t, m.Resume(id), manager.ErrNotFound)
	assert.ErrorIs(t, m.Stop(id), manager.ErrNotFound)
	assert.ErrorIs(t, m.Delete(id, false), manager.ErrNotFound)
	_, err := m.Metadata(id)
	assert.ErrorIs(t, err, manager.ErrNotFound)
}

func TestManager_StartRunsToCompletion(t *testing.T) {
	srv := testutil.NewMockServer(testutil.WithFileSize(128 * 1024))
	defer srv.Close()

	c := &collector{}
	m := manager.New(c)
	d := setupDownload(t, srv)
	id := m.Add(d)

	require.NoError(t, m.Start(id))

	require.Eventually(t, func() bool {
		return len(c.terminalFor(id)) == 1
	}, 5*time.Second, 10*time.Millisecond)

	terminals := c.terminalFor(id)
	require.Len(t, terminals, 1, "exactly one terminal event per run")
	assert.Equal(t, download.StatusComplete, terminals[0].Status)
	assert.Equal(t, int64(128*1024), d.BytesOnDisk())
}

func TestManager_StartWhileRunning(t *testing.T) {
	srv := testutil.NewMockServer(
		testutil.WithFileSize(32*1024*1024),
		testutil.WithLatency(20*time.Millisecond),
	)
	defer srv.Close()

	c := &collector{}
	m := manager.New(c)
	id := m.Add(setupDownload(t, srv))

	require.NoError(t, m.Start(id))
	assert.ErrorIs(t, m.Start(id), manager.ErrAlreadyRunning)
	assert.ErrorIs(t, m.Resume(id), manager.ErrAlreadyRunning)

	require.NoError(t, m.Stop(id))
}

func TestManager_StopEmitsPausedMatchingDisk(t *testing.T) {
	srv := testutil.NewMockServer(
		testutil.WithFileSize(32*1024*1024),
		testutil.WithLatency(20*time.Millisecond),
	)
	defer srv.Close()

	c := &collector{}
	m := manager.New(c)
	d := setupDownload(t, srv)
	id := m.Add(d)

	require.NoError(t, m.Start(id))
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, m.Stop(id))

	require.Eventually(t, func() bool {
		return len(c.terminalFor(id)) == 1
	}, 5*time.Second, 10*time.Millisecond)

	terminal := c.terminalFor(id)[0]
	require.Equal(t, download.StatusPaused, terminal.Status)
	assert.Greater(t, terminal.BytesDownloaded, int64(0))
	assert.Equal(t, d.BytesOnDisk(), terminal.BytesDownloaded,
		"paused byte count matches what the file actually contains")
}

func TestManager_StopIdle(t *testing.T) {
	srv := testutil.NewMockServer(testutil.WithFileSize(4096))
	defer srv.Close()

	m := manager.New(&collector{})
	id := m.Add(setupDownload(t, srv))

	assert.ErrorIs(t, m.Stop(id), manager.ErrNotRunning)
}

func TestManager_StopThenResumeCompletes(t *testing.T) {
	srv := testutil.NewMockServer(
		testutil.WithFileSize(2*1024*1024),
		testutil.WithLatency(10*time.Millisecond),
	)
	defer srv.Close()

	c := &collector{}
	m := manager.New(c)
	d := setupDownload(t, srv)
	id := m.Add(d)

	require.NoError(t, m.Start(id))
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, m.Stop(id))

	require.Eventually(t, func() bool {
		return len(c.terminalFor(id)) == 1
	}, 5*time.Second, 10*time.Millisecond)
	pausedAt := c.terminalFor(id)[0].BytesDownloaded

	require.NoError(t, m.Resume(id))
	require.Eventually(t, func() bool {
		terminals := c.terminalFor(id)
		return len(terminals) == 2 && terminals[1].Status == download.StatusComplete
	}, 10*time.Second, 10*time.Millisecond)

	assert.Equal(t, int64(2*1024*1024), d.BytesOnDisk())
	assert.LessOrEqual(t, pausedAt, d.BytesOnDisk())
}

func TestManager_CompletedItemCanRunAgain(t *testing.T) {
	srv := testutil.NewMockServer(testutil.WithFileSize(64 * 1024))
	defer srv.Close()

	c := &collector{}
	m := manager.New(c)
	id := m.Add(setupDownload(t, srv))

	require.NoError(t, m.Start(id))
	require.Eventually(t, func() bool {
		return len(c.terminalFor(id)) == 1
	}, 5*time.Second, 10*time.Millisecond)

	// The finished task no longer counts as running.
	require.NoError(t, m.Start(id))
	require.Eventually(t, func() bool {
		return len(c.terminalFor(id)) == 2
	}, 5*time.Second, 10*time.Millisecond)
}

func TestManager_DeleteRemovesEntryAndFile(t *testing.T) {
	srv := testutil.NewMockServer(testutil.WithFileSize(64 * 1024))
	defer srv.Close()

	c := &collector{}
	m := manager.New(c)
	d := setupDownload(t, srv)
	id := m.Add(d)

	require.NoError(t, m.Start(id))
	require.Eventually(t, func() bool {
		return len(c.terminalFor(id)) == 1
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, m.Delete(id, true))

	_, err := m.Metadata(id)
	assert.ErrorIs(t, err, manager.ErrNotFound)
	_, err = os.Stat(d.FilePath())
	assert.True(t, os.IsNotExist(err), "file should be unlinked")
}

func TestManager_DeleteKeepsFileWhenAsked(t *testing.T) {
	srv := testutil.NewMockServer(testutil.WithFileSize(64 * 1024))
	defer srv.Close()

	c := &collector{}
	m := manager.New(c)
	d := setupDownload(t, srv)
	id := m.Add(d)

	require.NoError(t, m.Start(id))
	require.Eventually(t, func() bool {
		return len(c.terminalFor(id)) == 1
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, m.Delete(id, false))
	_, err := os.Stat(d.FilePath())
	assert.NoError(t, err, "file stays on disk")
}

func TestManager_DeleteWhileRunning(t *testing.T) {
	srv := testutil.NewMockServer(
		testutil.WithFileSize(32*1024*1024),
		testutil.WithLatency(20*time.Millisecond),
	)
	defer srv.Close()

	c := &collector{}
	m := manager.New(c)
	id := m.Add(setupDownload(t, srv))

	require.NoError(t, m.Start(id))
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, m.Delete(id, true))

	_, err := m.Metadata(id)
	assert.ErrorIs(t, err, manager.ErrNotFound)
}

func TestManager_StopAllStartAll(t *testing.T) {
	srv := testutil.NewMockServer(
		testutil.WithFileSize(8*1024*1024),
		testutil.WithLatency(10*time.Millisecond),
	)
	defer srv.Close()

	c := &collector{}
	m := manager.New(c)

	var ids []uuid.UUID
	for range 3 {
		ids = append(ids, m.Add(setupDownload(t, srv)))
	}
	for _, id := range ids {
		require.NoError(t, m.Start(id))
	}
	time.Sleep(150 * time.Millisecond)

	m.StopAll()
	require.Eventually(t, func() bool {
		for _, id := range ids {
			if len(c.terminalFor(id)) != 1 {
				return false
			}
		}
		return true
	}, 5*time.Second, 10*time.Millisecond)

	stopped := make(map[uuid.UUID]int64, len(ids))
	for _, id := range ids {
		terminal := c.terminalFor(id)[0]
		require.Equal(t, download.StatusPaused, terminal.Status)
		stopped[id] = terminal.BytesDownloaded
	}

	// start_all applies resume semantics so partial files continue.
	m.StartAll()
	require.Eventually(t, func() bool {
		for _, id := range ids {
			terminals := c.terminalFor(id)
			if len(terminals) != 2 || terminals[1].Status != download.StatusComplete {
				return false
			}
		}
		return true
	}, 15*time.Second, 20*time.Millisecond)

	for id, pausedAt := range stopped {
		assert.LessOrEqual(t, pausedAt, int64(8*1024*1024))
		terminals := c.terminalFor(id)
		assert.Equal(t, download.StatusComplete, terminals[1].Status)
	}
}
