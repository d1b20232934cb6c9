package server_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fetchd-app/fetchd/internal/client"
	"github.com/fetchd-app/fetchd/internal/config"
	"github.com/fetchd-app/fetchd/internal/download"
	"github.com/fetchd-app/fetchd/internal/server"
	"github.com/fetchd-app/fetchd/internal/service"
	"github.com/fetchd-app/fetchd/internal/testutil"
	"github.com/fetchd-app/fetchd/internal/utils"
)

// testStack wires the full pipeline behind an httptest control plane and a
// typed client against it.
type testStack struct {
	api    *httptest.Server
	client *client.Client
	svc    *service.Service
}

func newStack(t *testing.T) *testStack {
	t.Helper()
	svc := service.New(&config.Settings{
		Download: config.DownloadSettings{Dir: t.TempDir()},
	})
	api := httptest.NewServer(server.New(svc, "test").Handler())
	t.Cleanup(api.Close)
	return &testStack{api: api, client: client.New(api.URL), svc: svc}
}

func (s *testStack) postURL(t *testing.T, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(s.api.URL+server.BasePath, "text/plain", strings.NewReader(body))
	require.NoError(t, err)
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	var b strings.Builder
	buf := make([]byte, 4096)
	for {
		n, err := resp.Body.Read(buf)
		b.Write(buf[:n])
		if err != nil {
			break
		}
	}
	return b.String()
}

func TestServer_CreateInvalidURL(t *testing.T) {
	stack := newStack(t)

	resp := stack.postURL(t, "hgesdg98wq19")
	body := readBody(t, resp)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "Invalid URL")
}

func TestServer_CreateUnreachableHost(t *testing.T) {
	stack := newStack(t)

	// Nothing listens on the discard port, so the upstream GET fails fast.
	resp := stack.postURL(t, "http://127.0.0.1:9/something.zip")
	body := readBody(t, resp)

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, body, "Error creating download")
}

func TestServer_CreateReturnsMetadata(t *testing.T) {
	origin := testutil.NewMockServer(testutil.WithFileSize(1 << 20))
	defer origin.Close()
	stack := newStack(t)

	metadata, err := stack.client.Create(origin.URL())
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, metadata.ID)
	assert.Equal(t, origin.URL(), metadata.URL)
	assert.Equal(t, int64(1<<20), metadata.ContentLength)
}

func TestServer_BulkCreateAndStateListing(t *testing.T) {
	origin := testutil.NewMockServer(testutil.WithFileSize(4096))
	defer origin.Close()
	stack := newStack(t)

	for range 20 {
		_, err := stack.client.Create(origin.URL())
		require.NoError(t, err)
	}

	metadata, err := stack.client.Metadata()
	require.NoError(t, err)
	require.Len(t, metadata, 20)
	for _, md := range metadata {
		assert.Equal(t, origin.URL(), md.URL)
	}

	states, err := stack.client.States()
	require.NoError(t, err)
	require.Len(t, states, 20)
	for _, entry := range states {
		assert.Equal(t, download.Paused(0), entry.State)
	}
}

func TestServer_StartPollComplete(t *testing.T) {
	origin := testutil.NewMockServer(testutil.WithFileSize(256 * 1024))
	defer origin.Close()
	stack := newStack(t)

	metadata, err := stack.client.Create(origin.URL())
	require.NoError(t, err)
	require.NoError(t, stack.client.Start(metadata.ID))

	var final download.State
	require.Eventually(t, func() bool {
		detail, err := stack.client.Get(metadata.ID)
		if err != nil {
			return false
		}
		final = detail.State
		return final.Status != download.StatusRunning && final.Status != download.StatusPaused
	}, 15*time.Second, 50*time.Millisecond)

	assert.Equal(t, download.StatusComplete, final.Status)
	assert.Equal(t, metadata.ContentLength, utils.FileSize(metadata.FilePath))
}

func TestServer_PauseResumeParity(t *testing.T) {
	origin := testutil.NewMockServer(
		testutil.WithFileSize(32*1024*1024),
		testutil.WithLatency(10*time.Millisecond),
	)
	defer origin.Close()
	stack := newStack(t)

	metadata, err := stack.client.Create(origin.URL())
	require.NoError(t, err)
	require.NoError(t, stack.client.Start(metadata.ID))

	time.Sleep(time.Second)
	require.NoError(t, stack.client.Pause(metadata.ID))

	var paused download.State
	require.Eventually(t, func() bool {
		detail, err := stack.client.Get(metadata.ID)
		if err != nil {
			return false
		}
		paused = detail.State
		return paused.Status == download.StatusPaused
	}, 10*time.Second, 50*time.Millisecond)
	assert.Less(t, paused.BytesDownloaded, metadata.ContentLength)

	require.NoError(t, stack.client.Resume(metadata.ID))
	require.Eventually(t, func() bool {
		detail, err := stack.client.Get(metadata.ID)
		return err == nil && detail.State.Status == download.StatusComplete
	}, 30*time.Second, 50*time.Millisecond)

	assert.Equal(t, metadata.ContentLength, utils.FileSize(metadata.FilePath))
}

func TestServer_UnknownID(t *testing.T) {
	stack := newStack(t)
	id := uuid.New()

	for _, path := range []string{
		server.BasePath + "/" + id.String(),
		server.BasePath + "/" + id.String() + "/start",
		server.BasePath + "/" + id.String() + "/resume",
		server.BasePath + "/" + id.String() + "/pause",
	} {
		resp, err := http.Get(stack.api.URL + path)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, path)
		assert.Contains(t, readBody(t, resp), "error")
	}
}

func TestServer_MalformedID(t *testing.T) {
	stack := newStack(t)
	resp, err := http.Get(stack.api.URL + server.BasePath + "/not-a-uuid")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "invalid download id")
}

func TestServer_DeleteRemovesDownload(t *testing.T) {
	origin := testutil.NewMockServer(testutil.WithFileSize(4096))
	defer origin.Close()
	stack := newStack(t)

	metadata, err := stack.client.Create(origin.URL())
	require.NoError(t, err)

	require.NoError(t, stack.client.Delete(metadata.ID, true))

	_, err = stack.client.Get(metadata.ID)
	require.Error(t, err)

	states, err := stack.client.States()
	require.NoError(t, err)
	assert.Empty(t, states)
}

func TestServer_BulkLifecycle(t *testing.T) {
	origin := testutil.NewMockServer(
		testutil.WithFileSize(8*1024*1024),
		testutil.WithLatency(10*time.Millisecond),
	)
	defer origin.Close()
	stack := newStack(t)

	for range 3 {
		_, err := stack.client.Create(origin.URL())
		require.NoError(t, err)
	}

	require.NoError(t, stack.client.StartAll())
	time.Sleep(300 * time.Millisecond)
	require.NoError(t, stack.client.StopAll())

	require.Eventually(t, func() bool {
		states, err := stack.client.States()
		if err != nil {
			return false
		}
		for _, entry := range states {
			if entry.State.Status == download.StatusRunning {
				return false
			}
		}
		return true
	}, 10*time.Second, 50*time.Millisecond)
}

func TestServer_Health(t *testing.T) {
	stack := newStack(t)
	require.NoError(t, stack.client.Health())
}

func TestServer_Settings(t *testing.T) {
	stack := newStack(t)
	resp, err := http.Get(stack.api.URL + "/api/v1/settings")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), stack.svc.Settings.Download.Dir)
}
