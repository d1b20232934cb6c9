package download

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/fetchd-app/fetchd/internal/utils"
)

// halfSecond is the progress emission interval of the streaming loop.
const halfSecond = 500 * time.Millisecond

// sniffLen is how many leading bytes of the create-time response are read
// for magic-byte filename refinement.
const sniffLen = 512

// Download describes a single HTTP transfer into directory/filename.
// The record is immutable after Create; only the file on disk changes.
type Download struct {
	ID        uuid.UUID
	URL       *url.URL
	Directory string
	Filename  string
	Config    Config

	client             *http.Client
	contentLength      int64
	supportsByteRanges bool
}

// Create issues a metadata GET against the url and materializes the
// download record. It does not write to disk. The candidate filename is
// refined from the response (Content-Disposition, magic-byte extension)
// and made unique within the directory.
func Create(ctx context.Context, u *url.URL, directory, filename string, client *http.Client, cfg *Config) (*Download, error) {
	config := DefaultConfig()
	if cfg != nil {
		config = cfg.withDefaults()
	}

	reqCtx, cancel := context.WithTimeout(ctx, config.Timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("building metadata request: %w", err)
	}
	mergeHeaders(req.Header, config.Headers)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("metadata request for %q failed: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &BadStatusError{Code: resp.StatusCode, Body: string(body)}
	}
	if resp.ContentLength <= 0 {
		return nil, fmt.Errorf("%w for url %q", ErrMissingContentLength, u)
	}

	sniff := make([]byte, sniffLen)
	n, _ := io.ReadFull(resp.Body, sniff)
	sniff = sniff[:n]

	filename = utils.RefineFilename(filename, resp.Header, sniff)
	filename = utils.UniqueFilename(directory, filename)

	d := &Download{
		ID:                 uuid.New(),
		URL:                u,
		Directory:          directory,
		Filename:           filename,
		Config:             config,
		client:             client,
		contentLength:      resp.ContentLength,
		supportsByteRanges: resp.Header.Get("Accept-Ranges") == "bytes",
	}
	slog.Info("created download",
		"id", d.ID,
		"url", u.String(),
		"file", d.FilePath(),
		"content_length", d.contentLength,
		"supports_byte_ranges", d.supportsByteRanges)
	return d, nil
}

// FilePath is the absolute target path of the transfer.
func (d *Download) FilePath() string {
	return filepath.Join(d.Directory, d.Filename)
}

// ContentLength is the total size reported by the origin at create time.
func (d *Download) ContentLength() int64 {
	return d.contentLength
}

// SupportsByteRanges reports whether the origin advertised
// "Accept-Ranges: bytes" at create time.
func (d *Download) SupportsByteRanges() bool {
	return d.supportsByteRanges
}

// Metadata returns the immutable projection served by list/get queries.
func (d *Download) Metadata() Metadata {
	return Metadata{
		ID:            d.ID,
		URL:           d.URL.String(),
		FilePath:      d.FilePath(),
		ContentLength: d.contentLength,
	}
}

// BytesOnDisk returns the current size of the target file, 0 if absent.
func (d *Download) BytesOnDisk() int64 {
	return utils.FileSize(d.FilePath())
}

// Start truncates the target file and transfers from byte zero. It returns
// the number of bytes written during this run. Cancelling ctx stops the
// loop at the next chunk boundary and yields a successful partial count.
func (d *Download) Start(ctx context.Context, updates chan<- Update) (int64, error) {
	resp, err := d.get(ctx, "")
	if err != nil {
		return 0, err
	}
	slog.Info("starting new download", "id", d.ID, "url", d.URL.String(), "file", d.FilePath())
	file, err := os.Create(d.FilePath())
	if err != nil {
		resp.Body.Close()
		return 0, fmt.Errorf("creating %q: %w", d.FilePath(), err)
	}
	return d.stream(ctx, resp, file, updates, 0)
}

// Resume continues the transfer from the current on-disk length using a
// byte-range request. Origins without range support fall back to Start.
func (d *Download) Resume(ctx context.Context, updates chan<- Update) (int64, error) {
	bytesOnDisk := d.BytesOnDisk()
	if bytesOnDisk == d.contentLength {
		slog.Warn("resume requested for a fully downloaded file", "id", d.ID, "file", d.FilePath())
		return bytesOnDisk, &AlreadyCompleteError{Bytes: bytesOnDisk}
	}
	if !d.supportsByteRanges {
		slog.Warn("origin does not support byte ranges, starting from scratch", "id", d.ID, "url", d.URL.String())
		return d.Start(ctx, updates)
	}

	resp, err := d.get(ctx, fmt.Sprintf("bytes=%d-", bytesOnDisk))
	if err != nil {
		return bytesOnDisk, err
	}
	file, err := os.OpenFile(d.FilePath(), os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		resp.Body.Close()
		return bytesOnDisk, fmt.Errorf("opening %q for append: %w", d.FilePath(), err)
	}
	slog.Info("resuming download", "id", d.ID, "file", d.FilePath(), "offset", bytesOnDisk)
	return d.stream(ctx, resp, file, updates, bytesOnDisk)
}

// get issues the streaming GET. No timeout is applied; cancellation is the
// only way to abort a long transfer.
func (d *Download) get(ctx context.Context, rangeHeader string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.URL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	mergeHeaders(req.Header, d.Config.Headers)
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request for %q failed: %w", d.URL, err)
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &BadStatusError{Code: resp.StatusCode, Body: string(body)}
	}
	return resp, nil
}

// stream writes the response body to file chunk by chunk, emitting a
// non-blocking Running update roughly every half second. Writes are never
// interrupted mid-chunk, so the file always ends on a chunk boundary.
func (d *Download) stream(ctx context.Context, resp *http.Response, file *os.File, updates chan<- Update, downloaded int64) (int64, error) {
	defer resp.Body.Close()
	defer file.Close()

	buf := make([]byte, d.Config.ChunkSize)
	var windowBytes int64
	windowStart := time.Now()

	for {
		if ctx.Err() != nil {
			return downloaded, nil
		}
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, err := file.Write(buf[:n]); err != nil {
				return downloaded, fmt.Errorf("writing to %q: %w", d.FilePath(), err)
			}
			downloaded += int64(n)
			windowBytes += int64(n)
			if elapsed := time.Since(windowStart); elapsed > halfSecond {
				// Progress is advisory: a full channel drops the update.
				select {
				case updates <- Update{ID: d.ID, State: Running(downloaded, windowBytes*1000/elapsed.Milliseconds())}:
				default:
				}
				windowStart = time.Now()
				windowBytes = 0
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			if ctx.Err() != nil {
				// Cancellation interrupted a pending read; the chunk
				// already written stays, the partial count is the result.
				return downloaded, nil
			}
			return downloaded, fmt.Errorf("reading response body: %w", readErr)
		}
	}

	if downloaded < d.contentLength {
		slog.Error("download stream ended before completion",
			"id", d.ID, "downloaded", downloaded, "content_length", d.contentLength)
		return downloaded, &StreamTruncatedError{Bytes: downloaded}
	}
	slog.Info("download completed", "id", d.ID, "file", d.FilePath())
	return downloaded, nil
}

func mergeHeaders(dst, src http.Header) {
	for key, values := range src {
		for _, v := range values {
			dst.Set(key, v)
		}
	}
}
