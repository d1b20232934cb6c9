// Package service is the command surface of the download engine. The HTTP
// control plane and the terminal shell both go through it: it validates
// input, materializes downloads, and keeps manager and observer in step.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/fetchd-app/fetchd/internal/config"
	"github.com/fetchd-app/fetchd/internal/download"
	"github.com/fetchd-app/fetchd/internal/manager"
	"github.com/fetchd-app/fetchd/internal/observer"
	"github.com/fetchd-app/fetchd/internal/utils"
)

var (
	// ErrInvalidURL rejects create requests whose body is not an absolute
	// http(s) URL.
	ErrInvalidURL = errors.New("not an absolute http(s) URL")
	// ErrFilenameExtraction rejects URLs without a usable path segment.
	ErrFilenameExtraction = errors.New("couldn't parse filename from url")
)

// Detail is the combined per-download view served by point queries.
type Detail struct {
	Metadata download.Metadata `json:"metadata"`
	State    download.State    `json:"state"`
}

// Service wires the engine together: one manager, one publisher consuming
// its updates, one observer subscribed to the publisher, one shared HTTP
// client owning the connection pool.
type Service struct {
	Manager   *manager.Manager
	Observer  *observer.Observer
	Publisher *observer.Publisher
	Settings  *config.Settings

	client *http.Client
}

// New builds the full pipeline. All components live for the process
// lifetime; there is no teardown beyond process exit.
func New(settings *config.Settings) *Service {
	publisher := observer.NewPublisher()
	obs := observer.New()
	publisher.Subscribe(obs)
	mgr := manager.New(publisher)
	return &Service{
		Manager:   mgr,
		Observer:  obs,
		Publisher: publisher,
		Settings:  settings,
		client:    &http.Client{},
	}
}

// Create parses and validates the URL, derives a filename from its last
// path segment, materializes the download against the origin, registers it
// and tracks its initial paused state.
func (s *Service) Create(ctx context.Context, rawURL string) (download.Metadata, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return download.Metadata{}, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return download.Metadata{}, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}
	filename, ok := utils.ParseFilename(u)
	if !ok {
		return download.Metadata{}, ErrFilenameExtraction
	}

	d, err := download.Create(ctx, u, s.Settings.Download.Dir, filename, s.client, nil)
	if err != nil {
		return download.Metadata{}, err
	}

	id := s.Manager.Add(d)
	s.Observer.Track(id, download.Paused(d.BytesOnDisk()))
	return d.Metadata(), nil
}

// List snapshots the metadata of every download.
func (s *Service) List() []download.Metadata {
	return s.Manager.MetadataAll()
}

// States snapshots the observed state of every download.
func (s *Service) States() []download.StateEntry {
	return s.Observer.StateAll()
}

// Get returns metadata and current state for one download.
func (s *Service) Get(id uuid.UUID) (Detail, error) {
	metadata, err := s.Manager.Metadata(id)
	if err != nil {
		return Detail{}, err
	}
	state, ok := s.Observer.State(id)
	if !ok {
		state = download.Paused(0)
	}
	return Detail{Metadata: metadata, State: state}, nil
}

// Start begins the transfer from scratch, truncating any partial file.
func (s *Service) Start(id uuid.UUID) error {
	return s.Manager.Start(id)
}

// Resume continues the transfer from the bytes already on disk.
func (s *Service) Resume(id uuid.UUID) error {
	return s.Manager.Resume(id)
}

// Pause cancels the running transfer for id.
func (s *Service) Pause(id uuid.UUID) error {
	return s.Manager.Stop(id)
}

// Delete removes the download from the registry and observer; with
// deleteFile set the partial or complete file is unlinked too.
func (s *Service) Delete(id uuid.UUID, deleteFile bool) error {
	if err := s.Manager.Delete(id, deleteFile); err != nil {
		return err
	}
	s.Observer.Untrack(id)
	return nil
}

// StartAll resumes every idle download.
func (s *Service) StartAll() {
	s.Manager.StartAll()
}

// StopAll cancels every running download.
func (s *Service) StopAll() {
	s.Manager.StopAll()
}
