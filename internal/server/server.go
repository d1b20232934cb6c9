// Package server mounts the REST control plane over the service layer.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/fetchd-app/fetchd/internal/manager"
	"github.com/fetchd-app/fetchd/internal/service"
)

// BasePath is where the download routes are mounted.
const BasePath = "/api/v1/download"

// maxCreateBody bounds the URL body of a create request.
const maxCreateBody = 8 * 1024

type Server struct {
	svc     *service.Service
	version string
	httpSrv *http.Server
}

func New(svc *service.Service, version string) *Server {
	return &Server{svc: svc, version: version}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/v1/settings", s.handleSettings)

	mux.HandleFunc("POST "+BasePath, s.handleCreate)
	mux.HandleFunc("GET "+BasePath+"/metadata", s.handleMetadata)
	mux.HandleFunc("GET "+BasePath+"/state", s.handleState)
	mux.HandleFunc("GET "+BasePath+"/start_all", s.handleStartAll)
	mux.HandleFunc("GET "+BasePath+"/stop_all", s.handleStopAll)
	mux.HandleFunc("GET "+BasePath+"/{id}", s.handleGet)
	mux.HandleFunc("GET "+BasePath+"/{id}/start", s.handleStart)
	mux.HandleFunc("GET "+BasePath+"/{id}/resume", s.handleResume)
	mux.HandleFunc("GET "+BasePath+"/{id}/pause", s.handlePause)
	mux.HandleFunc("DELETE "+BasePath+"/{id}", s.handleDelete)

	return corsMiddleware(mux)
}

// Serve blocks until the listener fails or Shutdown is called.
func (s *Server) Serve(ln net.Listener) error {
	s.httpSrv = &http.Server{Handler: s.Handler()}
	slog.Info("control plane listening", "addr", ln.Addr().String())
	if err := s.httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// corsMiddleware allows shells served from other origins (the desktop app
// talks to the daemon cross-origin).
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": s.version})
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Settings)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxCreateBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid URL: %v", err))
		return
	}
	metadata, err := s.svc.Create(r.Context(), string(body))
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, metadata)
	case errors.Is(err, service.ErrInvalidURL):
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid URL: %v", err))
	case errors.Is(err, service.ErrFilenameExtraction):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Error creating download: %v", err))
	}
}

func (s *Server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.List())
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.States())
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	detail, err := s.svc.Get(id)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	s.command(w, r, s.svc.Start)
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.command(w, r, s.svc.Resume)
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.command(w, r, s.svc.Pause)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	deleteFile, _ := strconv.ParseBool(r.URL.Query().Get("delete_file"))
	if err := s.svc.Delete(id, deleteFile); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStartAll(w http.ResponseWriter, r *http.Request) {
	s.svc.StartAll()
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStopAll(w http.ResponseWriter, r *http.Request) {
	s.svc.StopAll()
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// command runs one per-download manager operation, mapping the shared
// failure taxonomy onto 400s.
func (s *Server) command(w http.ResponseWriter, r *http.Request, op func(uuid.UUID) error) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := op(id); err != nil {
		switch {
		case errors.Is(err, manager.ErrNotFound),
			errors.Is(err, manager.ErrAlreadyRunning),
			errors.Is(err, manager.ErrNotRunning):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid download id: %v", err))
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encoding response", "err", err)
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
