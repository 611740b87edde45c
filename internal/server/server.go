package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/cwbudde/shadowcast/internal/raster"
	"github.com/cwbudde/shadowcast/internal/shadow"
	"github.com/cwbudde/shadowcast/internal/store"
)

// previewer renders interactive previews; *shadow.Session in production
type previewer interface {
	Render(ctx context.Context, in shadow.Inputs, p shadow.Params) (*shadow.Result, error)
}

// Server represents the HTTP server
type Server struct {
	jobManager *JobManager
	store      store.Store
	session    previewer
	defaults   shadow.Params
	addr       string
	server     *http.Server

	// ctx is cancelled on Shutdown to stop running jobs
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer creates a new HTTP server. st may be nil, in which case results
// only live in memory. defaults fill fields a request leaves empty.
func NewServer(addr string, st store.Store, defaults shadow.Params) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		jobManager: NewJobManager(),
		store:      st,
		session:    shadow.NewSession(),
		defaults:   defaults,
		addr:       addr,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Handler returns the routed handler wrapped in middleware
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/renders", s.handleRenders)
	mux.HandleFunc("/api/v1/renders/", s.handleRendersWithID)
	mux.HandleFunc("/api/v1/preview", s.handlePreview)

	return s.loggingMiddleware(s.corsMiddleware(mux))
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
	}

	slog.Info("Starting HTTP server", "addr", s.addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server and cancels running jobs
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down HTTP server", "running_jobs", len(s.jobManager.GetRunningJobs()))
	s.cancel()

	var err error
	if s.server != nil {
		err = s.server.Shutdown(ctx)
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return err
}

// handleRenders handles /api/v1/renders
func (s *Server) handleRenders(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateRender(w, r)
	case http.MethodGet:
		s.handleListRenders(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleRendersWithID handles /api/v1/renders/:id/*
func (s *Server) handleRendersWithID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/renders/")
	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] == "" {
		http.Error(w, "Render ID required", http.StatusBadRequest)
		return
	}

	id := parts[0]

	if r.Method == http.MethodDelete && len(parts) == 1 {
		s.handleDeleteRender(w, id)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if len(parts) == 1 || parts[1] == "status" {
		s.handleGetRenderStatus(w, r, id)
		return
	}
	switch parts[1] {
	case store.ArtifactCompositePNG:
		s.handleGetComposite(w, r, id, raster.FormatPNG)
	case store.ArtifactCompositeWebP:
		s.handleGetComposite(w, r, id, raster.FormatWebP)
	case "diff.png":
		s.handleGetDiffImage(w, r, id)
	case "shadow":
		s.handleGetDropShadow(w, r, id)
	case "stream":
		s.handleJobStream(w, r, id)
	default:
		http.Error(w, "Not found", http.StatusNotFound)
	}
}

// handleCreateRender handles POST /api/v1/renders
func (s *Server) handleCreateRender(w http.ResponseWriter, r *http.Request) {
	var req RenderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	job := s.jobManager.CreateJob(req)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		runJob(s.ctx, s.jobManager, s.store, s.defaults, job.ID)
	}()

	writeJSON(w, http.StatusCreated, job)
}

// handleListRenders handles GET /api/v1/renders
func (s *Server) handleListRenders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.jobManager.ListJobs())
}

// handleGetRenderStatus handles GET /api/v1/renders/:id/status. Renders
// from earlier server runs are answered from the store.
func (s *Server) handleGetRenderStatus(w http.ResponseWriter, r *http.Request, id string) {
	if job, exists := s.jobManager.GetJob(id); exists {
		writeJSON(w, http.StatusOK, job)
		return
	}

	rec, err := s.loadRecord(id)
	if err != nil {
		writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleDeleteRender handles DELETE /api/v1/renders/:id. It drops the
// in-memory job and the stored record, whichever exist.
func (s *Server) handleDeleteRender(w http.ResponseWriter, id string) {
	inMemory, err := s.jobManager.DeleteJob(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	stored := false
	if s.store != nil {
		switch err := s.store.DeleteRecord(id); {
		case err == nil:
			stored = true
		case errors.Is(err, store.ErrNotFound):
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}

	if !inMemory && !stored {
		http.Error(w, "Render not found", http.StatusNotFound)
		return
	}
	slog.Info("Render deleted", "render_id", id, "in_memory", inMemory, "stored", stored)
	w.WriteHeader(http.StatusNoContent)
}

// handleGetComposite handles GET /api/v1/renders/:id/composite.{png,webp}
func (s *Server) handleGetComposite(w http.ResponseWriter, r *http.Request, id string, format raster.Format) {
	w.Header().Set("Content-Type", "image/"+string(format))
	w.Header().Set("Cache-Control", "no-cache")

	job, exists := s.jobManager.GetJob(id)
	if exists {
		if job.composite == nil {
			http.Error(w, "No results yet", http.StatusNotFound)
			return
		}
		if err := raster.Encode(w, job.composite, format); err != nil {
			slog.Error("Failed to encode composite", "id", id, "format", format, "error", err)
		}
		return
	}

	if _, err := s.loadRecord(id); err != nil {
		writeLookupError(w, err)
		return
	}
	path, err := s.store.ArtifactPath(id, "composite."+string(format))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, err := os.Stat(path); err != nil {
		http.Error(w, "Artifact not found", http.StatusNotFound)
		return
	}
	http.ServeFile(w, r, path)
}

// handleGetDiffImage handles GET /api/v1/renders/:id/diff.png
func (s *Server) handleGetDiffImage(w http.ResponseWriter, r *http.Request, id string) {
	job, exists := s.jobManager.GetJob(id)
	if !exists {
		http.Error(w, "Render not found", http.StatusNotFound)
		return
	}
	if job.composite == nil || job.background == nil {
		http.Error(w, "No results yet", http.StatusNotFound)
		return
	}

	diff, err := computeDiffImage(job.background, job.composite)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	if err := raster.Encode(w, diff, raster.FormatPNG); err != nil {
		slog.Error("Failed to encode PNG", "error", err)
	}
}

// handleGetDropShadow handles GET /api/v1/renders/:id/shadow
func (s *Server) handleGetDropShadow(w http.ResponseWriter, r *http.Request, id string) {
	var css string
	if job, exists := s.jobManager.GetJob(id); exists {
		if job.DropShadow == "" {
			http.Error(w, "No results yet", http.StatusNotFound)
			return
		}
		css = job.DropShadow
	} else {
		rec, err := s.loadRecord(id)
		if err != nil {
			writeLookupError(w, err)
			return
		}
		css = rec.DropShadow
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, css)
}

// handlePreview handles POST /api/v1/preview. Previews share one Session:
// a preview that is overtaken by a newer one answers 409 Conflict.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req RenderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	params := req.params(s.defaults)
	in, err := loadInputs(req, params.SkipBadDepth)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := s.session.Render(r.Context(), in, params)
	switch {
	case errors.Is(err, shadow.ErrSuperseded):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case errors.Is(err, context.Canceled):
		slog.Debug("Preview client went away")
		return
	case err != nil:
		http.Error(w, err.Error(), renderErrorStatus(err))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Drop-Shadow", res.DropShadow.String())
	if err := raster.Encode(w, res.Composite, raster.FormatPNG); err != nil {
		slog.Error("Failed to encode preview", "error", err)
	}
}

// renderErrorStatus maps synthesis errors caused by the inputs to 422.
func renderErrorStatus(err error) int {
	for _, target := range []error{
		shadow.ErrDegeneratePlacement,
		shadow.ErrDimensionMismatch,
		shadow.ErrInvalidLayers,
		shadow.ErrInvalidPixelScale,
		raster.ErrEmptyRaster,
		raster.ErrBufferSize,
	} {
		if errors.Is(err, target) {
			return http.StatusUnprocessableEntity
		}
	}
	return http.StatusInternalServerError
}

func (s *Server) loadRecord(id string) (*store.Record, error) {
	if s.store == nil {
		return nil, &store.NotFoundError{ID: id}
	}
	return s.store.LoadRecord(id)
}

func writeLookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "Render not found", http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// corsMiddleware adds CORS headers
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Expose-Headers", "X-Drop-Shadow")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("HTTP request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
