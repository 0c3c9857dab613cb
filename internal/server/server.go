// Package server is the LocalBridge backend: uploaded files, the per-device
// clipboards, the shared notes and the host's system clipboard, served as a
// small JSON API next to the browser client that uses it.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"go.klb.dev/localbridge/internal/api"
	"go.klb.dev/localbridge/internal/clip"
)

// MaxUploadSize is the largest request body accepted by POST /api/files.
const MaxUploadSize = 500 << 20

// DefaultAllowedExtensions are the upload types accepted by default.
var DefaultAllowedExtensions = []string{
	"txt", "pdf", "png", "jpg", "jpeg", "gif",
	"doc", "docx", "xls", "xlsx", "ppt", "pptx", "zip", "rar",
}

// Config holds backend configuration.
type Config struct {
	// Root is the project directory; uploads/ and data/ live below it
	// unless UploadDir or DataDir are set.
	Root      string
	UploadDir string
	DataDir   string

	MaxUploadSize int64
	Allowed       []string

	// Clipboard backs /api/clipboard. Nil means the endpoint always fails.
	Clipboard clip.Backend
}

// Server holds the backend state.
type Server struct {
	cfg     Config
	allowed map[string]struct{}

	// serializes text file writes so a reader never sees a partial file
	mu sync.Mutex
}

// New creates the upload and data directories and returns a Server.
func New(cfg Config) (*Server, error) {
	if cfg.UploadDir == "" {
		cfg.UploadDir = filepath.Join(cfg.Root, "uploads")
	}
	if cfg.DataDir == "" {
		cfg.DataDir = filepath.Join(cfg.Root, "data")
	}
	if cfg.MaxUploadSize == 0 {
		cfg.MaxUploadSize = MaxUploadSize
	}
	if len(cfg.Allowed) == 0 {
		cfg.Allowed = DefaultAllowedExtensions
	}
	for _, dir := range []string{cfg.UploadDir, cfg.DataDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}

	s := &Server{cfg: cfg, allowed: make(map[string]struct{}, len(cfg.Allowed))}
	for _, ext := range cfg.Allowed {
		s.allowed[normalizeExt(ext)] = struct{}{}
	}
	return s, nil
}

// Handler returns the API router, with the browser client at /.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(logRequests)

	r.HandleFunc(api.PathFiles, s.listFiles).Methods(http.MethodGet)
	r.HandleFunc(api.PathFiles, s.uploadFile).Methods(http.MethodPost)
	r.HandleFunc(api.PathFiles+"/{filename}", s.downloadFile).Methods(http.MethodGet)

	r.HandleFunc(api.PathClipboard, s.getSystemClipboard).Methods(http.MethodGet)
	r.HandleFunc(api.PathClipboard, s.setSystemClipboard).Methods(http.MethodPost)

	for _, doc := range s.docs() {
		r.HandleFunc(doc.route, s.getText(doc.textDoc)).Methods(http.MethodGet)
		r.HandleFunc(doc.route, s.setText(doc.textDoc)).Methods(http.MethodPost)
	}

	mountWeb(r)
	return r
}

type routedDoc struct {
	route string
	textDoc
}

func (s *Server) docs() []routedDoc {
	data := s.cfg.DataDir
	return []routedDoc{
		{api.PathClipboard + "/pc", textDoc{
			path:       filepath.Join(data, "pc_clipboard.txt"),
			label:      "PC clipboard",
			getFailure: "Failed to get PC clipboard content",
			setFailure: "Failed to update PC clipboard",
		}},
		{api.PathClipboard + "/mobile", textDoc{
			path:       filepath.Join(data, "mobile_clipboard.txt"),
			label:      "Mobile clipboard",
			getFailure: "Failed to get mobile clipboard content",
			setFailure: "Failed to update mobile clipboard",
		}},
		{api.PathNotes, textDoc{
			path:       filepath.Join(data, "notes.txt"),
			label:      "Notes",
			getFailure: "Failed to get notes",
			setFailure: "Failed to update notes",
		}},
	}
}

// Serve runs the API on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// logRequests tags each request with its X-Request-ID (generated by the
// client) and logs method, path, status and duration at debug level.
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start).Round(time.Microsecond),
			"request_id", r.Header.Get(api.RequestIDHeader),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
