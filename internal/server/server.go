package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/lehigh-university-libraries/ocrweb/internal/metrics"
	"github.com/lehigh-university-libraries/ocrweb/pkg/ocr"
)

// DefaultMaxUploadBytes caps multipart uploads when Config leaves it unset.
const DefaultMaxUploadBytes = 10 << 20

type Config struct {
	MaxUploadBytes int64
	// SessionTTL expires sessions idle for longer than this. Zero disables expiry.
	SessionTTL time.Duration
}

// Server is the web front end: three views, uploads, exports, and a JSON API.
type Server struct {
	pipeline  *ocr.Pipeline
	metrics   *metrics.Metrics
	sessions  *sessionStore
	views     *renderer
	maxUpload int64
	handler   http.Handler
}

// New creates a server that runs uploads through pipeline.
func New(pipeline *ocr.Pipeline, m *metrics.Metrics, cfg Config) (*Server, error) {
	views, err := newRenderer()
	if err != nil {
		return nil, err
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}

	s := &Server{
		pipeline:  pipeline,
		metrics:   m,
		sessions:  newSessionStore(cfg.SessionTTL, m.SetActiveSessions),
		views:     views,
		maxUpload: cfg.MaxUploadBytes,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("GET /about", s.handleAbout)
	mux.HandleFunc("GET /history", s.handleHistory)
	mux.HandleFunc("GET /history/{n}/image", s.handleHistoryImage)
	mux.HandleFunc("POST /ocr", s.handleOCR)
	mux.HandleFunc("GET /export/json", s.handleExportJSON)
	mux.HandleFunc("GET /export/history.csv", s.handleExportCSV)
	mux.HandleFunc("POST /api/ocr", s.handleAPIOCR)
	mux.Handle("GET /metrics", m.Handler())

	s.handler = s.instrument(mux)
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down web server", "addr", addr)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
