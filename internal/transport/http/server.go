package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	archiveDomain "github.com/reshetovitsme/tg-chat-archive/internal/modules/archive/domain"
	cursorDomain "github.com/reshetovitsme/tg-chat-archive/internal/modules/cursor/domain"
	feedService "github.com/reshetovitsme/tg-chat-archive/internal/modules/feed/service"
	"github.com/reshetovitsme/tg-chat-archive/internal/shared/config"
	sloghttp "github.com/samber/slog-http"
)

// Archive exposes the state of the archive loop.
type Archive interface {
	Key() cursorDomain.Key
	State() archiveDomain.State
	LastResult() (archiveDomain.Result, bool)
}

// Cursors exposes committed progress.
type Cursors interface {
	Current(key cursorDomain.Key) (cursorDomain.Cursor, bool)
}

// Server serves health, status, metrics and the archive feed
type Server struct {
	cfg         *config.Config
	archive     Archive
	cursors     Cursors
	feedService *feedService.Service
	logger      *slog.Logger
}

// New creates a new HTTP server
func New(cfg *config.Config, archive Archive, cursors Cursors, feedService *feedService.Service) *Server {
	return &Server{
		cfg:         cfg,
		archive:     archive,
		cursors:     cursors,
		feedService: feedService,
		logger:      slog.Default(),
	}
}

// SetLogger sets the logger
func (s *Server) SetLogger(logger *slog.Logger) {
	s.logger = logger
}

// Handler returns the routed handler wrapped in access logging and recovery.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /rss/{source}", s.handleRSSFeed)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /{$}", s.handleRoot)

	handler := sloghttp.Recovery(mux)
	return sloghttp.New(s.logger)(handler)
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf(":%s", s.cfg.HTTPPort)
	server := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server starting", "addr", addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleRSSFeed(w http.ResponseWriter, r *http.Request) {
	source := r.PathValue("source")
	if source == "" {
		http.Error(w, "Source is required", http.StatusBadRequest)
		return
	}
	if key := s.archive.Key(); source != key.Source && "@"+source == key.Source {
		source = key.Source
	}

	baseURL := fmt.Sprintf("%s://%s", getScheme(r), r.Host)

	feed, err := s.feedService.GenerateFeed(source, baseURL)
	if err != nil {
		s.logger.Error("Error generating feed", "source", source, "error", err)
		http.Error(w, "Failed to generate feed", http.StatusInternalServerError)
		return
	}

	rss, err := feed.ToRss()
	if err != nil {
		s.logger.Error("Error converting feed to RSS", "error", err)
		http.Error(w, "Failed to generate RSS", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(rss))
}

type statusResponse struct {
	Source      string                `json:"source"`
	Destination string                `json:"destination"`
	State       archiveDomain.State   `json:"state"`
	Cursor      *cursorDomain.Cursor  `json:"cursor,omitempty"`
	LastRun     *archiveDomain.Result `json:"last_run,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	key := s.archive.Key()
	resp := statusResponse{
		Source:      key.Source,
		Destination: key.Destination,
		State:       s.archive.State(),
	}
	if c, ok := s.cursors.Current(key); ok {
		resp.Cursor = &c
	}
	if res, ok := s.archive.LastResult(); ok {
		resp.LastRun = &res
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("Error encoding status", "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if s.archive.State() == archiveDomain.StateFatal {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"fatal"}`))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	html := `<!DOCTYPE html>
<html>
<head>
    <title>Telegram Chat Archive</title>
    <style>
        body { font-family: Arial, sans-serif; max-width: 800px; margin: 50px auto; padding: 20px; }
        h1 { color: #333; }
        .info { background: #f5f5f5; padding: 15px; border-radius: 5px; margin: 20px 0; }
        code { background: #e8e8e8; padding: 2px 6px; border-radius: 3px; }
    </style>
</head>
<body>
    <h1>Telegram Chat Archive</h1>
    <div class="info">
        <p>Archive progress: <code>/status</code></p>
        <p>Recently archived messages: <code>/rss/{source}</code></p>
        <p>Prometheus metrics: <code>/metrics</code></p>
    </div>
    <p><a href="/health">Health Check</a></p>
</body>
</html>`
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(html))
}

func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
