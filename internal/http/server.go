// Package http exposes the share-intent ingestion API, the journal endpoints
// and the operational surface (metrics, health) over one listener.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"songmoment/internal/core"
	"songmoment/internal/flood"
	"songmoment/internal/journal"
	"songmoment/internal/store"
	"songmoment/pkg/musicurl"
)

// Deps bundles the collaborators the server fronts.
type Deps struct {
	Controller *core.IngestController
	Locator    core.SongLookup
	Session    *core.SessionState
	Journal    journal.Store
	Gate       *flood.Gate
	Seen       core.DedupStore
}

type Server struct {
	config  *core.ServerConfig
	logger  *zap.Logger
	server  *http.Server
	metrics *Metrics
	deps    Deps
}

func NewServer(config *core.ServerConfig, deps Deps, logger *zap.Logger) *Server {
	s := &Server{
		config:  config,
		logger:  logger,
		metrics: newMetrics(),
		deps:    deps,
	}
	s.metrics.setSessionActive(deps.Session.Active())
	s.server = createHTTPServer(config, s.setupRoutes())
	return s
}

func createHTTPServer(config *core.ServerConfig, mux *http.ServeMux) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      mux,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}
}

func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/share", s.requireAuth(s.handleShare))
	mux.HandleFunc("GET /v1/resolve", s.requireAuth(s.handleResolve))
	mux.HandleFunc("POST /v1/session", s.requireAuth(s.handleSessionStart))
	mux.HandleFunc("DELETE /v1/session", s.requireAuth(s.handleSessionStop))
	mux.HandleFunc("GET /v1/moments", s.requireAuth(s.handleListMoments))
	mux.HandleFunc("POST /v1/moments", s.requireAuth(s.handleCreateMoment))

	mux.Handle("/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/readyz", s.handleReadyz)
	mux.HandleFunc("/", homeHandler(s.logger))

	return mux
}

func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting HTTP server",
		zap.String("addr", s.server.Addr))

	go func() {
		<-ctx.Done()
		s.logger.Info("Shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Failed to shutdown HTTP server gracefully", zap.Error(err))
		}
	}()

	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}

func (s *Server) GetMetrics() *Metrics {
	return s.metrics
}

// requireAuth enforces the bearer token on the API routes when one is
// configured. Without a token the API is open, which is the expected mode for
// an on-device companion process.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.config.AuthToken != "" {
			got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if got != s.config.AuthToken {
				s.writeError(w, http.StatusUnauthorized, "invalid or missing token")
				return
			}
		}
		next(w, r)
	}
}

type shareResponse struct {
	Accepted bool          `json:"accepted"`
	Reason   string        `json:"reason,omitempty"`
	Outcome  *core.Outcome `json:"outcome,omitempty"`
}

func (s *Server) handleShare(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() { s.metrics.recordDuration("share", time.Since(start)) }()

	var intent core.ShareIntent
	if err := json.NewDecoder(r.Body).Decode(&intent); err != nil {
		s.metrics.recordError("share", "decode")
		s.writeError(w, http.StatusBadRequest, "invalid share payload")
		return
	}

	if !s.deps.Gate.Allow(intent.DeviceID) {
		s.metrics.RateLimitedTotal.Inc()
		s.writeJSON(w, http.StatusTooManyRequests, shareResponse{Accepted: false, Reason: "rate_limited"})
		return
	}

	fingerprint := store.Fingerprint(intent)
	if s.deps.Seen.Has(fingerprint) {
		s.metrics.DuplicatesTotal.Inc()
		s.writeJSON(w, http.StatusOK, shareResponse{Accepted: false, Reason: "duplicate"})
		return
	}

	outcome, accepted := s.deps.Controller.Process(r.Context(), intent)
	if !accepted {
		reason := "busy"
		if !s.deps.Session.Active() {
			reason = "no_active_session"
		}
		s.writeJSON(w, http.StatusConflict, shareResponse{Accepted: false, Reason: reason})
		return
	}

	s.deps.Seen.Add(fingerprint)
	s.metrics.recordShare(string(outcome.Kind))
	s.writeJSON(w, http.StatusOK, shareResponse{Accepted: true, Outcome: &outcome})
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() { s.metrics.recordDuration("resolve", time.Since(start)) }()

	raw := r.URL.Query().Get("url")
	if raw == "" {
		s.writeError(w, http.StatusBadRequest, "missing url parameter")
		return
	}

	parsed := musicurl.Parse(raw)
	if parsed == nil {
		s.metrics.recordLookup("unknown", "unparseable")
		s.writeError(w, http.StatusBadRequest, "unrecognized music URL")
		return
	}

	result := s.deps.Locator.LookupSongFromURL(r.Context(), raw)

	status := "miss"
	switch {
	case result.Ambiguous():
		status = "ambiguous"
	case result.Resolved():
		status = "resolved"
	}
	s.metrics.recordLookup(string(parsed.Service), status)

	s.writeJSON(w, http.StatusOK, result)
}

type sessionResponse struct {
	Active bool `json:"active"`
}

func (s *Server) handleSessionStart(w http.ResponseWriter, _ *http.Request) {
	s.deps.Session.SetActive(true)
	s.metrics.setSessionActive(true)
	s.logger.Info("Session started")
	s.writeJSON(w, http.StatusOK, sessionResponse{Active: true})
}

func (s *Server) handleSessionStop(w http.ResponseWriter, _ *http.Request) {
	s.deps.Session.SetActive(false)
	s.metrics.setSessionActive(false)
	s.logger.Info("Session stopped")
	s.writeJSON(w, http.StatusOK, sessionResponse{Active: false})
}

const (
	defaultMomentsLimit = 50
	maxMomentsLimit     = 200
)

type momentsResponse struct {
	Moments []*journal.Moment `json:"moments"`
}

func (s *Server) handleListMoments(w http.ResponseWriter, r *http.Request) {
	if artist := r.URL.Query().Get("artist"); artist != "" {
		moments, err := s.deps.Journal.ListByArtist(r.Context(), artist)
		if err != nil {
			s.metrics.recordError("journal", "list")
			s.writeError(w, http.StatusInternalServerError, "failed to list moments")
			return
		}
		s.writeJSON(w, http.StatusOK, momentsResponse{Moments: moments})
		return
	}

	limit := queryInt(r, "limit", defaultMomentsLimit)
	if limit > maxMomentsLimit {
		limit = maxMomentsLimit
	}
	offset := queryInt(r, "offset", 0)

	moments, err := s.deps.Journal.ListMoments(r.Context(), limit, offset)
	if err != nil {
		s.metrics.recordError("journal", "list")
		s.writeError(w, http.StatusInternalServerError, "failed to list moments")
		return
	}
	s.writeJSON(w, http.StatusOK, momentsResponse{Moments: moments})
}

func (s *Server) handleCreateMoment(w http.ResponseWriter, r *http.Request) {
	var moment journal.Moment
	if err := json.NewDecoder(r.Body).Decode(&moment); err != nil {
		s.metrics.recordError("journal", "decode")
		s.writeError(w, http.StatusBadRequest, "invalid moment payload")
		return
	}

	if _, err := s.deps.Journal.CreateMoment(r.Context(), &moment); err != nil {
		s.metrics.recordError("journal", "create")
		s.writeError(w, http.StatusInternalServerError, "failed to store moment")
		return
	}

	if count, err := s.deps.Journal.Count(r.Context()); err == nil {
		s.metrics.JournalSize.Set(float64(count))
	}

	s.writeJSON(w, http.StatusCreated, &moment)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(`{"status":"ok","service":"songmoment"}`)); err != nil {
		s.logger.Debug("Failed to write health response", zap.Error(err))
	}
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if _, err := s.deps.Journal.Count(r.Context()); err != nil {
		s.writeError(w, http.StatusServiceUnavailable, "journal unavailable")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(`{"status":"ready","service":"songmoment"}`)); err != nil {
		s.logger.Debug("Failed to write ready response", zap.Error(err))
	}
}

func homeHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`<!DOCTYPE html>
<html>
<head>
    <title>SongMoment</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 40px; }
        .header { color: #333; }
        .endpoint { margin: 10px 0; }
        .endpoint a { text-decoration: none; color: #0066cc; }
        .endpoint a:hover { text-decoration: underline; }
    </style>
</head>
<body>
    <h1 class="header">🎵 SongMoment</h1>
    <p>Music link resolution and journaling companion service</p>

    <h2>Endpoints</h2>
    <div class="endpoint">📊 <a href="/metrics">Metrics</a> - Prometheus metrics</div>
    <div class="endpoint">💚 <a href="/healthz">Health</a> - Health check</div>
    <div class="endpoint">✅ <a href="/readyz">Ready</a> - Readiness check</div>

    <h2>Status</h2>
    <p>Service is running and ready to resolve shared music links.</p>
</body>
</html>`)); err != nil {
			logger.Debug("Failed to write home response", zap.Error(err))
		}
	}
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, errorResponse{Error: message})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}
