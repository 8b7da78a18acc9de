// Package api exposes the HTTP interface for the harvester service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/clipstream/harvester/internal/scraper"
	"github.com/clipstream/harvester/internal/status"
	"github.com/clipstream/harvester/internal/workflow"
)

// Options controls the HTTP surface.
type Options struct {
	// APIKey, when non-empty, is required on every request via the
	// X-API-Key header or the api_key query parameter.
	APIKey string
	// RequestTimeout bounds handler execution. Workflow starts return
	// immediately so this stays small.
	RequestTimeout time.Duration
}

// Server wires HTTP handlers to the workflow controller.
type Server struct {
	router     chi.Router
	controller *workflow.Controller
	tracker    *status.Broadcaster
	logger     *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(controller *workflow.Controller, tracker *status.Broadcaster, opts Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	s := &Server{
		controller: controller,
		tracker:    tracker,
		logger:     logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(timeoutMiddleware(opts.RequestTimeout))
	if opts.APIKey != "" {
		r.Use(apiKeyMiddleware(opts.APIKey))
	}

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/workflows", func(r chi.Router) {
			r.Post("/discover-and-scrape", s.startDiscoverAndScrape)
			r.Post("/video", s.startVideoScrape)
			r.Post("/cancel", s.cancelWorkflow)
			r.Get("/status", s.workflowStatus)
		})
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, s.logger)
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"}, s.logger)
}

type discoverRequest struct {
	Source     string `json:"source"`
	Identifier string `json:"identifier"`
	Limit      int    `json:"limit"`
}

type videoRequest struct {
	VideoID string `json:"video_id"`
}

func (s *Server) startDiscoverAndScrape(w http.ResponseWriter, r *http.Request) {
	var req discoverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON", s.logger)
		return
	}
	mission, err := toMission(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), s.logger)
		return
	}
	s.start(w, mission)
}

// startVideoScrape targets a single known video, skipping discovery.
func (s *Server) startVideoScrape(w http.ResponseWriter, r *http.Request) {
	var req videoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.VideoID == "" {
		writeError(w, http.StatusBadRequest, "missing video_id", s.logger)
		return
	}
	s.start(w, scraper.DiscoveryMission{
		Source:     scraper.SourceVideoID,
		Identifier: req.VideoID,
		Limit:      1,
	})
}

func (s *Server) start(w http.ResponseWriter, mission scraper.DiscoveryMission) {
	if err := s.controller.Start(mission); err != nil {
		if errors.Is(err, scraper.ErrWorkflowRunning) {
			writeError(w, http.StatusConflict, "a workflow is already running", s.logger)
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error(), s.logger)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":     "started",
		"source":     mission.Source,
		"identifier": mission.Identifier,
		"limit":      mission.Limit,
	}, s.logger)
}

func (s *Server) cancelWorkflow(w http.ResponseWriter, _ *http.Request) {
	cancelled := s.controller.Cancel()
	writeJSON(w, http.StatusOK, map[string]bool{"cancelled": cancelled}, s.logger)
}

func (s *Server) workflowStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"running": s.controller.Running(),
		"stage":   s.tracker.Stage(),
		"steps":   s.tracker.Snapshot(),
	}, s.logger)
}

func toMission(req discoverRequest) (scraper.DiscoveryMission, error) {
	if req.Identifier == "" {
		return scraper.DiscoveryMission{}, errors.New("identifier is required")
	}
	source := scraper.Source(req.Source)
	switch source {
	case scraper.SourceHashtag, scraper.SourceSearch, scraper.SourceVideoID:
	case "":
		source = scraper.SourceHashtag
	default:
		return scraper.DiscoveryMission{}, errors.New("source must be hashtag, search, or video_id")
	}
	if req.Limit < 0 {
		return scraper.DiscoveryMission{}, errors.New("limit must not be negative")
	}
	return scraper.DiscoveryMission{
		Source:     source,
		Identifier: req.Identifier,
		Limit:      req.Limit,
	}, nil
}

type requestIDKey struct{}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", zap.Any("panic", rec))
					writeError(w, http.StatusInternalServerError, "internal server error", logger)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

func apiKeyMiddleware(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				key = r.URL.Query().Get("api_key")
			}
			if key != expected {
				writeError(w, http.StatusForbidden, "unauthorized", zap.NewNop())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, statusCode int, msg string, logger *zap.Logger) {
	writeJSON(w, statusCode, map[string]string{"error": msg}, logger)
}
