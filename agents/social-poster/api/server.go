package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"social-stack/internal/models"
	"social-stack/shared/config"
	"social-stack/shared/logging"
	"social-stack/shared/monitoring"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// RunFunc triggers one full orchestrator run.
type RunFunc func(ctx context.Context) error

// GenerateFunc resolves videos for one or all products without posting.
type GenerateFunc func(ctx context.Context, productID string, force bool) ([]*models.VideoSelection, error)

// SinglePostFunc processes exactly the first pending feed row.
type SinglePostFunc func(ctx context.Context) (models.RunMetrics, error)

// Server exposes the status/control surface of the posting pipeline.
type Server struct {
	config   *config.Config
	tracker  *monitoring.Tracker
	activity *logging.ActivityLog

	run        RunFunc
	generate   GenerateFunc
	singlePost SinglePostFunc

	// running guards against overlapping runs triggered over HTTP.
	running atomic.Bool
}

func NewServer(cfg *config.Config, tracker *monitoring.Tracker, activity *logging.ActivityLog,
	run RunFunc, generate GenerateFunc, singlePost SinglePostFunc) *Server {
	return &Server{
		config:     cfg,
		tracker:    tracker,
		activity:   activity,
		run:        run,
		generate:   generate,
		singlePost: singlePost,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/api/health", s.handleHealth)
	r.Get("/api/status", s.handleStatus)
	r.Post("/api/post/manual", s.handleTriggerRun)
	r.Post("/api/post/scheduled", s.handleTriggerRun)
	r.Post("/api/videos/generate", s.handleGenerateVideos)
	r.Post("/api/test/single-post", s.handleSinglePost)
	r.Get("/api/logs", s.handleLogs)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"status":    "not-found",
			"message":   "Endpoint not found",
			"timestamp": time.Now().UTC(),
		})
	})

	return r
}

// Start serves the API until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.config.Server.Port),
		Handler: s.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("API server listening on port %d", s.config.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status := "healthy"
	code := http.StatusOK
	if !s.tracker.IsHealthy() {
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]interface{}{
		"status":    status,
		"service":   "social-media-automation",
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    s.tracker.Snapshot(),
		"platforms": s.platformStatus(),
		"timestamp": time.Now().UTC(),
	})
}

// platformStatus reports which credential sets are present without exposing
// any credential values.
func (s *Server) platformStatus() map[string]string {
	present := func(ok bool) string {
		if ok {
			return "configured"
		}
		return "missing"
	}
	return map[string]string{
		"instagram": present(s.config.Instagram.Configured()),
		"twitter":   present(s.config.Twitter.Configured()),
		"pinterest": present(s.config.Pinterest.Configured()),
		"youtube":   present(s.config.YouTube.Configured()),
		"heygen":    present(s.config.HeyGen.Configured()),
	}
}

func (s *Server) handleTriggerRun(w http.ResponseWriter, r *http.Request) {
	if !s.running.CompareAndSwap(false, true) {
		writeJSON(w, http.StatusConflict, map[string]interface{}{
			"status":    "busy",
			"message":   "a run is already in progress",
			"timestamp": time.Now().UTC(),
		})
		return
	}
	defer s.running.Store(false)

	log.Println("Posting run triggered via API")
	if err := s.run(r.Context()); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "success",
		"result":    s.tracker.Snapshot(),
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleGenerateVideos(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Product string `json:"product"`
		Force   bool   `json:"force"`
	}
	if r.Body != nil {
		// An empty body means "generate for all products"
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	log.Printf("Video generation triggered for: %s", orAll(req.Product))
	selections, err := s.generate(r.Context(), req.Product, req.Force)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "success",
		"videos":    selections,
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleSinglePost(w http.ResponseWriter, r *http.Request) {
	log.Println("Single post test triggered")
	metrics, err := s.singlePost(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "success",
		"result":    metrics,
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	n := 100
	if v := r.URL.Query().Get("n"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			n = parsed
		}
	}

	lines, err := s.activity.Tail(n)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "success",
		"logs":      lines,
		"timestamp": time.Now().UTC(),
	})
}

func writeJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
		"status":    "error",
		"error":     err.Error(),
		"timestamp": time.Now().UTC(),
	})
}

func orAll(product string) string {
	if product == "" {
		return "all products"
	}
	return product
}
