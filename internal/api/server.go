// Package api provides the HTTP API server for VibeForge.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/vibeforge/vibeforge/internal/core"
	"github.com/vibeforge/vibeforge/internal/identity"
	"github.com/vibeforge/vibeforge/internal/journal"
	"github.com/vibeforge/vibeforge/internal/logging"
	"github.com/vibeforge/vibeforge/internal/metrics"
	"github.com/vibeforge/vibeforge/internal/platform"
)

// maxBodyBytes bounds request bodies
const maxBodyBytes = 1 << 20

// Server is the HTTP API server
type Server struct {
	router     *chi.Mux
	httpServer *http.Server

	// Components
	platform *platform.Platform
	journal  *journal.Store
	metrics  *metrics.Metrics
	wsHub    *WebSocketHub
	limiter  *RateLimiter

	allowedOrigins []string
	log            *logging.Logger

	done     chan struct{}
	stopOnce sync.Once
}

// Config for the server
type Config struct {
	Addr     string
	Platform *platform.Platform
	Journal  *journal.Store   // optional audit journal
	Metrics  *metrics.Metrics // optional
	Logger   *logging.Logger

	AllowedOrigins []string
	RateLimitRPS   float64 // zero disables rate limiting
	RateLimitBurst int
}

// New creates a new API server and subscribes its observers to the platform
func New(cfg Config) *Server {
	log := cfg.Logger
	if log == nil {
		log = logging.Default()
	}
	log = log.WithField("component", "api")

	s := &Server{
		platform:       cfg.Platform,
		journal:        cfg.Journal,
		metrics:        cfg.Metrics,
		wsHub:          NewWebSocketHub(log),
		allowedOrigins: cfg.AllowedOrigins,
		log:            log,
		done:           make(chan struct{}),
	}
	if cfg.RateLimitRPS > 0 {
		s.limiter = NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, log)
	}
	if len(s.allowedOrigins) == 0 {
		s.allowedOrigins = []string{"*"}
	}

	// Observers run in registration order: journal, metrics, live stream
	if s.journal != nil {
		s.platform.AddObserver(journal.NewRecorder(s.journal, log))
	}
	if s.metrics != nil {
		s.platform.AddObserver(s.metrics)
		s.metrics.TrackState(
			func() int { return s.platform.Snapshot().Accounts },
			func() int { return s.platform.Snapshot().Items },
		)
	}
	s.platform.AddObserver(s.wsHub)

	s.setupRouter()

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRouter configures all routes
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(s.log))
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
	}

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", CallerHeader},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Use(s.callerMiddleware)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))
		if s.limiter != nil {
			r.Use(s.limiter.Handler)
		}

		NewPlatformAPI(s.platform, s).RegisterRoutes(r)

		// Journal API (read-only audit trail)
		if s.journal != nil {
			NewJournalAPI(s.journal, s).RegisterRoutes(r)
		}
	})

	// Live event stream
	r.Get("/ws", s.wsHub.ServeHTTP)

	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	s.router = r
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Hub returns the live event hub
func (s *Server) Hub() *WebSocketHub {
	return s.wsHub
}

// Run starts background workers without listening; Start calls it
func (s *Server) Run() {
	go s.wsHub.Run()
	if s.limiter != nil {
		s.limiter.StartCleanup(time.Minute, s.done)
	}
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	s.Run()

	s.log.Info("API server listening on http://%s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen: %w", err)
	}
	return nil
}

// Stop gracefully stops the server
func (s *Server) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() {
		close(s.done)
		s.wsHub.Stop()
	})
	return s.httpServer.Shutdown(ctx)
}

// --- Response helpers ---

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

// respondErr maps domain errors to HTTP status codes
func (s *Server) respondErr(w http.ResponseWriter, err error) {
	status := errorStatus(err)
	if status >= http.StatusInternalServerError {
		s.log.WithError(err).Error("request failed")
	}
	s.respondError(w, status, err.Error())
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, core.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, core.ErrItemNotFound), errors.Is(err, core.ErrEntryNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrInvalidInput), errors.Is(err, core.ErrMissingRequired):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads a bounded JSON body into v
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON: %v: %w", err, core.ErrInvalidInput)
	}
	return nil
}

// caller returns the identity a request acts as
func (s *Server) caller(r *http.Request) core.Identity {
	if id, ok := identity.CallerFrom(r.Context()); ok {
		return id
	}
	return s.platform.Anonymous()
}

// --- Handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.platform.Snapshot()
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":            "ok",
		"accounts":          snap.Accounts,
		"items":             snap.Items,
		"websocket_clients": s.wsHub.ClientCount(),
		"journal":           s.journal != nil,
	})
}
