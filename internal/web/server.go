// Package web serves the allocation and experiment management API over HTTP.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/emiliopalmerini/splitr/internal/adapters/prometheus"
	"github.com/emiliopalmerini/splitr/internal/experiment"
	"github.com/emiliopalmerini/splitr/internal/logging"
)

type Config struct {
	Addr            string
	CookieName      string
	CookieSecure    bool
	SessionTTL      time.Duration
	MetricsPath     string
	ShutdownTimeout time.Duration
}

type Server struct {
	cfg      Config
	engine   *experiment.Engine
	resolver *experiment.Resolver
	metrics  *prometheus.Recorder
	logger   *slog.Logger
	router   chi.Router
}

// NewServer wires the routes. metrics may be nil, in which case /metrics is
// not mounted.
func NewServer(cfg Config, engine *experiment.Engine, resolver *experiment.Resolver, metrics *prometheus.Recorder, logger *slog.Logger) *Server {
	if cfg.CookieName == "" {
		cfg.CookieName = "splitr_sid"
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:      cfg,
		engine:   engine,
		resolver: resolver,
		metrics:  metrics,
		logger:   logger,
		router:   chi.NewRouter(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := s.router

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
		r.Method(http.MethodGet, s.cfg.MetricsPath, s.metrics.Handler())
	} else {
		r.Use(prometheus.NoOpMiddleware)
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/allocate", s.handleAllocate)
		r.Post("/convert", s.handleConvert)
		r.Post("/assign", s.handleAssign)

		r.Route("/experiments", func(r chi.Router) {
			r.Get("/", s.handleListExperiments)
			r.Post("/", s.handleCreateExperiment)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetExperiment)
				r.Put("/", s.handleUpdateExperiment)
				r.Post("/start", s.handleStartExperiment)
				r.Post("/pause", s.handlePauseExperiment)
				r.Post("/stop", s.handleStopExperiment)
				r.Get("/results", s.handleResults)
			})
		})
	})
}

// requestLogger stores a request-scoped logger in the context so the
// engine's log lines carry the request id.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		logger := s.logger.With("request_id", middleware.GetReqID(r.Context()))
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r.WithContext(logging.WithLogger(r.Context(), logger)))

		logger.DebugContext(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start))
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("http server listening", "addr", s.cfg.Addr)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	s.logger.Info("shutting down http server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != http.ErrServerClosed {
		return err
	}
	return nil
}
