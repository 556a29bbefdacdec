package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/solcial/pulse/internal/analytics"
	"github.com/solcial/pulse/internal/api"
	"github.com/solcial/pulse/internal/config"
	"github.com/solcial/pulse/internal/prefs"
)

// Server exposes the analytics coordinator over HTTP
type Server struct {
	coordinator *analytics.Coordinator
	provider    api.Provider
	exporter    api.Exporter
	prefs       *prefs.Store
	config      *config.Config
	version     string
	log         zerolog.Logger
}

// NewServer creates a new server
func NewServer(coordinator *analytics.Coordinator, provider api.Provider, exporter api.Exporter, store *prefs.Store, cfg *config.Config, version string, logger zerolog.Logger) *Server {
	return &Server{
		coordinator: coordinator,
		provider:    provider,
		exporter:    exporter,
		prefs:       store,
		config:      cfg,
		version:     version,
		log:         logger,
	}
}

// routes builds the request handler with the full middleware chain applied
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", s.HandleHealth)

	// API routes
	mux.HandleFunc("/api/analytics", s.HandleAnalytics)
	mux.HandleFunc("/api/analytics/refresh", s.HandleRefresh)
	mux.HandleFunc("/api/analytics/comparison", s.HandleToggleComparison)
	mux.HandleFunc("/api/analytics/presets", s.HandlePresets)
	mux.HandleFunc("/api/analytics/metric", s.HandleMetric)
	mux.HandleFunc("/api/export", s.HandleExport)
	mux.HandleFunc("/api/export/progress", s.HandleExportProgress)
	mux.HandleFunc("/api/prefs", s.HandlePrefs)

	limiter := NewRateLimiter(s.config.RateLimitPerSecond, s.config.RateLimitBurst)
	limiter.StartPeriodicCleanup(time.Hour)

	// Order matters: Recovery -> RequestID -> Logger -> RateLimit -> RequestSizeLimit -> CORS -> handlers
	return s.Recovery(RequestID(s.Logger(limiter.Middleware(RequestSizeLimit(CORS(s.config.CORSAllowedOrigin)(mux))))))
}

// Run starts the HTTP server with graceful shutdown
func (s *Server) Run() error {
	addr := fmt.Sprintf(":%d", s.config.ListenPort)

	server := &http.Server{
		Addr:         addr,
		Handler:      s.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Run server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Str("version", s.version).Msg("server is ready to handle requests")
		serverErrors <- server.ListenAndServe()
	}()

	// Setup graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		s.log.Info().Str("signal", sig.String()).Msg("starting graceful shutdown")

		// Give outstanding requests 30 seconds to complete
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		s.log.Info().Msg("server stopped gracefully")
		return nil
	}
}
