package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/reactboard/internal/adapter/metrics"
	"github.com/pscheid92/reactboard/internal/domain"
)

// mappingReader is the read side of the mapping store exposed over HTTP.
type mappingReader interface {
	FindByReference(ctx context.Context, referenceID string) (*domain.BoardMapping, error)
	FindByCounter(ctx context.Context, counterID string) (*domain.BoardMapping, error)
	Count(ctx context.Context) (int64, error)
}

type Config struct {
	Port         string
	APIRate      float64 // requests per second per client IP
	APIBurst     int
	StoreTimeout time.Duration
}

type Server struct {
	echo   *echo.Echo
	config Config

	mappings       mappingReader
	metricsHandler http.Handler
	httpMetrics    *metrics.HTTPMetrics
	healthChecks   []HealthCheck
	startTime      time.Time
}

// NewServer wires routes. metricsHandler and httpMetrics may be nil.
func NewServer(cfg Config, mappings mappingReader, metricsHandler http.Handler, httpMetrics *metrics.HTTPMetrics, healthChecks []HealthCheck) *Server {
	if cfg.APIRate <= 0 {
		cfg.APIRate = 5
	}
	if cfg.APIBurst <= 0 {
		cfg.APIBurst = 10
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 5 * time.Second
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:           e,
		config:         cfg,
		mappings:       mappings,
		metricsHandler: metricsHandler,
		httpMetrics:    httpMetrics,
		healthChecks:   healthChecks,
		startTime:      time.Now(),
	}

	srv.registerRoutes()

	return srv
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// ServeHTTP exposes the router, mainly for tests.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}
