package httpserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/reactboard/internal/domain"
)

type mockMappingReader struct {
	findByReferenceFn func(ctx context.Context, referenceID string) (*domain.BoardMapping, error)
	findByCounterFn   func(ctx context.Context, counterID string) (*domain.BoardMapping, error)
	countFn           func(ctx context.Context) (int64, error)
}

func (m *mockMappingReader) FindByReference(ctx context.Context, referenceID string) (*domain.BoardMapping, error) {
	if m.findByReferenceFn != nil {
		return m.findByReferenceFn(ctx, referenceID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockMappingReader) FindByCounter(ctx context.Context, counterID string) (*domain.BoardMapping, error) {
	if m.findByCounterFn != nil {
		return m.findByCounterFn(ctx, counterID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockMappingReader) Count(ctx context.Context) (int64, error) {
	if m.countFn != nil {
		return m.countFn(ctx)
	}
	return 0, errors.New("not implemented")
}

func newTestServer(t *testing.T, mappings mappingReader, opts ...func(*Server)) *Server {
	t.Helper()

	srv := &Server{
		echo:      echo.New(),
		config:    Config{Port: "0", APIRate: 100, APIBurst: 100, StoreTimeout: time.Second},
		mappings:  mappings,
		startTime: time.Now(),
	}

	for _, opt := range opts {
		opt(srv)
	}

	srv.registerRoutes()
	return srv
}

func withHealthChecks(checks ...HealthCheck) func(*Server) {
	return func(s *Server) {
		s.healthChecks = checks
	}
}

func withMetricsHandler(h http.Handler) func(*Server) {
	return func(s *Server) {
		s.metricsHandler = h
	}
}

func withAPIRate(perSecond float64, burst int) func(*Server) {
	return func(s *Server) {
		s.config.APIRate = perSecond
		s.config.APIBurst = burst
	}
}

// serve runs a request through the full router, middleware included.
func serve(srv *Server, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	req.RemoteAddr = testRemoteAddr
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}
