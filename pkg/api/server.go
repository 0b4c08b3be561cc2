// Package api is the daemon's small HTTP surface: a liveness/health
// aggregation endpoint and a Prometheus-format /metrics dump, grounded on
// the teacher's pkg/api/server.go Set*-wiring + ValidateWiring idiom
// (§4.Q, SPEC_FULL).
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/merlya/merlya-core/pkg/resilience"
	"github.com/merlya/merlya-core/pkg/sentinel"
)

// Server is the daemon's HTTP API server.
type Server struct {
	echo       *echo.Echo
	httpServer *http.Server

	metrics  *resilience.Metrics
	sentinel *sentinel.Sentinel // nil until set
	checker  func(ctx context.Context) error // nil until set; e.g. conversation store ping
}

// NewServer creates an API server backed by metrics. Other dependencies
// are wired via Set* methods before Start, mirroring the teacher's
// incremental-wiring pattern.
func NewServer(metrics *resilience.Metrics) *Server {
	e := echo.New()
	e.Use(middleware.Recover())

	s := &Server{echo: e, metrics: metrics}
	s.setupRoutes()
	return s
}

// SetSentinel wires the Sentinel instance the health endpoint reports on.
func (s *Server) SetSentinel(sent *sentinel.Sentinel) { s.sentinel = sent }

// SetHealthChecker wires an additional dependency health probe (e.g. the
// conversation store's DB ping) into the /health aggregation.
func (s *Server) SetHealthChecker(fn func(ctx context.Context) error) { s.checker = fn }

// ValidateWiring checks that all required dependencies were set via their
// Set* methods, catching wiring gaps at startup rather than as 503s at
// request time, per the teacher's Server.ValidateWiring pattern.
func (s *Server) ValidateWiring() error {
	var errs []error
	if s.sentinel == nil {
		errs = append(errs, fmt.Errorf("sentinel not set (call SetSentinel)"))
	}
	if len(errs) == 0 {
		return nil
	}
	joined := errs[0]
	for _, e := range errs[1:] {
		joined = fmt.Errorf("%w; %w", joined, e)
	}
	return joined
}

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthHandler)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{})))
}

type healthResponse struct {
	Status    string            `json:"status"`
	Sentinel  string            `json:"sentinel,omitempty"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

func (s *Server) healthHandler(c echo.Context) error {
	resp := healthResponse{Status: "ok", Timestamp: time.Now(), Checks: map[string]string{}}

	if s.sentinel != nil {
		resp.Sentinel = string(s.sentinel.Status())
		if resp.Sentinel == string(sentinel.StatusError) {
			resp.Status = "degraded"
		}
	}

	if s.checker != nil {
		if err := s.checker(c.Request().Context()); err != nil {
			resp.Checks["dependency"] = err.Error()
			resp.Status = "degraded"
		} else {
			resp.Checks["dependency"] = "ok"
		}
	}

	code := http.StatusOK
	if resp.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, resp)
}

// Start runs the server on addr until the context is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.echo}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpServer.Shutdown(shutdownCtx)
	}()
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}
