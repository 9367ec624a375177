package apiserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/moolen/faultline/internal/api/handlers"
	"github.com/moolen/faultline/internal/logging"
	"github.com/moolen/faultline/internal/metrics"
)

// ReadinessChecker reports whether the server can answer analytics requests.
type ReadinessChecker interface {
	Ready(ctx context.Context) error
}

// Options configures the API server.
type Options struct {
	Port        int
	CORSOrigins []string
	Analytics   handlers.Analytics
	Readiness   ReadinessChecker
	Metrics     *metrics.Metrics
	// Gatherer backs /metrics; nil disables the endpoint
	Gatherer  prometheus.Gatherer
	Tracer    trace.Tracer
	MCPServer *server.MCPServer
	// ReadinessTimeout bounds a single /ready probe
	ReadinessTimeout time.Duration
}

// Server handles HTTP API and MCP requests
type Server struct {
	port             int
	server           *http.Server
	listener         net.Listener
	logger           *logging.Logger
	router           *http.ServeMux
	analytics        handlers.Analytics
	readiness        ReadinessChecker
	readinessTimeout time.Duration
	metrics          *metrics.Metrics
	gatherer         prometheus.Gatherer
	tracer           trace.Tracer
	mcpServer        *server.MCPServer
	corsOrigins      map[string]bool
	allowAnyOrigin   bool
}

// New creates the API server and registers its routes.
func New(opts Options) (*Server, error) {
	if opts.Analytics == nil {
		return nil, fmt.Errorf("analytics must not be nil")
	}
	if opts.Port < 0 || opts.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d", opts.Port)
	}

	s := &Server{
		port:             opts.Port,
		logger:           logging.GetLogger("api"),
		router:           http.NewServeMux(),
		analytics:        opts.Analytics,
		readiness:        opts.Readiness,
		readinessTimeout: opts.ReadinessTimeout,
		metrics:          opts.Metrics,
		gatherer:         opts.Gatherer,
		tracer:           opts.Tracer,
		mcpServer:        opts.MCPServer,
		corsOrigins:      make(map[string]bool),
	}
	if s.metrics == nil {
		s.metrics = metrics.Nop()
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer("faultline.api")
	}
	if s.readinessTimeout <= 0 {
		s.readinessTimeout = 2 * time.Second
	}
	for _, origin := range opts.CORSOrigins {
		if origin == "*" {
			s.allowAnyOrigin = true
			continue
		}
		s.corsOrigins[origin] = true
	}

	s.registerHandlers()
	s.configureHTTPServer()
	return s, nil
}

func (s *Server) configureHTTPServer() {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// Handler returns the fully wrapped router.
func (s *Server) Handler() http.Handler {
	return s.metricsMiddleware(s.corsMiddleware(s.router))
}

// Start implements lifecycle.Component. It binds the port synchronously so
// a taken port fails startup, then serves in the background.
func (s *Server) Start(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.server.Addr, err)
	}
	s.listener = ln

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error: %v", err)
		}
	}()

	s.logger.Info("API server listening on %s", ln.Addr())
	return nil
}

// Stop implements lifecycle.Component
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server...")

	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error: %v", err)
		return err
	}
	s.logger.Info("API server stopped")
	return nil
}

// Name implements lifecycle.Component
func (s *Server) Name() string {
	return "API Server"
}

// Addr returns the bound address once Start has run.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.server.Addr
	}
	return s.listener.Addr().String()
}
