package apiserver

import (
	"context"
	"net/http"

	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/moolen/faultline/internal/api/handlers"
	"github.com/moolen/faultline/internal/api/response"
)

func (s *Server) registerHandlers() {
	handlers.RegisterHandlers(s.router, s.analytics, s.logger, s.tracer, s.withMethod)

	s.router.HandleFunc("/health", s.withMethod(http.MethodGet, s.handleHealth))
	s.router.HandleFunc("/ready", s.withMethod(http.MethodGet, s.handleReady))

	if s.gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	s.registerMCPHandler()
}

func (s *Server) registerMCPHandler() {
	if s.mcpServer == nil {
		return
	}
	endpoint := "/v1/mcp"
	streamable := server.NewStreamableHTTPServer(s.mcpServer,
		server.WithEndpointPath(endpoint),
		server.WithStateLess(true),
	)
	s.router.Handle(endpoint, streamable)
	s.logger.Info("MCP endpoint registered at %s", endpoint)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = response.WriteSuccess(w, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.readiness == nil {
		_ = response.WriteSuccess(w, map[string]interface{}{"ready": true})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.readinessTimeout)
	defer cancel()

	if err := s.readiness.Ready(ctx); err != nil {
		s.logger.Warn("Readiness check failed: %v", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = response.WriteJSON(w, map[string]interface{}{
			"ready":  false,
			"reason": err.Error(),
		})
		return
	}
	_ = response.WriteSuccess(w, map[string]interface{}{"ready": true})
}
