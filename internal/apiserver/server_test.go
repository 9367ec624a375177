package apiserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moolen/faultline/internal/analysis"
	"github.com/moolen/faultline/internal/analysis/analysistest"
	"github.com/moolen/faultline/internal/mcp"
	"github.com/moolen/faultline/internal/metrics"
	"github.com/moolen/faultline/internal/store"
)

type fixture struct {
	server  *Server
	store   *store.MemoryStore
	metrics *metrics.Metrics
}

func newFixture(t *testing.T, origins ...string) *fixture {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)

	st := store.NewMemoryStore(analysistest.ThreeUserCorpus()...)
	opts := analysis.DefaultOptions()
	opts.Metrics = m
	engine, err := analysis.NewEngine(st, opts)
	require.NoError(t, err)

	mcpServer, err := mcp.NewServer(engine, "test")
	require.NoError(t, err)

	s, err := New(Options{
		Port:        0,
		CORSOrigins: origins,
		Analytics:   engine,
		Readiness:   engine,
		Metrics:     m,
		Gatherer:    reg,
		MCPServer:   mcpServer.MCPServer(),
	})
	require.NoError(t, err)
	return &fixture{server: s, store: st, metrics: m}
}

func (f *fixture) do(t *testing.T, method, path string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestServer_Health(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}

func TestServer_Ready(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ready":true}`, rec.Body.String())

	f.store.SetError(errors.New("connection refused"))
	rec = f.do(t, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["ready"])
	assert.Contains(t, body["reason"], "connection refused")
}

func TestServer_AnalyticsRoute(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/ml/insights-summary", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var summary map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.EqualValues(t, 2, summary["total_users_analyzed"])
}

func TestServer_MethodNotAllowed(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/api/ml/user-risk-scores", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Contains(t, rec.Body.String(), "METHOD_NOT_ALLOWED")
}

func TestServer_CORS(t *testing.T) {
	tests := []struct {
		name    string
		origins []string
		origin  string
		want    string
	}{
		{name: "allowed origin", origins: []string{"http://localhost:3000"}, origin: "http://localhost:3000", want: "http://localhost:3000"},
		{name: "foreign origin", origins: []string{"http://localhost:3000"}, origin: "http://evil.test", want: ""},
		{name: "wildcard", origins: []string{"*"}, origin: "http://any.test", want: "*"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.origins...)
			rec := f.do(t, http.MethodOptions, "/api/ml/user-risk-scores", http.Header{"Origin": {tt.origin}})
			assert.Equal(t, http.StatusNoContent, rec.Code)
			assert.Equal(t, tt.want, rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestServer_RequestMetrics(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodGet, "/api/ml/user-risk-scores", nil)
	f.do(t, http.MethodGet, "/api/ml/similar-errors/999", nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(
		f.metrics.RequestsTotal.WithLabelValues("/api/ml/user-risk-scores", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(
		f.metrics.RequestsTotal.WithLabelValues("/api/ml/similar-errors/{id}", "404")))

	rec := f.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "faultline_http_requests_total")
	assert.Contains(t, rec.Body.String(), "faultline_analysis_runs_total")
}

func TestServer_MCPEndpoint(t *testing.T) {
	f := newFixture(t)
	body := `{"jsonrpc":"2.0","id":1,"method":"tools/list","params":{}}`

	req := httptest.NewRequest(http.MethodPost, "/v1/mcp", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "similar_errors")
}

func TestServer_StartStop(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.server.Start(context.Background()))

	_, port, err := net.SplitHostPort(f.server.Addr())
	require.NoError(t, err)

	resp, err := http.Get("http://127.0.0.1:" + port + "/health")
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, f.server.Stop(context.Background()))
	assert.Equal(t, "API Server", f.server.Name())
}
