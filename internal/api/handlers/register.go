package handlers

import (
	"net/http"

	"go.opentelemetry.io/otel/trace"

	"github.com/moolen/faultline/internal/logging"
)

// RegisterHandlers registers the analytics routes on the given router
func RegisterHandlers(
	router *http.ServeMux,
	analytics Analytics,
	logger *logging.Logger,
	tracer trace.Tracer,
	withMethod func(string, http.HandlerFunc) http.HandlerFunc,
) {
	ml := NewMLHandler(analytics, logger, tracer)

	router.HandleFunc("/api/ml/user-risk-scores", withMethod(http.MethodGet, ml.UserRiskScores))
	router.HandleFunc("/api/ml/similar-errors/{id}", withMethod(http.MethodGet, ml.SimilarErrors))
	router.HandleFunc("/api/ml/auto-categorize", withMethod(http.MethodGet, ml.AutoCategorize))
	router.HandleFunc("/api/ml/root-cause-suggestions", withMethod(http.MethodGet, ml.RootCauseSuggestions))
	router.HandleFunc("/api/ml/user-risk-heatmap", withMethod(http.MethodGet, ml.RiskHeatmap))
	router.HandleFunc("/api/ml/insights-summary", withMethod(http.MethodGet, ml.InsightsSummary))

	logger.Info("Registered analytics routes under /api/ml")
}
