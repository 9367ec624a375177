package handlers

import (
	"context"
	"net/http"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apierrors "github.com/moolen/faultline/internal/api/errors"
	"github.com/moolen/faultline/internal/api/response"
	"github.com/moolen/faultline/internal/logging"
	"github.com/moolen/faultline/internal/models"
)

// Analytics is the set of operations served under /api/ml.
type Analytics interface {
	UserRiskScores(ctx context.Context) ([]models.UserRiskProfile, error)
	SimilarErrors(ctx context.Context, id int64, limit int) ([]models.SimilarityResult, error)
	DefaultSimilarLimit() int
	AutoCategorize(ctx context.Context) (*models.CategorizationResult, error)
	RootCauseSuggestions(ctx context.Context) ([]models.RootCauseSuggestion, error)
	RiskHeatmap(ctx context.Context) (models.RiskHeatmap, error)
	InsightsSummary(ctx context.Context) (models.InsightsSummary, error)
}

// MLHandler handles the /api/ml/* requests
type MLHandler struct {
	analytics Analytics
	logger    *logging.Logger
	tracer    trace.Tracer
}

// NewMLHandler creates a new handler
func NewMLHandler(analytics Analytics, logger *logging.Logger, tracer trace.Tracer) *MLHandler {
	return &MLHandler{
		analytics: analytics,
		logger:    logger,
		tracer:    tracer,
	}
}

// UserRiskScores handles GET /api/ml/user-risk-scores
func (h *MLHandler) UserRiskScores(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.startSpan(r, "ml.UserRiskScores")
	defer endSpan(span)

	profiles, err := h.analytics.UserRiskScores(ctx)
	h.respond(w, span, profiles, err)
}

// SimilarErrors handles GET /api/ml/similar-errors/{id}?limit=N
//
// A missing or malformed limit falls back to the default; a limit <= 0
// yields an empty list.
func (h *MLHandler) SimilarErrors(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.startSpan(r, "ml.SimilarErrors")
	defer endSpan(span)

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.respond(w, span, nil, apierrors.NewInvalidRequestError("invalid error id %q", r.PathValue("id")))
		return
	}

	limit := h.analytics.DefaultSimilarLimit()
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		} else {
			h.logger.Debug("Ignoring malformed limit %q, using %d", raw, limit)
		}
	}

	if span != nil {
		span.SetAttributes(
			attribute.Int64("anchor_id", id),
			attribute.Int("limit", limit),
		)
	}

	results, err := h.analytics.SimilarErrors(ctx, id, limit)
	h.respond(w, span, results, err)
}

// AutoCategorize handles GET /api/ml/auto-categorize
func (h *MLHandler) AutoCategorize(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.startSpan(r, "ml.AutoCategorize")
	defer endSpan(span)

	result, err := h.analytics.AutoCategorize(ctx)
	h.respond(w, span, result, err)
}

// RootCauseSuggestions handles GET /api/ml/root-cause-suggestions
func (h *MLHandler) RootCauseSuggestions(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.startSpan(r, "ml.RootCauseSuggestions")
	defer endSpan(span)

	result, err := h.analytics.RootCauseSuggestions(ctx)
	h.respond(w, span, result, err)
}

// RiskHeatmap handles GET /api/ml/user-risk-heatmap
func (h *MLHandler) RiskHeatmap(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.startSpan(r, "ml.RiskHeatmap")
	defer endSpan(span)

	result, err := h.analytics.RiskHeatmap(ctx)
	h.respond(w, span, result, err)
}

// InsightsSummary handles GET /api/ml/insights-summary
func (h *MLHandler) InsightsSummary(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.startSpan(r, "ml.InsightsSummary")
	defer endSpan(span)

	result, err := h.analytics.InsightsSummary(ctx)
	h.respond(w, span, result, err)
}

func (h *MLHandler) startSpan(r *http.Request, name string) (context.Context, trace.Span) {
	ctx := r.Context()
	if h.tracer == nil {
		return ctx, nil
	}
	return h.tracer.Start(ctx, name)
}

func endSpan(span trace.Span) {
	if span != nil {
		span.End()
	}
}

func (h *MLHandler) respond(w http.ResponseWriter, span trace.Span, data interface{}, err error) {
	if err != nil {
		if span != nil {
			span.RecordError(err)
		}
		apiErr := apierrors.FromError(err)
		if apiErr.HTTPStatus >= http.StatusInternalServerError {
			h.logger.Error("ML request failed: %v", err)
		}
		response.WriteError(w, apiErr.HTTPStatus, string(apiErr.Code), apiErr.Message)
		return
	}
	_ = response.WriteSuccess(w, data)
}
