package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/moolen/faultline/internal/analysis/risk"
	"github.com/moolen/faultline/internal/config"
	"github.com/moolen/faultline/internal/logging"
	"github.com/moolen/faultline/internal/metrics"
	"github.com/moolen/faultline/internal/models"
	"github.com/moolen/faultline/internal/store"
)

const tracerName = "github.com/moolen/faultline/internal/analysis"

// Options configures an Engine.
type Options struct {
	Policy       config.Policy
	CacheSize    int
	StoreTimeout time.Duration
	Metrics      *metrics.Metrics
	Tracer       trace.Tracer
}

// DefaultOptions returns options with the default policy.
func DefaultOptions() Options {
	return Options{
		Policy:       config.DefaultPolicy(),
		CacheSize:    32,
		StoreTimeout: 5 * time.Second,
	}
}

// Engine serves the analytics operations over a store. It is safe for
// concurrent use.
type Engine struct {
	store        store.Store
	pipe         atomic.Pointer[pipeline]
	version      atomic.Uint64
	cache        *ReportCache
	storeTimeout time.Duration
	metrics      *metrics.Metrics
	tracer       trace.Tracer
	logger       *logging.Logger
	now          func() time.Time
}

// NewEngine creates an engine reading from s.
func NewEngine(s store.Store, opts Options) (*Engine, error) {
	if err := opts.Policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid policy: %w", err)
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Nop()
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer(tracerName)
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = DefaultOptions().StoreTimeout
	}

	cache, err := NewReportCache(opts.CacheSize, opts.Metrics)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		store:        s,
		cache:        cache,
		storeTimeout: opts.StoreTimeout,
		metrics:      opts.Metrics,
		tracer:       opts.Tracer,
		logger:       logging.GetLogger("analysis"),
		now:          time.Now,
	}
	e.pipe.Store(newPipeline(e.version.Add(1), opts.Policy))
	return e, nil
}

// Policy returns the active policy.
func (e *Engine) Policy() config.Policy {
	return e.pipe.Load().policy
}

// SetPolicy validates p and makes it the active policy. Cached results of
// the previous policy are dropped.
func (e *Engine) SetPolicy(p config.Policy) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("invalid policy: %w", err)
	}
	next := newPipeline(e.version.Add(1), p)
	e.pipe.Store(next)
	e.cache.Purge()
	e.logger.Info("Analysis policy updated (version %d)", next.version)
	return nil
}

// Ready reports whether the store can be reached.
func (e *Engine) Ready(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, e.storeTimeout)
	defer cancel()
	if err := e.store.Ping(ctx); err != nil {
		return upstreamError(err)
	}
	return nil
}

// Analyze returns the full report of the current snapshot. The returned
// report is shared and must not be modified.
func (e *Engine) Analyze(ctx context.Context) (*models.Report, error) {
	ctx, span := e.tracer.Start(ctx, "analysis.Analyze")
	defer span.End()

	state, err := e.load(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	report, err := e.report(ctx, state)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(
		attribute.String("run_id", report.RunID),
		attribute.Int("records", report.RecordCount),
	)
	return report, nil
}

// UserRiskScores returns one profile per profiled user, highest risk first.
func (e *Engine) UserRiskScores(ctx context.Context) ([]models.UserRiskProfile, error) {
	r, err := e.Analyze(ctx)
	if err != nil {
		return nil, err
	}
	return r.Profiles, nil
}

// SimilarErrors returns up to limit errors most similar to the error with
// the given ID. An unknown ID yields models.ErrNotFound.
func (e *Engine) SimilarErrors(ctx context.Context, id int64, limit int) ([]models.SimilarityResult, error) {
	ctx, span := e.tracer.Start(ctx, "analysis.SimilarErrors",
		trace.WithAttributes(attribute.Int64("anchor_id", id), attribute.Int("limit", limit)))
	defer span.End()

	state, err := e.load(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	results, err := state.pipe.similarity.Similar(state.features, id, limit)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return results, nil
}

// DefaultSimilarLimit is the neighbour count used when none is requested.
func (e *Engine) DefaultSimilarLimit() int {
	return e.Policy().Similarity.DefaultLimit
}

// AutoCategorize returns the clusters and outliers of the corpus.
func (e *Engine) AutoCategorize(ctx context.Context) (*models.CategorizationResult, error) {
	r, err := e.Analyze(ctx)
	if err != nil {
		return nil, err
	}
	return r.Categorization, nil
}

// RootCauseSuggestions returns the ranked root-cause suggestions.
func (e *Engine) RootCauseSuggestions(ctx context.Context) ([]models.RootCauseSuggestion, error) {
	r, err := e.Analyze(ctx)
	if err != nil {
		return nil, err
	}
	return r.RootCauses, nil
}

// RiskHeatmap returns the heatmap view of all risk profiles.
func (e *Engine) RiskHeatmap(ctx context.Context) (models.RiskHeatmap, error) {
	r, err := e.Analyze(ctx)
	if err != nil {
		return models.RiskHeatmap{}, err
	}
	return r.Heatmap, nil
}

// InsightsSummary returns the aggregate insight digest.
func (e *Engine) InsightsSummary(ctx context.Context) (models.InsightsSummary, error) {
	r, err := e.Analyze(ctx)
	if err != nil {
		return models.InsightsSummary{}, err
	}
	return r.Summary, nil
}

// load reads a snapshot and returns its cached or freshly extracted state.
func (e *Engine) load(ctx context.Context) (*snapshotState, error) {
	sctx, cancel := context.WithTimeout(ctx, e.storeTimeout)
	snap, err := e.store.Snapshot(sctx)
	cancel()
	if err != nil {
		e.metrics.StoreErrors.Inc()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		e.logger.Error("Failed to read error records: %v", err)
		return nil, upstreamError(err)
	}

	pipe := e.pipe.Load()
	key := cacheKey(snap.Fingerprint(), pipe.version)
	if state, ok := e.cache.get(key); ok {
		return state, nil
	}

	start := time.Now()
	fs := pipe.extractor.Extract(snap.Records)
	e.metrics.StageDuration.WithLabelValues("features").Observe(time.Since(start).Seconds())
	e.metrics.RecordsAnalyzed.Set(float64(fs.Len()))
	e.metrics.RecordsExcluded.Set(float64(len(snap.Diagnostics)))

	return e.cache.add(&snapshotState{
		key:      key,
		snapshot: snap,
		pipe:     pipe,
		features: fs,
	}), nil
}

// report computes the full report of state once. Risk scoring and
// clustering run in parallel; correlation joins on both.
func (e *Engine) report(ctx context.Context, state *snapshotState) (*models.Report, error) {
	state.mu.Lock()
	defer state.mu.Unlock()
	if state.report != nil {
		return state.report, nil
	}

	start := time.Now()
	pipe, fs := state.pipe, state.features

	var profiles []models.UserRiskProfile
	var categorization *models.CategorizationResult

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t := time.Now()
		profiles = pipe.scorer.Score(fs)
		e.metrics.StageDuration.WithLabelValues("risk").Observe(time.Since(t).Seconds())
		return gctx.Err()
	})
	g.Go(func() error {
		t := time.Now()
		var err error
		categorization, err = pipe.clustering.Categorize(gctx, fs)
		e.metrics.StageDuration.WithLabelValues("clustering").Observe(time.Since(t).Seconds())
		return err
	})
	if err := g.Wait(); err != nil {
		e.metrics.RunsTotal.WithLabelValues(outcome(err)).Inc()
		if errors.Is(err, models.ErrInvariantViolation) {
			e.logger.Error("Analysis aborted: %v", err)
		}
		return nil, fmt.Errorf("analysis failed: %w", err)
	}

	t := time.Now()
	rootCauses := pipe.correlation.SuggestRootCauses(fs, categorization, profiles)
	summary := pipe.correlation.Summarize(profiles, categorization, rootCauses)
	e.metrics.StageDuration.WithLabelValues("correlation").Observe(time.Since(t).Seconds())

	if err := ctx.Err(); err != nil {
		e.metrics.RunsTotal.WithLabelValues(outcome(err)).Inc()
		return nil, err
	}

	report := &models.Report{
		RunID:          uuid.NewString(),
		GeneratedAt:    e.now().UTC(),
		Fingerprint:    state.snapshot.Fingerprint(),
		RecordCount:    fs.Len(),
		Diagnostics:    state.snapshot.Diagnostics,
		Profiles:       profiles,
		Categorization: categorization,
		RootCauses:     rootCauses,
		Heatmap:        risk.BuildHeatmap(profiles),
		Summary:        summary,
	}
	state.report = report

	e.metrics.RunsTotal.WithLabelValues("ok").Inc()
	e.metrics.RunDuration.Observe(time.Since(start).Seconds())
	e.logger.InfoWithFields("Analysis complete",
		logging.Field("run_id", report.RunID),
		logging.Field("records", report.RecordCount),
		logging.Field("users", len(profiles)),
		logging.Field("categories", categorization.TotalClusters),
		logging.Field("duration", time.Since(start).String()))
	return report, nil
}

func upstreamError(err error) error {
	if errors.Is(err, models.ErrUpstreamUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", models.ErrUpstreamUnavailable, err)
}

func outcome(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	case errors.Is(err, models.ErrInvariantViolation):
		return "invariant_violation"
	default:
		return "error"
	}
}
