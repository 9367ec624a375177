package correlation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moolen/faultline/internal/analysis/analysistest"
	"github.com/moolen/faultline/internal/analysis/clustering"
	"github.com/moolen/faultline/internal/analysis/features"
	"github.com/moolen/faultline/internal/analysis/risk"
	"github.com/moolen/faultline/internal/analysis/similarity"
	"github.com/moolen/faultline/internal/config"
	"github.com/moolen/faultline/internal/logprocessing"
	"github.com/moolen/faultline/internal/models"
)

func extract(records []models.ErrorRecord) *features.FeatureSet {
	return features.NewExtractor(logprocessing.DefaultDrainConfig(), []string{"", "Unknown"}).Extract(records)
}

func newSynthesizer() *Synthesizer {
	p := config.DefaultPolicy()
	return NewSynthesizer(p.SeverityWeights, p.Correlation)
}

func cluster(name string, sev models.Severity, records ...models.ErrorRecord) models.ErrorCluster {
	ids := make([]int64, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	return models.ErrorCluster{
		Name:   name,
		Count:  len(records),
		Errors: ids,
		CommonPatterns: models.CommonPatterns{
			DominantType:   name,
			CommonSeverity: sev,
			FirstSeen:      records[0].Timestamp,
			LastSeen:       records[len(records)-1].Timestamp,
		},
	}
}

func TestConfidence_MonotoneAndBounded(t *testing.T) {
	s := newSynthesizer()

	assert.Equal(t, 0.0, s.Confidence(0))
	assert.Equal(t, 0.632, s.Confidence(5))

	prev := 0.0
	for n := 1; n <= 2000; n++ {
		c := s.Confidence(n)
		assert.GreaterOrEqual(t, c, prev, "n=%d", n)
		assert.LessOrEqual(t, c, 1.0, "n=%d", n)
		prev = c
	}
}

func TestSuggestRootCauses_ClusterPatterns(t *testing.T) {
	rec := analysistest.Record
	crit, high, med, low := models.SeverityCritical, models.SeverityHigh, models.SeverityMedium, models.SeverityLow

	burst := []models.ErrorRecord{
		rec(1, "DbDown", "a", crit, 0, "database unavailable"),
		rec(2, "DbDown", "b", crit, 2*time.Minute, "database unavailable"),
		rec(3, "DbDown", "c", crit, 4*time.Minute, "database unavailable"),
		rec(4, "DbDown", "d", crit, 6*time.Minute, "database unavailable"),
	}
	concentrated := []models.ErrorRecord{
		rec(5, "FormError", "u", high, 0, "invalid form"),
		rec(6, "FormError", "u", high, 2*time.Hour, "invalid form"),
		rec(7, "FormError", "u", high, 4*time.Hour, "invalid form"),
		rec(8, "FormError", "v", high, 6*time.Hour, "invalid form"),
	}
	timeBurst := []models.ErrorRecord{
		rec(9, "Throttled", "x", high, time.Hour, "rate limited"),
		rec(10, "Throttled", "y", high, time.Hour+time.Minute, "rate limited"),
		rec(11, "Throttled", "z", high, time.Hour+2*time.Minute, "rate limited"),
	}
	widespread := []models.ErrorRecord{
		rec(12, "CacheMiss", "p", med, 0, "cache miss"),
		rec(13, "CacheMiss", "q", med, 2*time.Hour, "cache miss"),
		rec(14, "CacheMiss", "r", med, 4*time.Hour, "cache miss"),
	}
	recurring := []models.ErrorRecord{
		rec(15, "Deprecated", "Unknown", low, 0, "deprecated call"),
		rec(16, "Deprecated", "", low, 2*time.Hour, "deprecated call"),
	}

	var all []models.ErrorRecord
	for _, group := range [][]models.ErrorRecord{burst, concentrated, timeBurst, widespread, recurring} {
		all = append(all, group...)
	}
	fs := extract(all)
	cat := &models.CategorizationResult{
		Categories: map[string]models.ErrorCluster{
			"Category_1": cluster("DbDown", crit, burst...),
			"Category_2": cluster("FormError", high, concentrated...),
			"Category_3": cluster("Throttled", high, timeBurst...),
			"Category_4": cluster("CacheMiss", med, widespread...),
			"Category_5": cluster("Deprecated", low, recurring...),
		},
		TotalClusters: 5,
	}

	got := newSynthesizer().SuggestRootCauses(fs, cat, nil)
	require.Len(t, got, 5)

	ids := make([]string, len(got))
	for i, s := range got {
		ids[i] = s.ID
	}
	assert.Equal(t, []string{
		"critical_burst:Category_1",
		"user_concentration:Category_2",
		"time_burst:Category_3",
		"widespread:Category_4",
		"recurring_pattern:Category_5",
	}, ids)

	assert.Equal(t, "Recurring failure concentrated on user u", got[1].Title)
	assert.Equal(t, "3/4 'FormError' errors come from u", got[1].Description)
	assert.Equal(t, []string{"u", "v"}, got[1].AffectedUsers)
	assert.Equal(t, "Error burst detected: 3 'Throttled' errors within 30 minutes", got[2].Title)
	assert.Empty(t, got[4].AffectedUsers)
	for _, s := range got {
		assert.Equal(t, s.ErrorCount, cat.Categories[s.Category].Count)
		assert.Equal(t, newSynthesizer().Confidence(s.ErrorCount), s.Confidence)
	}
}

func TestSuggestRootCauses_HighRiskUsers(t *testing.T) {
	p := config.DefaultPolicy()
	fs := extract(analysistest.ThreeUserCorpus())
	profiles := risk.NewScorer(p.SeverityWeights, p.Risk).Score(fs)
	cat, err := clustering.NewEngine(similarity.NewEngine(p.Similarity), p.Clustering, p.SeverityWeights, p.Correlation.BurstWindow).
		Categorize(context.Background(), fs)
	require.NoError(t, err)

	got := newSynthesizer().SuggestRootCauses(fs, cat, profiles)

	var users []string
	for _, s := range got {
		if s.Type == TypeHighRiskUser {
			users = append(users, s.AffectedUsers...)
			assert.Equal(t, "high_risk_user:A", s.ID)
			assert.Equal(t, 10, s.ErrorCount)
		}
	}
	assert.Equal(t, []string{"A"}, users)
	assert.LessOrEqual(t, len(got), p.Correlation.MaxSuggestions)
}

func TestSuggestRootCauses_TypeCorrelation(t *testing.T) {
	rec := analysistest.Record
	day := 24 * time.Hour
	var records []models.ErrorRecord
	for d := 0; d < 3; d++ {
		off := time.Duration(d) * day
		records = append(records,
			rec(int64(10*d+1), "LoginFailed", "k", models.SeverityHigh, off, "login failed"),
			rec(int64(10*d+2), "SessionLost", "k", models.SeverityHigh, off+time.Hour, "session lost"),
		)
	}
	// same pair only twice for another user
	records = append(records,
		rec(100, "Alpha", "m", models.SeverityLow, 0, "a"),
		rec(101, "Beta", "m", models.SeverityLow, 0, "b"),
		rec(102, "Alpha", "m", models.SeverityLow, day, "a"),
		rec(103, "Beta", "m", models.SeverityLow, day, "b"),
	)

	got := newSynthesizer().SuggestRootCauses(extract(records), &models.CategorizationResult{}, nil)
	require.Len(t, got, 1)
	assert.Equal(t, "type_correlation:LoginFailed|SessionLost", got[0].ID)
	assert.Equal(t, 3, got[0].ErrorCount)
	assert.Equal(t, "These error types co-occurred 3 times (strength 1.00)", got[0].Description)
	assert.Equal(t, []string{"k"}, got[0].AffectedUsers)
}

func TestSuggestRootCauses_Capped(t *testing.T) {
	p := config.DefaultPolicy()
	p.Correlation.MaxSuggestions = 1
	s := NewSynthesizer(p.SeverityWeights, p.Correlation)

	profiles := []models.UserRiskProfile{
		{User: "b", Category: models.RiskHigh, TotalErrors: 4},
		{User: "a", Category: models.RiskHigh, TotalErrors: 4},
		{User: "c", Category: models.RiskLow, TotalErrors: 40},
	}
	got := s.SuggestRootCauses(extract(nil), nil, profiles)
	require.Len(t, got, 1)
	assert.Equal(t, "high_risk_user:a", got[0].ID)
}

func TestSummarize(t *testing.T) {
	s := newSynthesizer()
	profiles := []models.UserRiskProfile{
		{User: "a", Category: models.RiskHigh},
		{User: "b", Category: models.RiskLow},
		{User: "c", Category: models.RiskMinimal},
	}
	cat := &models.CategorizationResult{
		TotalClusters: 4,
		Outliers:      2,
		Suggestions: []models.CategorySuggestion{
			{Category: "A"}, {Category: "B"}, {Category: "C"}, {Category: "D"}, {Category: clustering.UniqueErrors},
		},
	}
	roots := []models.RootCauseSuggestion{
		{ID: "x:2", Confidence: 0.5, ErrorCount: 3},
		{ID: "x:1", Confidence: 0.5, ErrorCount: 3},
		{ID: "x:3", Confidence: 0.9, ErrorCount: 12},
		{ID: "x:4", Confidence: 0.5, ErrorCount: 4},
	}

	sum := s.Summarize(profiles, cat, roots)
	assert.Equal(t, 3, sum.TotalUsersAnalyzed)
	assert.Equal(t, 1, sum.HighRiskUsers)
	assert.Equal(t, 33.3, sum.RiskPercentage)
	assert.Equal(t, 4, sum.TotalCategoriesFound)
	assert.Equal(t, 2, sum.OutlierErrors)
	assert.Equal(t, 9, sum.InsightsGenerated)
	require.Len(t, sum.TopCorrelations, 3)
	assert.Equal(t, "x:3", sum.TopCorrelations[0].ID)
	assert.Equal(t, "x:4", sum.TopCorrelations[1].ID)
	assert.Equal(t, "x:1", sum.TopCorrelations[2].ID)
	assert.Equal(t, []models.CategorySuggestion{{Category: "A"}, {Category: "B"}, {Category: "C"}}, sum.CategorizationSuggestions)
	assert.Equal(t, "x:2", roots[0].ID, "input must not be reordered")
}

func TestSummarize_Empty(t *testing.T) {
	sum := newSynthesizer().Summarize(nil, &models.CategorizationResult{}, nil)

	assert.Equal(t, models.InsightsSummary{
		TopCorrelations:           []models.RootCauseSuggestion{},
		CategorizationSuggestions: []models.CategorySuggestion{},
	}, sum)
}
