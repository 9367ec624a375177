// Package correlation turns categories and risk profiles into ranked
// root-cause suggestions and the insights summary.
package correlation

import (
	"math"
	"sort"

	"github.com/moolen/faultline/internal/analysis/features"
	"github.com/moolen/faultline/internal/config"
	"github.com/moolen/faultline/internal/models"
)

// Suggestion types.
const (
	TypeCriticalBurst     = "critical_burst"
	TypeUserConcentration = "user_concentration"
	TypeTimeBurst         = "time_burst"
	TypeWidespread        = "widespread"
	TypeRecurring         = "recurring_pattern"
	TypeHighRiskUser      = "high_risk_user"
	TypeTypeCorrelation   = "type_correlation"
)

// Synthesizer derives root-cause suggestions.
type Synthesizer struct {
	severity config.SeverityWeights
	policy   config.CorrelationPolicy
}

// NewSynthesizer creates a synthesizer.
func NewSynthesizer(severity config.SeverityWeights, policy config.CorrelationPolicy) *Synthesizer {
	return &Synthesizer{severity: severity, policy: policy}
}

type ranked struct {
	models.RootCauseSuggestion
	key float64
}

// SuggestRootCauses returns at most MaxSuggestions suggestions ranked by
// error_count x (1 + severity weight) descending, then by ID.
func (s *Synthesizer) SuggestRootCauses(fs *features.FeatureSet, cat *models.CategorizationResult, profiles []models.UserRiskProfile) []models.RootCauseSuggestion {
	var all []ranked
	if cat != nil {
		for _, key := range cat.CategoryKeys() {
			cluster, ok := cat.Categories[key]
			if !ok {
				continue
			}
			all = append(all, s.clusterSuggestion(fs, key, cluster))
		}
	}
	for _, p := range profiles {
		if p.Category == models.RiskHigh {
			all = append(all, s.userSuggestion(p))
		}
	}
	all = append(all, s.typeCorrelations(fs)...)

	sort.Slice(all, func(i, j int) bool {
		if all[i].key != all[j].key {
			return all[i].key > all[j].key
		}
		return all[i].ID < all[j].ID
	})
	if len(all) > s.policy.MaxSuggestions {
		all = all[:s.policy.MaxSuggestions]
	}

	out := make([]models.RootCauseSuggestion, len(all))
	for i := range all {
		out[i] = all[i].RootCauseSuggestion
	}
	return out
}

// Confidence maps supporting evidence to [0,1). It is non-decreasing in
// errorCount and never exceeds 1.
func (s *Synthesizer) Confidence(errorCount int) float64 {
	if errorCount <= 0 {
		return 0
	}
	c := 1 - math.Exp(-float64(errorCount)/s.policy.ConfidenceScale)
	return math.Min(1, math.Round(c*1000)/1000)
}

// Summarize aggregates profiles, categories and root causes.
func (s *Synthesizer) Summarize(profiles []models.UserRiskProfile, cat *models.CategorizationResult, rootCauses []models.RootCauseSuggestion) models.InsightsSummary {
	summary := models.InsightsSummary{
		TotalUsersAnalyzed:        len(profiles),
		TopCorrelations:           []models.RootCauseSuggestion{},
		CategorizationSuggestions: []models.CategorySuggestion{},
	}
	for _, p := range profiles {
		if p.Category == models.RiskHigh {
			summary.HighRiskUsers++
		}
	}
	if summary.TotalUsersAnalyzed > 0 {
		pct := 100 * float64(summary.HighRiskUsers) / float64(summary.TotalUsersAnalyzed)
		summary.RiskPercentage = math.Round(pct*10) / 10
	}

	top := append([]models.RootCauseSuggestion(nil), rootCauses...)
	sort.SliceStable(top, func(i, j int) bool {
		if top[i].Confidence != top[j].Confidence {
			return top[i].Confidence > top[j].Confidence
		}
		if top[i].ErrorCount != top[j].ErrorCount {
			return top[i].ErrorCount > top[j].ErrorCount
		}
		return top[i].ID < top[j].ID
	})
	if len(top) > s.policy.SummaryTop {
		top = top[:s.policy.SummaryTop]
	}
	summary.TopCorrelations = append(summary.TopCorrelations, top...)

	suggestions := 0
	if cat != nil {
		summary.TotalCategoriesFound = cat.TotalClusters
		summary.OutlierErrors = cat.Outliers
		suggestions = len(cat.Suggestions)
		n := min(len(cat.Suggestions), s.policy.SummaryTop)
		summary.CategorizationSuggestions = append(summary.CategorizationSuggestions, cat.Suggestions[:n]...)
	}
	summary.InsightsGenerated = len(rootCauses) + suggestions
	return summary
}
