// Package risk scores users by their error-producing behaviour.
package risk

import (
	"math"
	"sort"

	"github.com/moolen/faultline/internal/analysis/features"
	"github.com/moolen/faultline/internal/config"
	"github.com/moolen/faultline/internal/models"
)

// Category colors used by the dashboard.
const (
	ColorHigh    = "#f44336"
	ColorMedium  = "#ff9800"
	ColorLow     = "#ffc107"
	ColorMinimal = "#4caf50"
)

// Scorer computes UserRiskProfiles from a feature set.
type Scorer struct {
	severity config.SeverityWeights
	policy   config.RiskPolicy
}

// NewScorer creates a scorer for the given policy.
func NewScorer(severity config.SeverityWeights, policy config.RiskPolicy) *Scorer {
	return &Scorer{severity: severity, policy: policy}
}

// Score returns one profile per profiled user, sorted by score descending
// and then by user name. Users without errors never appear.
func (s *Scorer) Score(fs *features.FeatureSet) []models.UserRiskProfile {
	profiles := make([]models.UserRiskProfile, 0, len(fs.Users))
	if len(fs.Users) == 0 {
		return profiles
	}

	peers := s.peerAverages(fs)
	for i := range fs.Users {
		profiles = append(profiles, s.profile(fs, &fs.Users[i], peers))
	}

	sort.Slice(profiles, func(i, j int) bool {
		if profiles[i].RiskScore != profiles[j].RiskScore {
			return profiles[i].RiskScore > profiles[j].RiskScore
		}
		return profiles[i].User < profiles[j].User
	})
	return profiles
}

// ScoreUser returns the profile of a single user.
func (s *Scorer) ScoreUser(fs *features.FeatureSet, user string) (models.UserRiskProfile, bool) {
	agg, ok := fs.User(user)
	if !ok || agg.Total == 0 {
		return models.UserRiskProfile{}, false
	}
	return s.profile(fs, agg, s.peerAverages(fs)), true
}

// Factors computes the five normalized risk factors of one user.
func (s *Scorer) Factors(fs *features.FeatureSet, agg *features.UserAggregate) models.RiskFactors {
	total := float64(agg.Total)

	var sevSum float64
	for sev, n := range agg.BySeverity {
		sevSum += s.severity.For(sev) * float64(n)
	}

	return models.RiskFactors{
		Frequency:     clamp01(total / float64(max(fs.MaxUserErrors, 1))),
		Severity:      clamp01(sevSum / total),
		Diversity:     clamp01(float64(agg.DistinctTypes) / float64(s.policy.DiversityCap)),
		Trend:         trend(fs, agg),
		CriticalRatio: clamp01(float64(agg.Critical()) / total),
	}
}

// Weighted returns the risk score of the given factors on the 0-100 scale,
// rounded to one decimal.
func (s *Scorer) Weighted(f models.RiskFactors) float64 {
	w := s.policy.Weights
	sum := w.Frequency*f.Frequency +
		w.Severity*f.Severity +
		w.Diversity*f.Diversity +
		w.Trend*f.Trend +
		w.CriticalRatio*f.CriticalRatio
	return math.Max(0, math.Min(100, round(100*sum, 1)))
}

// Categorize maps a score to its category.
func (s *Scorer) Categorize(score float64) models.RiskCategory {
	t := s.policy.Thresholds
	switch {
	case score >= t.High:
		return models.RiskHigh
	case score >= t.Medium:
		return models.RiskMedium
	case score >= t.Low:
		return models.RiskLow
	default:
		return models.RiskMinimal
	}
}

// Color returns the presentation color of a category.
func Color(c models.RiskCategory) string {
	switch c {
	case models.RiskHigh:
		return ColorHigh
	case models.RiskMedium:
		return ColorMedium
	case models.RiskLow:
		return ColorLow
	default:
		return ColorMinimal
	}
}

func (s *Scorer) profile(fs *features.FeatureSet, agg *features.UserAggregate, peers peerStats) models.UserRiskProfile {
	factors := s.Factors(fs, agg)
	score := s.Weighted(factors)
	category := s.Categorize(score)

	return models.UserRiskProfile{
		User:            agg.User,
		RiskScore:       score,
		Category:        category,
		Color:           Color(category),
		TotalErrors:     agg.Total,
		CriticalErrors:  agg.Critical(),
		MostCommonError: mostCommonType(agg),
		Insights:        s.insights(fs, agg, factors, peers),
		RiskFactors:     factors,
	}
}

// trend compares the user's error count in the most recent third of the
// analysis window with the earliest third. Only growth scores above zero.
func trend(fs *features.FeatureSet, agg *features.UserAggregate) float64 {
	early, recent, ok := thirds(fs, agg)
	if !ok || early+recent == 0 {
		return 0
	}
	return clamp01(float64(recent-early) / float64(recent+early))
}

func thirds(fs *features.FeatureSet, agg *features.UserAggregate) (early, recent int, ok bool) {
	span := fs.WindowEnd.Sub(fs.WindowStart)
	if agg.Total < 2 || span <= 0 {
		return 0, 0, false
	}
	earlyEnd := fs.WindowStart.Add(span / 3)
	recentStart := fs.WindowEnd.Add(-span / 3)
	for _, ts := range agg.Timestamps {
		if ts.Before(earlyEnd) {
			early++
		}
		if !ts.Before(recentStart) {
			recent++
		}
	}
	return early, recent, true
}

// mostCommonType returns the mode of the user's error types. Ties resolve
// to the lexicographically smallest type.
func mostCommonType(agg *features.UserAggregate) string {
	best, bestN := "", 0
	for typ, n := range agg.ByType {
		if n > bestN || (n == bestN && typ < best) {
			best, bestN = typ, n
		}
	}
	return best
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
