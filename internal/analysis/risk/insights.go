package risk

import (
	"fmt"
	"sort"

	"github.com/moolen/faultline/internal/analysis/features"
	"github.com/moolen/faultline/internal/models"
)

// NormalPattern is the insight emitted when nothing stands out.
const NormalPattern = "Normal error pattern - no specific concerns identified"

type peerStats struct {
	avgErrors        float64
	avgSeverity      float64
	avgCriticalRatio float64
}

func (s *Scorer) peerAverages(fs *features.FeatureSet) peerStats {
	var p peerStats
	if len(fs.Users) == 0 {
		return p
	}
	for i := range fs.Users {
		agg := &fs.Users[i]
		f := s.Factors(fs, agg)
		p.avgErrors += float64(agg.Total)
		p.avgSeverity += f.Severity
		p.avgCriticalRatio += f.CriticalRatio
	}
	n := float64(len(fs.Users))
	p.avgErrors /= n
	p.avgSeverity /= n
	p.avgCriticalRatio /= n
	return p
}

type candidate struct {
	order  int
	weight float64
	text   string
}

// insights emits factor sentences ordered by weighted contribution,
// followed by the dominant-type and improving-rate sentences.
func (s *Scorer) insights(fs *features.FeatureSet, agg *features.UserAggregate, f models.RiskFactors, peers peerStats) []string {
	w := s.policy.Weights
	th := s.policy.InsightThreshold

	var factors []candidate
	add := func(order int, value, weight float64, text string) {
		if value > th {
			factors = append(factors, candidate{order: order, weight: value * weight, text: text})
		}
	}

	add(0, f.CriticalRatio, w.CriticalRatio, fmt.Sprintf(
		"Critical-error ratio of %.0f%% (%d critical errors) vs %.0f%% peer average",
		100*f.CriticalRatio, agg.Critical(), 100*peers.avgCriticalRatio))
	add(1, f.Severity, w.Severity, fmt.Sprintf(
		"High severity pattern: average severity %.2f vs %.2f peer average",
		f.Severity, peers.avgSeverity))
	add(2, f.Frequency, w.Frequency, fmt.Sprintf(
		"Generates %d errors vs %.1f average - needs attention",
		agg.Total, peers.avgErrors))
	add(3, f.Diversity, w.Diversity, fmt.Sprintf(
		"Wide error variety: %d different error types - broad system usage issues",
		agg.DistinctTypes))
	add(4, f.Trend, w.Trend,
		"Error frequency increasing over time - system degradation or learning curve")

	sort.SliceStable(factors, func(i, j int) bool {
		if factors[i].weight != factors[j].weight {
			return factors[i].weight > factors[j].weight
		}
		return factors[i].order < factors[j].order
	})

	out := make([]string, 0, s.policy.MaxInsights)
	for _, c := range factors {
		out = append(out, c.text)
	}

	if typ := mostCommonType(agg); typ != "" {
		n := agg.ByType[typ]
		if n >= 3 && 2*n > agg.Total {
			out = append(out, fmt.Sprintf("Dominant issue: %d '%s' errors - focused training needed", n, typ))
		}
	}

	if early, recent, ok := thirds(fs, agg); ok && agg.Total >= 3 && early > 0 && recent <= early {
		out = append(out, "Error frequency flat or decreasing - showing improvement")
	}

	if len(out) > s.policy.MaxInsights {
		out = out[:s.policy.MaxInsights]
	}
	if len(out) == 0 {
		out = append(out, NormalPattern)
	}
	return out
}

// BuildHeatmap condenses profiles into heatmap entries and a risk
// distribution. Each entry keeps at most two insights.
func BuildHeatmap(profiles []models.UserRiskProfile) models.RiskHeatmap {
	hm := models.RiskHeatmap{
		HeatmapData: make([]models.HeatmapEntry, 0, len(profiles)),
		TotalUsers:  len(profiles),
	}
	for _, p := range profiles {
		insights := p.Insights
		if len(insights) > 2 {
			insights = insights[:2]
		}
		hm.HeatmapData = append(hm.HeatmapData, models.HeatmapEntry{
			User:           p.User,
			RiskScore:      p.RiskScore,
			Category:       p.Category,
			Color:          p.Color,
			TotalErrors:    p.TotalErrors,
			CriticalErrors: p.CriticalErrors,
			Insights:       append([]string(nil), insights...),
		})
		switch p.Category {
		case models.RiskHigh:
			hm.RiskDistribution.HighRisk++
		case models.RiskMedium:
			hm.RiskDistribution.MediumRisk++
		case models.RiskLow:
			hm.RiskDistribution.LowRisk++
		default:
			hm.RiskDistribution.MinimalRisk++
		}
	}
	return hm
}
