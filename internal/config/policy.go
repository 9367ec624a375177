package config

import (
	"math"
	"time"

	"github.com/hashicorp/go-version"

	"github.com/moolen/faultline/internal/models"
)

// PolicySchemaVersion is written by policy init. Files declaring another
// major version are rejected.
const PolicySchemaVersion = "1.0.0"

var supportedPolicySchema = version.MustConstraints(version.NewConstraint(">= 1.0, < 2.0"))

// Policy holds every tunable constant of the analysis pipeline. It is
// loaded from YAML over DefaultPolicy, so a file only needs the keys it
// changes.
type Policy struct {
	SchemaVersion   string            `yaml:"schema_version"`
	SeverityWeights SeverityWeights   `yaml:"severity_weights"`
	Risk            RiskPolicy        `yaml:"risk"`
	Similarity      SimilarityPolicy  `yaml:"similarity"`
	Clustering      ClusteringPolicy  `yaml:"clustering"`
	Correlation     CorrelationPolicy `yaml:"correlation"`
}

// SeverityWeights maps each severity to [0,1].
type SeverityWeights struct {
	Critical float64 `yaml:"critical"`
	High     float64 `yaml:"high"`
	Medium   float64 `yaml:"medium"`
	Low      float64 `yaml:"low"`
}

// For returns the weight of s.
func (w SeverityWeights) For(s models.Severity) float64 {
	switch s {
	case models.SeverityCritical:
		return w.Critical
	case models.SeverityHigh:
		return w.High
	case models.SeverityMedium:
		return w.Medium
	default:
		return w.Low
	}
}

// RiskWeights are the factor weights of the risk score. They sum to 1.
type RiskWeights struct {
	Frequency     float64 `yaml:"frequency"`
	Severity      float64 `yaml:"severity"`
	Diversity     float64 `yaml:"diversity"`
	Trend         float64 `yaml:"trend"`
	CriticalRatio float64 `yaml:"critical_ratio"`
}

func (w RiskWeights) sum() float64 {
	return w.Frequency + w.Severity + w.Diversity + w.Trend + w.CriticalRatio
}

// RiskThresholds are the lower score bounds of each category.
type RiskThresholds struct {
	High   float64 `yaml:"high"`
	Medium float64 `yaml:"medium"`
	Low    float64 `yaml:"low"`
}

// RiskPolicy configures the risk scorer.
type RiskPolicy struct {
	Weights    RiskWeights    `yaml:"weights"`
	Thresholds RiskThresholds `yaml:"thresholds"`
	// DiversityCap is the number of distinct types that saturates diversity
	DiversityCap int `yaml:"diversity_cap"`
	// InsightThreshold is the factor value above which an insight is emitted
	InsightThreshold float64 `yaml:"insight_threshold"`
	MaxInsights      int     `yaml:"max_insights"`
	// AnonymousUsers are user names that are never profiled
	AnonymousUsers []string `yaml:"anonymous_users"`
}

// SimilarityPolicy configures pairwise error similarity.
type SimilarityPolicy struct {
	TypeWeight     float64 `yaml:"type_weight"`
	UserWeight     float64 `yaml:"user_weight"`
	TemporalWeight float64 `yaml:"temporal_weight"`
	MessageWeight  float64 `yaml:"message_weight"`
	// TemporalScale is the decay constant of the temporal component
	TemporalScale time.Duration `yaml:"temporal_scale"`
	DefaultLimit  int           `yaml:"default_limit"`
}

func (p SimilarityPolicy) sum() float64 {
	return p.TypeWeight + p.UserWeight + p.TemporalWeight + p.MessageWeight
}

// ClusteringPolicy configures the clustering engine.
type ClusteringPolicy struct {
	// Threshold is the minimum similarity for two errors to be linked
	Threshold      float64 `yaml:"threshold"`
	MinClusterSize int     `yaml:"min_cluster_size"`
	// SuggestionMinSize is the cluster size from which a suggestion is made
	SuggestionMinSize int `yaml:"suggestion_min_size"`
	// HighPriorityScore and MediumPriorityScore bound size x severity weight
	HighPriorityScore   float64 `yaml:"high_priority_score"`
	MediumPriorityScore float64 `yaml:"medium_priority_score"`
}

// CorrelationPolicy configures root-cause synthesis.
type CorrelationPolicy struct {
	BurstWindow time.Duration `yaml:"burst_window"`
	// BurstShare is the fraction of a cluster that must fall in one window
	BurstShare float64 `yaml:"burst_share"`
	// BurstMinErrors is the smallest number of errors that forms a burst
	BurstMinErrors int `yaml:"burst_min_errors"`
	// ConcentrationShare is the fraction of a cluster owned by one user
	ConcentrationShare   float64 `yaml:"concentration_share"`
	ConcentrationMinSize int     `yaml:"concentration_min_size"`
	WidespreadUsers      int     `yaml:"widespread_users"`
	// ConfidenceScale controls how fast confidence approaches 1
	ConfidenceScale float64 `yaml:"confidence_scale"`
	// CoOccurrenceMin and CoOccurrenceStrength gate type correlations
	CoOccurrenceMin      int     `yaml:"co_occurrence_min"`
	CoOccurrenceStrength float64 `yaml:"co_occurrence_strength"`
	MaxSuggestions       int     `yaml:"max_suggestions"`
	SummaryTop           int     `yaml:"summary_top"`
}

// DefaultPolicy returns the built-in analysis constants.
func DefaultPolicy() Policy {
	return Policy{
		SchemaVersion: PolicySchemaVersion,
		SeverityWeights: SeverityWeights{
			Critical: 1.0,
			High:     0.66,
			Medium:   0.33,
			Low:      0.0,
		},
		Risk: RiskPolicy{
			Weights: RiskWeights{
				Frequency:     0.20,
				Severity:      0.35,
				Diversity:     0.05,
				Trend:         0.05,
				CriticalRatio: 0.35,
			},
			Thresholds:       RiskThresholds{High: 75, Medium: 50, Low: 25},
			DiversityCap:     5,
			InsightThreshold: 0.7,
			MaxInsights:      3,
			AnonymousUsers:   []string{"", "Unknown"},
		},
		Similarity: SimilarityPolicy{
			TypeWeight:     0.45,
			UserWeight:     0.15,
			TemporalWeight: 0.15,
			MessageWeight:  0.25,
			TemporalScale:  time.Hour,
			DefaultLimit:   5,
		},
		Clustering: ClusteringPolicy{
			Threshold:           0.55,
			MinClusterSize:      2,
			SuggestionMinSize:   3,
			HighPriorityScore:   10,
			MediumPriorityScore: 3,
		},
		Correlation: CorrelationPolicy{
			BurstWindow:          30 * time.Minute,
			BurstShare:           0.6,
			BurstMinErrors:       3,
			ConcentrationShare:   0.6,
			ConcentrationMinSize: 3,
			WidespreadUsers:      3,
			ConfidenceScale:      5,
			CoOccurrenceMin:      3,
			CoOccurrenceStrength: 0.3,
			MaxSuggestions:       10,
			SummaryTop:           3,
		},
	}
}

const weightTolerance = 1e-6

// Validate checks ranges and orderings.
func (p *Policy) Validate() error {
	if p.SchemaVersion != "" {
		v, err := version.NewVersion(p.SchemaVersion)
		if err != nil {
			return NewConfigError("schema_version %q is not a version: %v", p.SchemaVersion, err)
		}
		if !supportedPolicySchema.Check(v) {
			return NewConfigError("schema_version %s is not supported (want %s)", v, supportedPolicySchema)
		}
	}

	sw := p.SeverityWeights
	for _, w := range []float64{sw.Critical, sw.High, sw.Medium, sw.Low} {
		if w < 0 || w > 1 {
			return NewConfigError("severity_weights must be within [0,1]")
		}
	}
	if !(sw.Critical >= sw.High && sw.High >= sw.Medium && sw.Medium >= sw.Low) {
		return NewConfigError("severity_weights must be ordered critical >= high >= medium >= low")
	}

	r := p.Risk
	if math.Abs(r.Weights.sum()-1) > weightTolerance {
		return NewConfigError("risk.weights must sum to 1 (got %.4f)", r.Weights.sum())
	}
	for _, w := range []float64{r.Weights.Frequency, r.Weights.Severity, r.Weights.Diversity, r.Weights.Trend, r.Weights.CriticalRatio} {
		if w < 0 {
			return NewConfigError("risk.weights must not be negative")
		}
	}
	t := r.Thresholds
	if !(t.High > t.Medium && t.Medium > t.Low && t.Low > 0 && t.High <= 100) {
		return NewConfigError("risk.thresholds must satisfy 0 < low < medium < high <= 100")
	}
	if r.DiversityCap < 1 {
		return NewConfigError("risk.diversity_cap must be at least 1")
	}
	if r.MaxInsights < 1 {
		return NewConfigError("risk.max_insights must be at least 1")
	}

	s := p.Similarity
	if math.Abs(s.sum()-1) > weightTolerance {
		return NewConfigError("similarity weights must sum to 1 (got %.4f)", s.sum())
	}
	if s.TypeWeight < 0 || s.UserWeight < 0 || s.TemporalWeight < 0 || s.MessageWeight < 0 {
		return NewConfigError("similarity weights must not be negative")
	}
	if s.TemporalScale <= 0 {
		return NewConfigError("similarity.temporal_scale must be positive")
	}
	if s.DefaultLimit < 1 {
		return NewConfigError("similarity.default_limit must be at least 1")
	}

	c := p.Clustering
	if c.Threshold <= 0 || c.Threshold > 1 {
		return NewConfigError("clustering.threshold must be within (0,1]")
	}
	if c.MinClusterSize < 2 {
		return NewConfigError("clustering.min_cluster_size must be at least 2")
	}
	if c.SuggestionMinSize < 1 {
		return NewConfigError("clustering.suggestion_min_size must be at least 1")
	}
	if c.HighPriorityScore <= c.MediumPriorityScore {
		return NewConfigError("clustering.high_priority_score must exceed medium_priority_score")
	}

	cr := p.Correlation
	if cr.BurstWindow <= 0 {
		return NewConfigError("correlation.burst_window must be positive")
	}
	if cr.BurstShare <= 0 || cr.BurstShare > 1 || cr.ConcentrationShare <= 0 || cr.ConcentrationShare > 1 {
		return NewConfigError("correlation shares must be within (0,1]")
	}
	if cr.ConfidenceScale <= 0 {
		return NewConfigError("correlation.confidence_scale must be positive")
	}
	if cr.CoOccurrenceMin < 1 || cr.CoOccurrenceStrength < 0 || cr.CoOccurrenceStrength > 1 {
		return NewConfigError("correlation co-occurrence gates are out of range")
	}
	if cr.MaxSuggestions < 1 || cr.SummaryTop < 1 {
		return NewConfigError("correlation.max_suggestions and summary_top must be at least 1")
	}
	if cr.BurstMinErrors < 2 || cr.ConcentrationMinSize < 1 || cr.WidespreadUsers < 2 {
		return NewConfigError("correlation size gates are out of range")
	}

	return nil
}

// IsAnonymous reports whether user is excluded from profiling.
func (r RiskPolicy) IsAnonymous(user string) bool {
	for _, u := range r.AnonymousUsers {
		if u == user {
			return true
		}
	}
	return false
}
