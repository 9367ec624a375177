package models

import "time"

// RiskCategory buckets a risk score.
type RiskCategory string

const (
	RiskHigh    RiskCategory = "high"
	RiskMedium  RiskCategory = "medium"
	RiskLow     RiskCategory = "low"
	RiskMinimal RiskCategory = "minimal"
)

// Priority ranks a categorization suggestion.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// RiskFactors are the normalized inputs of a risk score, each in [0,1].
type RiskFactors struct {
	Frequency     float64 `json:"frequency"`
	Severity      float64 `json:"severity"`
	Diversity     float64 `json:"diversity"`
	Trend         float64 `json:"trend"`
	CriticalRatio float64 `json:"critical_ratio"`
}

// UserRiskProfile is the risk assessment of one user.
type UserRiskProfile struct {
	User            string       `json:"user"`
	RiskScore       float64      `json:"risk_score"`
	Category        RiskCategory `json:"category"`
	Color           string       `json:"color"`
	TotalErrors     int          `json:"total_errors"`
	CriticalErrors  int          `json:"critical_errors"`
	MostCommonError string       `json:"most_common_error"`
	Insights        []string     `json:"insights"`
	RiskFactors     RiskFactors  `json:"risk_factors"`
}

// SimilarityResult is one neighbour of an anchor error.
type SimilarityResult struct {
	ID                   int64     `json:"id"`
	Type                 string    `json:"type"`
	User                 string    `json:"user"`
	Timestamp            time.Time `json:"timestamp"`
	Severity             Severity  `json:"severity"`
	Message              string    `json:"content"`
	SimilarityScore      float64   `json:"similarity_score"`
	SimilarityPercentage float64   `json:"similarity_percentage"`
}

// CommonPatterns summarizes what the members of a cluster share.
type CommonPatterns struct {
	DominantType      string    `json:"dominant_type"`
	CommonSeverity    Severity  `json:"common_severity"`
	PrimaryUser       string    `json:"primary_user"`
	UserConcentration string    `json:"user_concentration"`
	CommonTime        string    `json:"common_time"`
	TimeConcentration float64   `json:"time_concentration"`
	FirstSeen         time.Time `json:"first_seen"`
	LastSeen          time.Time `json:"last_seen"`
	Template          string    `json:"template,omitempty"`
}

// ErrorCluster is a group of mutually similar errors. Errors holds the
// member record IDs in ascending order.
type ErrorCluster struct {
	Name           string         `json:"name"`
	Count          int            `json:"count"`
	Errors         []int64        `json:"errors"`
	CommonPatterns CommonPatterns `json:"common_patterns"`
}

// CategorySuggestion recommends an action for a cluster.
type CategorySuggestion struct {
	Category   string   `json:"category"`
	Suggestion string   `json:"suggestion"`
	Priority   Priority `json:"priority"`
}

// CategorizationResult partitions the corpus into clusters and outliers.
type CategorizationResult struct {
	Categories    map[string]ErrorCluster `json:"categories"`
	Suggestions   []CategorySuggestion    `json:"suggestions"`
	TotalClusters int                     `json:"total_clusters"`
	Outliers      int                     `json:"outliers"`
	OutlierIDs    []int64                 `json:"outlier_ids"`
}

// CategoryKeys returns the cluster keys in rank order (Category_1, Category_2, ...).
func (c *CategorizationResult) CategoryKeys() []string {
	keys := make([]string, 0, len(c.Categories))
	for i := 1; i <= len(c.Categories); i++ {
		keys = append(keys, CategoryKey(i))
	}
	return keys
}

// RootCauseSuggestion is a ranked hypothesis about a shared cause.
type RootCauseSuggestion struct {
	ID            string   `json:"id"`
	Type          string   `json:"type"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Confidence    float64  `json:"confidence"`
	Suggestion    string   `json:"suggestion"`
	ErrorCount    int      `json:"error_count"`
	Category      string   `json:"category,omitempty"`
	AffectedUsers []string `json:"affected_users,omitempty"`
}

// RiskDistribution counts profiles per risk category.
type RiskDistribution struct {
	HighRisk    int `json:"high_risk"`
	MediumRisk  int `json:"medium_risk"`
	LowRisk     int `json:"low_risk"`
	MinimalRisk int `json:"minimal_risk"`
}

// HeatmapEntry is a condensed risk profile for visualization.
type HeatmapEntry struct {
	User           string       `json:"user"`
	RiskScore      float64      `json:"risk_score"`
	Category       RiskCategory `json:"category"`
	Color          string       `json:"color"`
	TotalErrors    int          `json:"total_errors"`
	CriticalErrors int          `json:"critical_errors"`
	Insights       []string     `json:"insights"`
}

// RiskHeatmap is the heatmap view over all profiles.
type RiskHeatmap struct {
	HeatmapData      []HeatmapEntry   `json:"heatmap_data"`
	RiskDistribution RiskDistribution `json:"risk_distribution"`
	TotalUsers       int              `json:"total_users"`
}

// InsightsSummary aggregates the whole analysis.
type InsightsSummary struct {
	TotalUsersAnalyzed        int                   `json:"total_users_analyzed"`
	HighRiskUsers             int                   `json:"high_risk_users"`
	RiskPercentage            float64               `json:"risk_percentage"`
	TotalCategoriesFound      int                   `json:"total_categories_found"`
	OutlierErrors             int                   `json:"outlier_errors"`
	TopCorrelations           []RootCauseSuggestion `json:"top_correlations"`
	CategorizationSuggestions []CategorySuggestion  `json:"categorization_suggestions"`
	InsightsGenerated         int                   `json:"insights_generated"`
}

// Report bundles every derived view of one snapshot.
type Report struct {
	RunID          string                `json:"run_id"`
	GeneratedAt    time.Time             `json:"generated_at"`
	Fingerprint    string                `json:"fingerprint"`
	RecordCount    int                   `json:"record_count"`
	Diagnostics    []Diagnostic          `json:"diagnostics,omitempty"`
	Profiles       []UserRiskProfile     `json:"user_risk_scores"`
	Categorization *CategorizationResult `json:"categorization"`
	RootCauses     []RootCauseSuggestion `json:"root_causes"`
	Heatmap        RiskHeatmap           `json:"heatmap"`
	Summary        InsightsSummary       `json:"summary"`
}
