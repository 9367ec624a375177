package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/moolen/faultline/internal/models"
)

type toolDefinition struct {
	name        string
	description string
	tool        Tool
	schema      map[string]interface{}
}

// ToolFunc adapts a function to the Tool interface.
type ToolFunc func(ctx context.Context, input json.RawMessage) (interface{}, error)

// Execute calls f.
func (f ToolFunc) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	return f(ctx, input)
}

func noArguments() map[string]interface{} {
	return map[string]interface{}{
		"type":                 "object",
		"properties":           map[string]interface{}{},
		"additionalProperties": false,
	}
}

type similarErrorsInput struct {
	ErrorID int64 `json:"error_id"`
	Limit   *int  `json:"limit,omitempty"`
}

func toolDefinitions(a Analytics) []toolDefinition {
	return []toolDefinition{
		{
			name:        "user_risk_scores",
			description: "Risk profile of every user ranked by score, with factors and insights",
			schema:      noArguments(),
			tool: ToolFunc(func(ctx context.Context, _ json.RawMessage) (interface{}, error) {
				return a.UserRiskScores(ctx)
			}),
		},
		{
			name:        "similar_errors",
			description: "Errors most similar to the given error, best match first",
			schema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"error_id": map[string]interface{}{
						"type":        "integer",
						"description": "ID of the anchor error",
					},
					"limit": map[string]interface{}{
						"type":        "integer",
						"description": fmt.Sprintf("Maximum number of results (default %d)", a.DefaultSimilarLimit()),
					},
				},
				"required":             []string{"error_id"},
				"additionalProperties": false,
			},
			tool: ToolFunc(func(ctx context.Context, input json.RawMessage) (interface{}, error) {
				var params similarErrorsInput
				if err := json.Unmarshal(input, &params); err != nil {
					return nil, models.NewValidationError("invalid arguments: %v", err)
				}
				limit := a.DefaultSimilarLimit()
				if params.Limit != nil {
					limit = *params.Limit
				}
				return a.SimilarErrors(ctx, params.ErrorID, limit)
			}),
		},
		{
			name:        "auto_categorize",
			description: "Group errors into similarity clusters with descriptions, outliers and handler suggestions",
			schema:      noArguments(),
			tool: ToolFunc(func(ctx context.Context, _ json.RawMessage) (interface{}, error) {
				return a.AutoCategorize(ctx)
			}),
		},
		{
			name:        "root_cause_suggestions",
			description: "Ranked root-cause hypotheses drawn from clusters, risky users and co-occurring error types",
			schema:      noArguments(),
			tool: ToolFunc(func(ctx context.Context, _ json.RawMessage) (interface{}, error) {
				return a.RootCauseSuggestions(ctx)
			}),
		},
		{
			name:        "user_risk_heatmap",
			description: "Per-user risk tiles and the distribution of risk levels",
			schema:      noArguments(),
			tool: ToolFunc(func(ctx context.Context, _ json.RawMessage) (interface{}, error) {
				return a.RiskHeatmap(ctx)
			}),
		},
		{
			name:        "insights_summary",
			description: "Headline numbers and the top correlations and suggestions",
			schema:      noArguments(),
			tool: ToolFunc(func(ctx context.Context, _ json.RawMessage) (interface{}, error) {
				return a.InsightsSummary(ctx)
			}),
		},
	}
}
