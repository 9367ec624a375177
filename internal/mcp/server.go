// Package mcp exposes the analytics operations as Model Context Protocol
// tools. The server is mounted on the API server at /v1/mcp.
package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/santhosh-tekuri/jsonschema/v5"

	apierrors "github.com/moolen/faultline/internal/api/errors"
	"github.com/moolen/faultline/internal/logging"
	"github.com/moolen/faultline/internal/models"
)

// Analytics is the subset of the analytics engine the tools call.
type Analytics interface {
	UserRiskScores(ctx context.Context) ([]models.UserRiskProfile, error)
	SimilarErrors(ctx context.Context, id int64, limit int) ([]models.SimilarityResult, error)
	DefaultSimilarLimit() int
	AutoCategorize(ctx context.Context) (*models.CategorizationResult, error)
	RootCauseSuggestions(ctx context.Context) ([]models.RootCauseSuggestion, error)
	RiskHeatmap(ctx context.Context) (models.RiskHeatmap, error)
	InsightsSummary(ctx context.Context) (models.InsightsSummary, error)
}

// Tool executes one call with already-validated JSON arguments.
type Tool interface {
	Execute(ctx context.Context, input json.RawMessage) (interface{}, error)
}

type registeredTool struct {
	tool   Tool
	schema *jsonschema.Schema
}

// Server wraps the mcp-go server with the analytics tools.
type Server struct {
	mcpServer *server.MCPServer
	tools     map[string]registeredTool
	logger    *logging.Logger
	version   string
}

// NewServer creates the MCP server and registers every tool.
func NewServer(analytics Analytics, version string) (*Server, error) {
	if analytics == nil {
		return nil, fmt.Errorf("analytics must not be nil")
	}

	s := &Server{
		mcpServer: server.NewMCPServer(
			"Faultline MCP Server",
			version,
			server.WithToolCapabilities(false),
			server.WithLogging(),
		),
		tools:   make(map[string]registeredTool),
		logger:  logging.GetLogger("mcp"),
		version: version,
	}

	for _, def := range toolDefinitions(analytics) {
		if err := s.registerTool(def); err != nil {
			return nil, err
		}
	}
	s.registerPrompts()
	return s, nil
}

// MCPServer returns the underlying server for transport wiring.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ToolNames lists the registered tools.
func (s *Server) ToolNames() []string {
	names := make([]string, 0, len(s.tools))
	for name := range s.tools {
		names = append(names, name)
	}
	return names
}

func (s *Server) registerTool(def toolDefinition) error {
	schemaJSON, err := json.Marshal(def.schema)
	if err != nil {
		return fmt.Errorf("marshal schema for tool %s: %w", def.name, err)
	}

	url := "mem://tools/" + def.name + ".json"
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, bytes.NewReader(schemaJSON)); err != nil {
		return fmt.Errorf("add schema for tool %s: %w", def.name, err)
	}
	schema, err := compiler.Compile(url)
	if err != nil {
		return fmt.Errorf("compile schema for tool %s: %w", def.name, err)
	}

	s.tools[def.name] = registeredTool{tool: def.tool, schema: schema}
	s.mcpServer.AddTool(mcp.NewToolWithRawSchema(def.name, def.description, schemaJSON), s.toolHandler(def.name))
	return nil
}

func (s *Server) toolHandler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		registered, ok := s.tools[name]
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("unknown tool %q", name)), nil
		}

		raw, err := json.Marshal(request.Params.Arguments)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid arguments: %v", err)), nil
		}
		if string(raw) == "null" {
			raw = []byte("{}")
		}

		var decoded interface{}
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid arguments: %v", err)), nil
		}
		if err := registered.schema.Validate(decoded); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid arguments: %v", err)), nil
		}

		result, err := registered.tool.Execute(ctx, raw)
		if err != nil {
			apiErr := apierrors.FromError(err)
			if apiErr.HTTPStatus >= 500 {
				s.logger.Error("Tool %s failed: %v", name, err)
			}
			return mcp.NewToolResultError(fmt.Sprintf("%s: %s", apiErr.Code, apiErr.Message)), nil
		}

		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to format result: %v", err)), nil
		}
		return mcp.NewToolResultText(string(out)), nil
	}
}

func (s *Server) registerPrompts() {
	triage := mcp.Prompt{
		Name:        "error_triage",
		Description: "Walk through the current error corpus and propose where to act first",
		Arguments: []mcp.PromptArgument{
			{Name: "focus_user", Description: "Optional user to focus on", Required: false},
		},
	}

	s.mcpServer.AddPrompt(triage, func(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		text := "Start with insights_summary, then inspect auto_categorize and root_cause_suggestions. " +
			"Use similar_errors on a representative error of the largest category before proposing a fix."
		if user := request.Params.Arguments["focus_user"]; user != "" {
			text += fmt.Sprintf(" Pay particular attention to user %s using user_risk_scores.", user)
		}
		return mcp.NewGetPromptResult(
			"Error triage",
			[]mcp.PromptMessage{mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(text))},
		), nil
	})
}
