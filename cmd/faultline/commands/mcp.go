package commands

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/moolen/faultline/internal/analysis"
	"github.com/moolen/faultline/internal/config"
	"github.com/moolen/faultline/internal/logging"
	"github.com/moolen/faultline/internal/mcp"
)

var (
	mcpCfg    = config.Default()
	mcpPolicy string
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the analytics tools over MCP stdio",
	Long: `Serve the analytics operations as Model Context Protocol tools on
stdin/stdout, for MCP clients that launch the server as a subprocess.
Logs go to stderr or to --log-file.`,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().StringVar(&mcpPolicy, "policy", "", "Path to the analytics policy YAML file")
	addStoreFlags(mcpCmd, mcpCfg)
}

func runMCP(cmd *cobra.Command, args []string) error {
	if err := setupLog(logLevelFlags); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	if logFile == "" {
		logging.SetWriter(os.Stderr, logFormat)
	}
	logger := logging.GetLogger("mcp")

	if err := mcpCfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	policy, err := config.LoadPolicy(mcpPolicy)
	if err != nil {
		return err
	}

	st, err := openStore(mcpCfg)
	if err != nil {
		return err
	}
	defer st.Close()

	opts := analysis.DefaultOptions()
	opts.Policy = *policy
	opts.StoreTimeout = mcpCfg.StoreTimeout
	engine, err := analysis.NewEngine(st, opts)
	if err != nil {
		return err
	}

	mcpServer, err := mcp.NewServer(engine, Version)
	if err != nil {
		return err
	}

	logger.Info("Serving MCP over stdio (%s store)", mcpCfg.StoreKind)
	return server.ServeStdio(mcpServer.MCPServer())
}
