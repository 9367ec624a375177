package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/moolen/faultline/internal/analysis"
	"github.com/moolen/faultline/internal/config"
	"github.com/moolen/faultline/internal/logging"
	"github.com/moolen/faultline/internal/models"
	"github.com/moolen/faultline/internal/report"
)

var (
	analyzeCfg    = config.Default()
	analyzeOutput string
	analyzePolicy string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [records.json]",
	Short: "Analyze a record file or store once and print the report",
	Long: `Run the full analysis once and print the report. With a file argument the
records are read from that JSON array; otherwise the store flags select the source.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeOutput, "output", "o", "text", "Output format: text or json")
	analyzeCmd.Flags().StringVar(&analyzePolicy, "policy", "", "Path to the analytics policy YAML file")
	addStoreFlags(analyzeCmd, analyzeCfg)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if analyzeOutput != "text" && analyzeOutput != "json" {
		return fmt.Errorf("invalid output format %q (must be text or json)", analyzeOutput)
	}
	if err := setupLog(logLevelFlags); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	if logFile == "" {
		logging.SetWriter(os.Stderr, logFormat)
	}

	cfg := analyzeCfg
	if len(args) == 1 {
		cfg.StoreKind = config.StoreFile
		cfg.StorePath = args[0]
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	policy, err := config.LoadPolicy(analyzePolicy)
	if err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	opts := analysis.DefaultOptions()
	opts.Policy = *policy
	opts.StoreTimeout = cfg.StoreTimeout
	engine, err := analysis.NewEngine(st, opts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rep, err := engine.Analyze(ctx)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	return writeReport(cmd.OutOrStdout(), analyzeOutput, rep)
}

func writeReport(out io.Writer, format string, rep *models.Report) error {
	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}
	return report.NewRenderer(out).Render(rep)
}
