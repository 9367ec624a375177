package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/moolen/faultline/internal/logging"
)

// Version is overridden at build time with -ldflags.
var Version = "0.1.0"

var (
	logLevelFlags []string
	logFormat     string
	logFile       string
)

var rootCmd = &cobra.Command{
	Use:   "faultline",
	Short: "Faultline - error log analytics",
	Long: `Faultline analyzes the error records published by the ingestion service:
per-user risk scores, similar errors, automatic categorization, root-cause
suggestions and an insights summary.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&logLevelFlags, "log-level",
		[]string{"info"},
		"Log level for packages. Use 'level' for the default or 'package.name=level' per package.\n"+
			"Examples: --log-level debug, --log-level analysis.clustering=debug --log-level store=warn")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", logging.FormatConsole, "Log format: console or json")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write logs to this file with rotation instead of stdout")

	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(policyCmd)
	rootCmd.AddCommand(versionCmd)
}

// setupLog initializes the logging system. Priority: CLI flags, then
// LOG_LEVEL_* environment variables, then the info default.
func setupLog(flags []string) error {
	defaultLevel, packageLevels, err := parseLogLevelFlags(flags, os.Environ())
	if err != nil {
		return err
	}
	if err := logging.Configure(logging.OutputConfig{Format: logFormat, File: logFile}); err != nil {
		return err
	}
	return logging.Initialize(defaultLevel, packageLevels)
}

// parseLogLevelFlags merges LOG_LEVEL_* variables with --log-level flags.
// LOG_LEVEL_ANALYSIS_CLUSTERING=debug configures analysis.clustering.
func parseLogLevelFlags(flags []string, environ []string) (string, map[string]string, error) {
	result := make(map[string]string)

	for _, pair := range environ {
		if !strings.HasPrefix(pair, "LOG_LEVEL_") {
			continue
		}
		key, level, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		result[envKeyToPackage(key)] = level
	}

	for _, flag := range flags {
		if pkg, level, ok := strings.Cut(flag, "="); ok {
			result[pkg] = level
		} else {
			result["default"] = flag
		}
	}

	defaultLevel := "info"
	if level, ok := result["default"]; ok {
		defaultLevel = level
		delete(result, "default")
	}

	if !logging.IsValidLevel(defaultLevel) {
		return "", nil, fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error, fatal)", defaultLevel)
	}
	for pkg, level := range result {
		if !logging.IsValidLevel(level) {
			return "", nil, fmt.Errorf("invalid log level for package %q: %s", pkg, level)
		}
	}
	return defaultLevel, result, nil
}

func envKeyToPackage(key string) string {
	name := strings.TrimPrefix(key, "LOG_LEVEL_")
	return strings.ToLower(strings.ReplaceAll(name, "_", "."))
}
