package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/moolen/faultline/internal/analysis"
	"github.com/moolen/faultline/internal/apiserver"
	"github.com/moolen/faultline/internal/config"
	"github.com/moolen/faultline/internal/lifecycle"
	"github.com/moolen/faultline/internal/logging"
	"github.com/moolen/faultline/internal/mcp"
	"github.com/moolen/faultline/internal/metrics"
	"github.com/moolen/faultline/internal/tracing"
)

var (
	serverCfg       = config.Default()
	stdioEnabled    bool
	shutdownTimeout time.Duration
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the analytics API server",
	Long: `Start the HTTP server exposing the analytics under /api/ml, Prometheus
metrics under /metrics and the MCP endpoint under /v1/mcp.`,
	RunE: runServer,
}

func init() {
	flags := serverCmd.Flags()
	flags.IntVar(&serverCfg.APIPort, "api-port", serverCfg.APIPort, "Port the API server listens on")
	flags.StringSliceVar(&serverCfg.CORSOrigins, "cors-origin", serverCfg.CORSOrigins, "Allowed CORS origins ('*' allows any)")
	flags.IntVar(&serverCfg.CacheSize, "cache-size", serverCfg.CacheSize, "Number of analysis reports kept in memory (0 disables)")
	flags.StringVar(&serverCfg.PolicyPath, "policy", "", "Path to the analytics policy YAML file")
	flags.BoolVar(&serverCfg.WatchPolicy, "watch-policy", false, "Reload the policy file when it changes")
	flags.BoolVar(&serverCfg.TracingEnabled, "tracing-enabled", false, "Enable OpenTelemetry tracing")
	flags.StringVar(&serverCfg.TracingEndpoint, "tracing-endpoint", "", "OTLP gRPC endpoint for traces (e.g., otel-collector:4317)")
	flags.StringVar(&serverCfg.TracingTLSCAPath, "tracing-tls-ca", "", "Path to CA certificate for TLS verification (optional)")
	flags.BoolVar(&serverCfg.TracingTLSInsecure, "tracing-tls-insecure", false, "Skip TLS certificate verification (insecure, use only for testing)")
	flags.BoolVar(&stdioEnabled, "stdio", false, "Serve MCP over stdio alongside HTTP")
	flags.DurationVar(&shutdownTimeout, "shutdown-timeout", 30*time.Second, "Grace period for each component on shutdown")
	addStoreFlags(serverCmd, serverCfg)
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg := serverCfg
	cfg.LogFormat = logFormat
	cfg.LogFile = logFile
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if err := setupLog(logLevelFlags); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer func() { _ = logging.Sync() }()

	logger := logging.GetLogger("server")
	logger.Info("Starting Faultline v%s", Version)

	policy, err := config.LoadPolicy(cfg.PolicyPath)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics(registry)

	manager := lifecycle.NewManager()
	manager.SetShutdownTimeout(shutdownTimeout)

	tracingProvider, err := tracing.NewProvider(tracing.ConfigFrom(cfg, Version))
	if err != nil {
		logger.Warn("Failed to initialize tracing (continuing without tracing): %v", err)
		tracingProvider, _ = tracing.NewProvider(tracing.Config{})
	}
	if err := manager.Register(tracingProvider); err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to create %s store: %w", cfg.StoreKind, err)
	}
	storeComp := newStoreComponent(st, cfg.StoreKind)
	if err := manager.Register(storeComp); err != nil {
		return err
	}

	engine, err := analysis.NewEngine(st, analysis.Options{
		Policy:       *policy,
		CacheSize:    cfg.CacheSize,
		StoreTimeout: cfg.StoreTimeout,
		Metrics:      m,
		Tracer:       tracingProvider.Tracer("faultline.analysis"),
	})
	if err != nil {
		return err
	}

	apiDeps := []lifecycle.Component{tracingProvider, storeComp}
	if cfg.WatchPolicy {
		watcher, err := config.NewPolicyWatcher(config.PolicyWatcherConfig{
			FilePath: cfg.PolicyPath,
			OnError: func(error) {
				m.PolicyReloads.WithLabelValues("rejected").Inc()
			},
		}, func(p *config.Policy) error {
			if err := engine.SetPolicy(*p); err != nil {
				m.PolicyReloads.WithLabelValues("rejected").Inc()
				return err
			}
			m.PolicyReloads.WithLabelValues("applied").Inc()
			return nil
		})
		if err != nil {
			return err
		}
		if err := manager.Register(watcher); err != nil {
			return err
		}
		apiDeps = append(apiDeps, watcher)
	}

	mcpServer, err := mcp.NewServer(engine, Version)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	apiServer, err := apiserver.New(apiserver.Options{
		Port:        cfg.APIPort,
		CORSOrigins: cfg.CORSOrigins,
		Analytics:   engine,
		Readiness:   engine,
		Metrics:     m,
		Gatherer:    registry,
		Tracer:      tracingProvider.Tracer("faultline.api"),
		MCPServer:   mcpServer.MCPServer(),
	})
	if err != nil {
		return err
	}
	if err := manager.Register(apiServer, apiDeps...); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := manager.Start(ctx); err != nil {
		return err
	}

	if stdioEnabled {
		logger.Info("Starting stdio MCP transport alongside HTTP")
		go func() {
			if err := server.ServeStdio(mcpServer.MCPServer()); err != nil {
				logger.Error("Stdio transport error: %v", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("Shutdown signal received, gracefully shutting down...")

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout+5*time.Second)
	defer cancel()
	if err := manager.Stop(stopCtx); err != nil {
		logger.Error("Shutdown completed with errors: %v", err)
		return err
	}
	logger.Info("Shutdown complete")
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}
