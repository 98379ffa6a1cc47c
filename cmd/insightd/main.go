// Insightd is the analysis daemon behind the pharma sales dashboard.
//
// It serves the HTTP tool surface, memoizes AI-generated analysis
// reports in a process-wide cache with staleness tracking, and
// optionally bridges cache invalidations over NATS so the chat
// assistant can refresh analyses it never rendered.
//
// Usage:
//
//	# Start the daemon with defaults
//	insightd
//
//	# Load a config file; env vars override it
//	insightd -config ~/.config/insightd/config.yaml
//
//	# MCP stdio mode, delegating tool calls to a running daemon
//	insightd stdio
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/axiombi/insightd/internal/analysis"
	"github.com/axiombi/insightd/internal/cache"
	"github.com/axiombi/insightd/internal/config"
	"github.com/axiombi/insightd/internal/llm"
	"github.com/axiombi/insightd/internal/logging"
	"github.com/axiombi/insightd/internal/marketdata"
	"github.com/axiombi/insightd/internal/server"
	"github.com/axiombi/insightd/internal/store"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	flag.Parse()
	args := flag.Args()

	if len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		case "stdio":
			if err := runStdio(*configPath); err != nil {
				log.Fatalf("stdio error: %v", err)
			}
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  insightd           Start the insightd daemon\n")
			fmt.Fprintf(os.Stderr, "  insightd stdio     Start the MCP stdio bridge\n")
			fmt.Fprintf(os.Stderr, "  insightd version   Show version information\n")
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server shutdown complete")
}

// printVersion prints version information.
func printVersion() {
	fmt.Printf("insightd\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run starts the daemon and blocks until ctx is cancelled:
//  1. Loads and validates configuration
//  2. Initializes the logger
//  3. Connects to NATS when enabled
//  4. Opens the proposal store
//  5. Builds the analyzer, report cache, coordinator and refresher
//  6. Starts the HTTP server and performs graceful shutdown
func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logging.Sync(logger)
	}()

	logger.Info("starting insightd",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.Duration("shutdown_timeout", cfg.Server.ShutdownTimeout))

	// NATS is optional: without it, invalidations stay in-process.
	var nc *nats.Conn
	if cfg.NATS.Enabled {
		nc, err = nats.Connect(cfg.NATS.URL,
			nats.RetryOnFailedConnect(true),
			nats.MaxReconnects(5),
			nats.ReconnectWait(1*time.Second),
		)
		if err != nil {
			return fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATS.URL, err)
		}
		defer nc.Close()
		logger.Info("connected to NATS", zap.String("url", cfg.NATS.URL))
	}

	storePath := cfg.Store.Path
	if storePath == "" {
		storePath, err = config.DefaultStorePath()
		if err != nil {
			return fmt.Errorf("failed to resolve store path: %w", err)
		}
	}
	proposals, err := store.Open(storePath, logger.Named("store"))
	if err != nil {
		return fmt.Errorf("failed to open proposal store: %w", err)
	}
	if err := proposals.Watch(); err != nil {
		logger.Warn("proposal store watch disabled", zap.Error(err))
	}
	defer proposals.Close()

	completer, err := llm.NewCompleter(llm.Config{
		Provider:  cfg.LLM.Provider,
		Model:     cfg.LLM.Model,
		APIKey:    cfg.LLM.APIKey,
		BaseURL:   cfg.LLM.BaseURL,
		MaxTokens: cfg.LLM.MaxTokens,
		Timeout:   cfg.LLM.Timeout,
	})
	if err != nil {
		return fmt.Errorf("failed to create completion client: %w", err)
	}
	analyzer := analysis.NewAnalyzer(completer, logger.Named("analyzer"))

	// The report cache and its collaborators. Created here, at the
	// entry point, and injected downward; nothing holds ambient
	// singletons.
	reports := cache.NewStore[*analysis.AnalysisReport]()
	reports.SetMetrics(cache.NewMetrics())
	coordinator := cache.NewCoordinator(reports, logger.Named("cache"))
	refresher := server.NewRefresher(reports, coordinator, logger.Named("refresher"))
	refresher.Start(ctx)

	if nc != nil {
		bridge, err := cache.NewBridge(nc, reports, logger.Named("bridge"))
		if err != nil {
			return fmt.Errorf("failed to create invalidation bridge: %w", err)
		}
		if err := bridge.Start(); err != nil {
			return fmt.Errorf("failed to start invalidation bridge: %w", err)
		}
		defer bridge.Stop()
		logger.Info("invalidation bridge started")
	}

	srv, err := server.NewServer(server.Dependencies{
		Market:      marketdata.NewService(),
		Analyzer:    analyzer,
		Reports:     reports,
		Coordinator: coordinator,
		Refresher:   refresher,
		Proposals:   proposals,
		NATS:        nc,
	}, logger.Named("http"), &server.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	})
	if err != nil {
		return fmt.Errorf("failed to create http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	return <-errCh
}
