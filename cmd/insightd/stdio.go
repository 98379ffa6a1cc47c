package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/axiombi/insightd/internal/config"
	"github.com/axiombi/insightd/internal/logging"
	"github.com/axiombi/insightd/internal/stdio"
)

// runStdio starts the MCP server in stdio mode.
//
// Tool calls are delegated to the HTTP daemon, so the stdio bridge
// shares the daemon's analysis cache instead of duplicating services:
// multiple concurrent stdio sessions all see the same cached reports
// and staleness marks.
func runStdio(configPath string) error {
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

	daemonURL := fmt.Sprintf("http://%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("starting insightd in MCP stdio mode",
		zap.String("daemon_url", daemonURL))

	mcpServer, err := stdio.NewServer(daemonURL, version)
	if err != nil {
		return fmt.Errorf("failed to create stdio server: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	// stdout carries the MCP protocol; startup notices go to stderr.
	fmt.Fprintf(os.Stderr, "insightd stdio mode started (delegating to daemon at %s)\n", daemonURL)

	if err := mcpServer.Run(ctx); err != nil {
		return fmt.Errorf("stdio server error: %w", err)
	}

	logger.Info("stdio MCP server shutdown complete")
	return nil
}
