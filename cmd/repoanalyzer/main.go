package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sattwyk/repoanalyzer/internal/config"
	"github.com/sattwyk/repoanalyzer/internal/metrics"
)

// main is the entry point
func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "repoanalyzer",
		Short: "Inspect the structure of GitHub repositories",
		Long: `repoanalyzer fetches a GitHub repository's file tree and renders it as
an ASCII tree, filtered listings and exports (markdown, text, JSON, YAML,
HTML, AI prompt), together with a heuristic tech stack and complexity score.`,
		SilenceUsage: true,
	}

	root.AddCommand(newServeCmd(), newAnalyzeCmd(), newBatchCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and websocket service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	server, err := NewServer(cfg, metrics.New())
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	log.Printf("%s service started successfully", serviceName)
	<-ctx.Done()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server gracefully: %w", err)
	}
	return nil
}
