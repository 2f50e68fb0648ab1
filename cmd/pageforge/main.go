package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kestrel-labs/pageforge/internal/config"
	"github.com/kestrel-labs/pageforge/internal/engine"
	"github.com/kestrel-labs/pageforge/internal/types"
)

var (
	cfgFile           string
	verbose           bool
	outputDir         string
	maxConcurrentTabs int
	headless          bool
	maxDepth          int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "pageforge",
		Short: "pageforge — concurrent web-to-PDF harvesting engine",
		Long: `pageforge drives a pool of headless browser tabs across a site, isolating
each page's core content and exporting it to PDF.

Features:
  • Bounded concurrent tab scheduling with per-page processor pipelines
  • CSS-selector-driven link discovery, element cleanup, and content isolation
  • Request accounting with configurable URL blocking
  • Prometheus metrics endpoint
  • Pluggable lifecycle-event sinks (file, MongoDB)`,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(harvestCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func harvestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "harvest [url...]",
		Short: "Harvest one or more URLs to PDF",
		Long:  "Seed the Frontier with the given URL(s) and run the Tab Scheduler until the run drains.",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runHarvest,
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory for exported PDFs (overrides config)")
	cmd.Flags().IntVarP(&maxConcurrentTabs, "tabs", "n", 0, "max concurrent browser tabs (overrides config)")
	cmd.Flags().BoolVar(&headless, "headless", true, "run the browser headless")
	cmd.Flags().IntVarP(&maxDepth, "max-depth", "d", 0, "max link-following depth (overrides config, 0 = use config default)")

	return cmd
}

func runHarvest(cmd *cobra.Command, args []string) error {
	logger := setupLogger()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyCLIOverrides(cfg, args)

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger.Info("starting harvest",
		"entry_urls", cfg.Engine.EntryURLs,
		"max_concurrent_tabs", cfg.Engine.MaxConcurrentTabs,
		"output_dir", cfg.Engine.OutputDir,
	)

	eng, err := engine.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("construct engine: %w", err)
	}

	if cfg.Metrics.Enabled {
		go serveMetrics(cfg, eng, logger)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	start := time.Now()
	runErr := eng.Run(ctx)
	elapsed := time.Since(start)

	census := eng.Frontier().Snapshot()
	fmt.Printf("\nHarvest complete in %s\n", elapsed.Round(time.Millisecond))
	fmt.Printf("  Pending:    %d\n", census[types.StatusPending])
	fmt.Printf("  Visited:    %d\n", census[types.StatusVisited])
	fmt.Printf("  Failed:     %d\n", census[types.StatusFailed])
	fmt.Printf("  Output:     %s\n", cfg.Engine.OutputDir)

	return runErr
}

func serveMetrics(cfg *config.Config, eng *engine.Engine, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle(cfg.Metrics.Path, eng.Recorder().Handler())
	addr := fmt.Sprintf(":%d", cfg.Metrics.Port)
	logger.Info("metrics server listening", "addr", addr, "path", cfg.Metrics.Path)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server stopped", "error", err)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("pageforge %s\n", config.Version)
		},
	}
}

func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			fmt.Printf("Engine:\n")
			fmt.Printf("  MaxConcurrentTabs: %d\n", cfg.Engine.MaxConcurrentTabs)
			fmt.Printf("  PageTimeout:       %s\n", cfg.Engine.PageTimeout)
			fmt.Printf("  PollInterval:      %s\n", cfg.Engine.PollInterval)
			fmt.Printf("  OutputDir:         %s\n", cfg.Engine.OutputDir)
			fmt.Printf("\nBrowser:\n")
			fmt.Printf("  Headless:          %v\n", cfg.Browser.Headless)
			fmt.Printf("  Stealth:           %v\n", cfg.Browser.Stealth)
			fmt.Printf("\nLinks:\n")
			fmt.Printf("  Selector:          %s\n", cfg.Links.Selector)
			fmt.Printf("  MaxDepth:          %d\n", cfg.Links.MaxDepth)
			fmt.Printf("\nSink:\n")
			fmt.Printf("  Type:              %s\n", cfg.Sink.Type)
			fmt.Printf("\nMetrics:\n")
			fmt.Printf("  Enabled:           %v\n", cfg.Metrics.Enabled)
			fmt.Printf("  Port:              %d\n", cfg.Metrics.Port)
			return nil
		},
	}
}

func setupLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}

func applyCLIOverrides(cfg *config.Config, entryURLs []string) {
	cfg.Engine.EntryURLs = entryURLs
	if outputDir != "" {
		cfg.Engine.OutputDir = outputDir
	}
	if maxConcurrentTabs > 0 {
		cfg.Engine.MaxConcurrentTabs = maxConcurrentTabs
	}
	cfg.Browser.Headless = headless
	if maxDepth > 0 {
		cfg.Links.MaxDepth = maxDepth
	}
}
