// Package cmd provides the command-line interface for scopecrawl.
// It handles command parsing, configuration loading, and crawler execution.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/masahif/scopecrawl/internal/config"
	"github.com/masahif/scopecrawl/internal/crawler"
	"github.com/masahif/scopecrawl/internal/logging"
	"github.com/masahif/scopecrawl/internal/metrics"
	"github.com/masahif/scopecrawl/internal/stats"
	"github.com/masahif/scopecrawl/internal/storage"
)

const defaultUserAgent = "scopecrawl/1.0"

var (
	cfgFile   string
	version   string
	buildTime string

	// logCloser releases the structured log file opened in PersistentPreRunE
	logCloser io.Closer
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "scopecrawl [URLs...]",
	Short: "A polite, scope-limited crawler with trap avoidance",
	Long: `scopecrawl crawls a fixed set of authorized domains.

It follows in-scope links breadth-first, skips crawl traps such as
calendar queries and looping paths, waits between requests, and keeps
word statistics that survive interruption. Run it again without URLs to
resume an interrupted crawl.`,
	Args:               cobra.ArbitraryArgs,
	PersistentPreRunE:  setupLogging,
	PersistentPostRunE: closeLogging,
	RunE:               runCrawler,
	SilenceUsage:       true,
}

// ExecuteContext runs the root command. Cancelling ctx stops a running crawl;
// the final checkpoint is still written.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// SetVersionInfo sets version information for the CLI
func SetVersionInfo(v, bt string) {
	version = v
	buildTime = bt
	rootCmd.Version = fmt.Sprintf("%s (built %s)", version, buildTime)
}

func init() {
	cobra.OnInitialize(initConfig)

	defaults := config.DefaultConfig()

	// Configuration file flag
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./scopecrawl.yml)")

	// Configuration management flags
	rootCmd.Flags().Bool("show-config", false, "Display current configuration in YAML format and exit")

	// Basic crawling flags
	rootCmd.Flags().IntP("concurrency", "c", defaults.Concurrency, "Number of concurrent workers")
	rootCmd.Flags().DurationP("delay", "r", defaults.RequestDelay, "Politeness delay after each page")
	rootCmd.Flags().DurationP("timeout", "t", defaults.RequestTimeout, "HTTP request timeout")
	rootCmd.Flags().StringP("user-agent", "u", defaults.UserAgent, "HTTP User-Agent header")
	rootCmd.Flags().IntP("max-iterations", "n", defaults.MaxIterations, "Stop after N fetches (0=unlimited)")
	rootCmd.Flags().Int64("max-body-size", defaults.MaxBodySize, "Maximum bytes read per response")

	// HTTP Headers flags
	rootCmd.Flags().StringSliceP("header", "H", []string{}, "Custom HTTP headers in 'Name: Value' format (use multiple times for multiple headers)")

	// Scope flags
	rootCmd.Flags().StringSlice("allowed-domain", defaults.Scope.AllowedDomains, "Authorized domains; subdomains are included")
	rootCmd.Flags().Int("max-query-params", defaults.Scope.MaxQueryParams, "Treat URLs with more query parameters as traps (0=no limit)")
	rootCmd.Flags().Bool("reject-all-queries", false, "Never crawl URLs that carry a query string")

	// Persistence flags
	rootCmd.Flags().StringP("database", "d", defaults.DatabasePath, "Path to SQLite frontier database")
	rootCmd.Flags().String("checkpoint", defaults.CheckpointPath, "Path to the statistics checkpoint file")
	rootCmd.Flags().Int("checkpoint-every", defaults.CheckpointEvery, "Pages between checkpoint writes")
	rootCmd.Flags().StringP("output", "o", defaults.DiscoveredLinksPath, "File receiving every accepted URL, one per line")

	// Logging flags
	rootCmd.PersistentFlags().String("log-level", defaults.Log.Level, "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", defaults.Log.Format, "Log format: json or text")
	rootCmd.PersistentFlags().String("log-file", defaults.Log.File, "Also write structured logs to this file")
	rootCmd.PersistentFlags().String("fetch-log", defaults.Log.FetchLogPath, "Path to the per-download fetch log")

	// Metrics flags
	rootCmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")

	bindFlags := []struct {
		viperKey string
		flagName string
	}{
		{"concurrency", "concurrency"},
		{"request_delay", "delay"},
		{"request_timeout", "timeout"},
		{"user_agent", "user-agent"},
		{"max_iterations", "max-iterations"},
		{"max_body_size", "max-body-size"},
		{"headers", "header"},
		{"scope.allowed_domains", "allowed-domain"},
		{"scope.max_query_params", "max-query-params"},
		{"scope.reject_all_queries", "reject-all-queries"},
		{"database_path", "database"},
		{"checkpoint_path", "checkpoint"},
		{"checkpoint_every", "checkpoint-every"},
		{"discovered_links_path", "output"},
		{"metrics_addr", "metrics-addr"},
	}
	persistentFlags := []struct {
		viperKey string
		flagName string
	}{
		{"log.level", "log-level"},
		{"log.format", "log-format"},
		{"log.file", "log-file"},
		{"log.fetch_log_path", "fetch-log"},
	}

	for _, bind := range bindFlags {
		if err := viper.BindPFlag(bind.viperKey, rootCmd.Flags().Lookup(bind.flagName)); err != nil {
			// Log the error but continue - non-critical for operation
			fmt.Fprintf(os.Stderr, "Warning: failed to bind flag %s: %v\n", bind.flagName, err)
		}
	}
	for _, bind := range persistentFlags {
		if err := viper.BindPFlag(bind.viperKey, rootCmd.PersistentFlags().Lookup(bind.flagName)); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to bind flag %s: %v\n", bind.flagName, err)
		}
	}

	rootCmd.AddCommand(scanLogCmd, reportCmd)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Search for config in current directory
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("scopecrawl")
	}

	viper.AutomaticEnv() // read in environment variables that match
	viper.SetEnvPrefix("SC")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// loadConfig layers viper values (flags, environment, config file) over the
// defaults
func loadConfig(seeds []string) (*config.CrawlConfig, error) {
	cfg := config.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if len(seeds) > 0 {
		cfg.SeedURLs = seeds
	}
	return cfg, nil
}

func setupLogging(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}

	closer, err := logging.SetDefault(logging.Config{
		Level:      logging.ParseLevel(cfg.Log.Level),
		Format:     cfg.Log.Format,
		FilePath:   cfg.Log.File,
		MaxSize:    cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		Console:    true,
	})
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	logCloser = closer
	return nil
}

func closeLogging(cmd *cobra.Command, args []string) error {
	if logCloser == nil {
		return nil
	}
	err := logCloser.Close()
	logCloser = nil
	return err
}

func generateUserAgent() string {
	if version != "" && version != "dev" {
		return fmt.Sprintf("scopecrawl/%s", version)
	}
	return "scopecrawl/dev"
}

func showCurrentConfig(w io.Writer, cfg *config.CrawlConfig) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	// Validate configuration before showing it
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Configuration validation failed: %v\n", err)
		fmt.Fprintf(os.Stderr, "Displaying configuration anyway...\n\n")
	}

	yamlData, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration to YAML: %w", err)
	}

	fmt.Fprintf(w, "# Current scopecrawl Configuration\n")
	fmt.Fprintf(w, "# Generated at: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(w, "# Configuration file search paths: ./scopecrawl.yml\n")
	fmt.Fprintf(w, "# Environment variables prefix: SC_\n\n")

	fmt.Fprint(w, string(yamlData))

	fmt.Fprintf(w, "\n# Configuration source priority:\n")
	fmt.Fprintf(w, "# 1. Command-line arguments (highest priority)\n")
	fmt.Fprintf(w, "# 2. Environment variables (SC_ prefix)\n")
	fmt.Fprintf(w, "# 3. Configuration file (scopecrawl.yml)\n")
	fmt.Fprintf(w, "# 4. Default values (lowest priority)\n")

	return nil
}

func runCrawler(cmd *cobra.Command, args []string) error {
	showConfig, _ := cmd.Flags().GetBool("show-config")

	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}

	// Update User-Agent with dynamic version if not explicitly set
	if !cmd.Flags().Changed("user-agent") && cfg.UserAgent == defaultUserAgent {
		cfg.UserAgent = generateUserAgent()
	}

	// Handle --show-config: display current configuration and exit
	if showConfig {
		return showCurrentConfig(cmd.OutOrStdout(), cfg)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Validate startup conditions: prevent running without URLs and without existing database
	if len(cfg.SeedURLs) == 0 {
		hasWork, err := hasQueuedWork(cfg.DatabasePath)
		if err != nil {
			return err
		}
		if !hasWork {
			fmt.Fprintf(cmd.OutOrStdout(), "No URLs provided and no queued items found in database %s\n", cfg.DatabasePath)
			fmt.Fprintf(cmd.OutOrStdout(), "Nothing to crawl. Exiting.\n")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Resuming crawl from existing database: %s\n", cfg.DatabasePath)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Starting crawler with configuration:\n")
	if len(cfg.SeedURLs) > 0 {
		fmt.Fprintf(out, "  Seed URLs: %v\n", cfg.SeedURLs)
	} else {
		fmt.Fprintf(out, "  Seed URLs: (none - resuming from existing queue)\n")
	}
	fmt.Fprintf(out, "  Allowed Domains: %v\n", cfg.Scope.AllowedDomains)
	fmt.Fprintf(out, "  Max Iterations: %d\n", cfg.MaxIterations)
	fmt.Fprintf(out, "  Concurrency: %d\n", cfg.Concurrency)
	fmt.Fprintf(out, "  Request Delay: %v\n", cfg.RequestDelay)
	fmt.Fprintf(out, "  Database: %s\n", cfg.DatabasePath)
	fmt.Fprintf(out, "  Checkpoint: %s\n", cfg.CheckpointPath)

	summary, err := crawl(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Crawl finished: %d visited (%d failed), %d discovered, %d rejected, %d pending, %s\n",
		summary.Visited, summary.Failed, summary.Discovered, summary.Rejected, summary.Pending, summary.Duration.Round(time.Millisecond))
	return nil
}

// hasQueuedWork reports whether an existing database holds URLs to resume
func hasQueuedWork(dbPath string) (bool, error) {
	if _, err := os.Stat(dbPath); errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("no URLs provided and no existing database found at %s\nUsage: %s [URLs...] or ensure database exists for resume operation",
			dbPath, os.Args[0])
	}

	tempStorage, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return false, fmt.Errorf("failed to open database %s: %w", dbPath, err)
	}
	defer func() { _ = tempStorage.Close() }()

	hasWork, err := tempStorage.HasQueuedItems()
	if err != nil {
		return false, fmt.Errorf("failed to check queue status: %w", err)
	}
	return hasWork, nil
}

// crawl wires the crawler's collaborators and runs it
func crawl(ctx context.Context, cfg *config.CrawlConfig) (crawler.Summary, error) {
	// Create database directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0750); err != nil {
		return crawler.Summary{}, fmt.Errorf("failed to create database directory: %w", err)
	}

	store, err := storage.NewSQLiteStorage(cfg.DatabasePath)
	if err != nil {
		return crawler.Summary{}, fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	linkLog, err := storage.OpenLinkLog(cfg.DiscoveredLinksPath)
	if err != nil {
		return crawler.Summary{}, err
	}
	defer func() {
		if err := linkLog.Close(); err != nil {
			slog.Error("Failed to close link log", "error", err)
		}
	}()

	fetchLog, err := logging.OpenFetchLog(cfg.Log.FetchLogPath, cfg.Log.MaxSizeMB, cfg.Log.MaxBackups)
	if err != nil {
		return crawler.Summary{}, fmt.Errorf("failed to open fetch log: %w", err)
	}
	defer func() { _ = fetchLog.Close() }()

	met := metrics.NewMetrics()
	if cfg.MetricsAddr != "" {
		metricsCtx, stopMetrics := context.WithCancel(ctx)
		defer stopMetrics()
		go func() {
			if err := met.Serve(metricsCtx, cfg.MetricsAddr); err != nil {
				slog.Error("Metrics server failed", "error", err)
			}
		}()
	}

	recorder := stats.NewRecorder(stats.NewEngine(), met.InstrumentStore(stats.NewFileStore(cfg.CheckpointPath)), cfg.CheckpointEvery)
	resumed := recorder.Resume()
	if resumed.ProcessedCount > 0 {
		slog.Info("Resumed statistics from checkpoint", "processed", resumed.ProcessedCount, "path", cfg.CheckpointPath)
	}

	c, err := crawler.NewCrawler(cfg, store,
		crawler.WithLinkSink(linkLog),
		crawler.WithFetchLog(fetchLog),
		crawler.WithStatsRecorder(recorder),
		crawler.WithObserver(met),
	)
	if err != nil {
		return crawler.Summary{}, fmt.Errorf("failed to initialize crawler: %w", err)
	}
	defer c.Close()

	return c.Run(ctx, cfg.SeedURLs)
}
