package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/phuslu/log"
	"github.com/spf13/cobra"

	"sketchscan/internal/analysis"
	"sketchscan/internal/config"
	"sketchscan/internal/crawler"
	"sketchscan/internal/logging"
	"sketchscan/internal/registry"
	"sketchscan/internal/sandbox"
	"sketchscan/internal/storage"
)

var (
	rootCmd = &cobra.Command{
		Use:          "sketchscan",
		Short:        "Static and dry-run analysis of p5-style drawing sketches",
		SilenceUsage: true,
	}
	configPath string
	dbPath     string
	logLevel   string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "sketchscan.yaml", "Path to the configuration file")
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Path to the report archive (SQLite), overrides storage.path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level, overrides logging.level")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(registryCmd)
}

// env is everything a command needs, built from the configuration.
type env struct {
	cfg      *config.Config
	logger   *log.Logger
	reg      *registry.Registry
	analyzer *analysis.Analyzer
	crawler  *crawler.Crawler
}

func loadEnv() (*env, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if dbPath != "" {
		cfg.Storage.Path = dbPath
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)

	reg, err := loadRegistry(cfg)
	if err != nil {
		return nil, err
	}

	sb := sandbox.New(reg, cfg.SandboxOptions())
	return &env{
		cfg:      cfg,
		logger:   logger,
		reg:      reg,
		analyzer: analysis.NewAnalyzer(reg, cfg.Entries, sb, logger),
		crawler:  crawler.NewCrawler(cfg.Scan.Ignore...),
	}, nil
}

func loadRegistry(cfg *config.Config) (*registry.Registry, error) {
	if cfg.Registry.Path == "" {
		return registry.Default()
	}
	return registry.Load(cfg.Registry.Path)
}

// initStore opens the report archive.
func (e *env) initStore() (*storage.SQLiteStore, error) {
	if dir := filepath.Dir(e.cfg.Storage.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create archive directory: %w", err)
		}
	}
	store, err := storage.NewSQLiteStore(e.cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return store, nil
}
