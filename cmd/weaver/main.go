package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/alvmarrod/wiki-weaver/internal/config"
	"github.com/alvmarrod/wiki-weaver/internal/storage"
	"github.com/alvmarrod/wiki-weaver/internal/version"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const defaultConfigPath = "config.json"

var (
	configPath  string
	dbPath      string
	logLevel    string
	metricsAddr string
)

var rootCmd = &cobra.Command{
	Use:   "weaver",
	Short: "Wiki Weaver - shortest link paths between encyclopedia articles",
	Long: `Wiki Weaver searches the article link graph breadth-first for the shortest
click paths from start articles to a set of end articles. Every fetched page,
dead end and solved path is kept in a local database so later searches reuse it.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath, "Path to the JSON config file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Database path (overrides db_path)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (overrides log_level)")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (overrides metrics_addr)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}

// app holds what every command needs
type app struct {
	cfg   *config.Config
	store *storage.Storage
}

// loadConfig reads the config file and applies command line overrides. A
// missing file is only an error when --config was given explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if errors.Is(err, os.ErrNotExist) && !cmd.Flags().Changed("config") {
		cfg, err = config.Default(), nil
	}
	if err != nil {
		return nil, err
	}

	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if metricsAddr != "" {
		cfg.MetricsAddr = metricsAddr
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setupLogging(level string) {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
}

// openApp loads configuration, configures logging and opens the database
func openApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	setupLogging(cfg.LogLevel)

	store, err := storage.NewStorage(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	logrus.Debugf("Database initialized: %s", cfg.DBPath)

	return &app{cfg: cfg, store: store}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		logrus.Errorf("Failed to close database: %v", err)
	}
}

// serveMetrics exposes Prometheus metrics until ctx is done
func serveMetrics(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logrus.Infof("Serving metrics on http://%s/metrics", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Errorf("Metrics server stopped: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()
}
