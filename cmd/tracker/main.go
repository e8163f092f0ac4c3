// Command tracker serves the AMR price page and Slack app, and queries
// prices from the command line.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"PriceTracker/internal/collector"
	"PriceTracker/internal/config"
	"PriceTracker/internal/logging"
	"PriceTracker/internal/recorder"
)

var (
	cfgPath string
	cfg     *config.Config
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "tracker",
	Short: "AMR jewellery price tracker",
	Long: `tracker fetches per-gram jewellery prices from the branch rate service
and shows them on a web page, in a Slack app home and on the command line.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("config validation: %w", err)
		}
		logger, err = logging.New(cfg.Log.Level)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	defaultPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultPath = v
	}
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", defaultPath, "path to the YAML config file")
	rootCmd.AddCommand(serveCmd, pricesCmd, rangeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newRecorder opens the SQLite query log, falling back to a no-op recorder.
func newRecorder() recorder.Recorder {
	if cfg.Database.SQLitePath == "" {
		return recorder.NewNoopRecorder()
	}
	sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, logger)
	if err != nil {
		logger.Warn("init sqlite recorder failed, using noop", zap.Error(err))
		return recorder.NewNoopRecorder()
	}
	return sr
}

func newCollector(rec recorder.Recorder) *collector.Collector {
	fetcher := collector.NewUpstreamFetcher(cfg.Upstream.BaseURL, cfg.Upstream.Branch, cfg.Proxy, cfg.Upstream.Timeout)
	logger.Debug("data source", zap.String("fetcher", fetcher.Name()), zap.String("base_url", cfg.Upstream.BaseURL))
	return collector.NewCollector(fetcher, rec, logger)
}
