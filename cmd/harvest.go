package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pbaranau/offersnap/internal/api"
	"github.com/pbaranau/offersnap/internal/browser"
	"github.com/pbaranau/offersnap/internal/clock/system"
	"github.com/pbaranau/offersnap/internal/config"
	"github.com/pbaranau/offersnap/internal/logging"
	"github.com/pbaranau/offersnap/internal/scrape"
	"github.com/pbaranau/offersnap/internal/sink"
)

const defaultConfigFile = "offersnap.yaml"

// newHarvestCmd creates the 'harvest' subcommand, which runs one full pass
// over the configured sites and exits.
func newHarvestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "harvest",
		Short: "Runs one harvest pass over all configured sites",
		Long: `Crawls every configured site, two at a time, collecting offers posted
within the last day, and writes one snapshot document per site.`,

		RunE: runHarvestCommand,
	}
}

func runHarvestCommand(cmd *cobra.Command, _ []string) error {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			path = defaultConfigFile
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if len(cfg.Sites) == 0 {
		return fmt.Errorf("no sites configured")
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clk := system.New()

	session, err := buildSession(cfg, logger)
	if err != nil {
		return fmt.Errorf("init browser session: %w", err)
	}
	defer func() {
		if cerr := session.Close(context.Background()); cerr != nil {
			logger.Warn("browser close failed", zap.Error(cerr))
		}
	}()

	writer, cleanup, err := buildSinks(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("init sinks: %w", err)
	}
	defer cleanup()

	loader := scrape.NewLoader(session, clk, clk, logger)
	normalizer := scrape.NewNormalizer(cfg.Locale.TodayWord, cfg.Locale.YesterdayWord)
	extractor := scrape.NewExtractor(normalizer, clk, logger)
	crawler := scrape.NewCrawler(loader, extractor, cfg.LoadBudget(), logger)
	orch := scrape.NewOrchestrator(crawler, writer, clk, logger, cfg.Logging.Development)

	shutdownMetrics := startMetrics(cfg, logger)
	defer shutdownMetrics()

	orch.Run(ctx, cfg.Sites)
	return nil
}

func buildSession(cfg config.Config, logger *zap.Logger) (scrape.Browser, error) {
	browserCfg := browser.Config{
		UserAgent:  cfg.Browser.UserAgent,
		NavTimeout: cfg.NavTimeout(),
		DomainQPS:  cfg.Browser.DomainQPS,
	}
	switch cfg.Browser.Engine {
	case config.EngineColly:
		return browser.NewColly(browserCfg, nil, logger)
	default:
		return browser.NewChromedp(browserCfg, logger)
	}
}

// buildSinks assembles the snapshot destinations. The filesystem sink is
// always present; Postgres and GCS join when configured. The returned cleanup
// releases pooled resources.
func buildSinks(ctx context.Context, cfg config.Config, logger *zap.Logger) (scrape.SnapshotWriter, func(), error) {
	fs, err := sink.NewFilesystem(cfg.Sink.DataDir, cfg.Logging.Development)
	if err != nil {
		return nil, nil, fmt.Errorf("init filesystem sink: %w", err)
	}
	writers := []scrape.SnapshotWriter{fs}
	cleanup := func() {}

	if cfg.Sink.PostgresDSN != "" {
		pg, err := sink.NewPostgres(ctx, cfg.Sink.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("init postgres sink: %w", err)
		}
		writers = append(writers, pg)
		cleanup = pg.Close
	}

	if cfg.Sink.GCSBucket != "" {
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("init storage client: %w", err)
		}
		gcs, err := sink.NewGCS(client, cfg.Sink.GCSBucket)
		if err != nil {
			return nil, nil, fmt.Errorf("init gcs sink: %w", err)
		}
		writers = append(writers, gcs)
		prev := cleanup
		cleanup = func() {
			prev()
			if cerr := client.Close(); cerr != nil {
				logger.Warn("storage client close failed", zap.Error(cerr))
			}
		}
	}

	if len(writers) == 1 {
		return fs, cleanup, nil
	}
	return sink.NewMulti(writers...), cleanup, nil
}

// startMetrics serves /metrics for the duration of the run when an address
// is configured. The returned function drains the listener.
func startMetrics(cfg config.Config, logger *zap.Logger) func() {
	if cfg.Metrics.Addr == "" {
		return func() {}
	}
	srv := api.NewServer(cfg.Metrics.Addr, logger)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("metrics listener failed", zap.Error(err))
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("metrics listener shutdown failed", zap.Error(err))
		}
	}
}
