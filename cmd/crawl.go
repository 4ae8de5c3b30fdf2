package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/openlex/lexcrawl/internal/api"
	"github.com/openlex/lexcrawl/internal/browser"
	"github.com/openlex/lexcrawl/internal/config"
	"github.com/openlex/lexcrawl/internal/crawl"
	"github.com/openlex/lexcrawl/internal/engine"
	"github.com/openlex/lexcrawl/internal/fetcher/static"
	"github.com/openlex/lexcrawl/internal/logging"
	"github.com/openlex/lexcrawl/internal/pool"
	"github.com/openlex/lexcrawl/internal/progress"
	"github.com/openlex/lexcrawl/internal/progress/sinks"
	"github.com/openlex/lexcrawl/internal/queue"
	"github.com/openlex/lexcrawl/internal/sites/california"
	"github.com/openlex/lexcrawl/internal/storage"
	"github.com/openlex/lexcrawl/internal/store"

	redis "github.com/redis/go-redis/v9"
)

// newCrawlCmd creates and configures the 'crawl' subcommand.
func newCrawlCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "crawl",
		Short: "Starts the law crawler",
		Long: `Walks the configured seed pages breadth-first, extracts every
law section behind the discovered leaf pages, and persists each section
exactly once. SIGINT or SIGTERM cancels the crawl cooperatively.`,
		RunE: runCrawlCommand,
	}
}

func runCrawlCommand(cmd *cobra.Command, _ []string) error {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("lexcrawl.yaml"); err == nil {
			path = "lexcrawl.yaml"
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Config{
		Development: cfg.Logging.Development,
		File:        cfg.Logging.File,
		MaxSizeMB:   cfg.Logging.MaxSizeMB,
		MaxBackups:  cfg.Logging.MaxBackups,
		MaxAgeDays:  cfg.Logging.MaxAgeDays,
	})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Guard layer: Postgres is authoritative, Redis is an optional
	// read-through cache in front of it.
	pg, err := store.NewPostgres(ctx, cfg.DB.DSN, logger)
	if err != nil {
		return err
	}
	defer pg.Close()
	var guard crawl.Guard = pg
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		defer func() { _ = client.Close() }()
		ttl := time.Duration(cfg.Redis.TTLMinutes) * time.Minute
		guard = store.NewRedisCache(pg, client, ttl, logger)
	}

	archive, err := buildArchive(ctx, cfg, logger)
	if err != nil {
		return err
	}
	publisher, err := buildPublisher(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Warn("publisher close failed", zap.Error(err))
		}
	}()

	// Browser handle pool, sized down if memory is tight.
	capacity := pool.ClampCapacity(cfg.Crawler.PoolCapacity,
		uint64(cfg.Crawler.HandleMemoryMB)*1024*1024, logger)
	factory := browser.NewFactory(browser.Config{
		UserAgent:         cfg.Browser.UserAgent,
		NavigationTimeout: time.Duration(cfg.Browser.NavTimeoutSeconds) * time.Second,
	})
	defer factory.Close()
	handles, err := pool.New(ctx, factory, capacity, logger)
	if err != nil {
		return err
	}
	defer handles.Shutdown()

	probe := static.New(static.Config{
		UserAgent: cfg.Browser.UserAgent,
		Timeout:   time.Duration(cfg.Browser.ProbeTimeoutSecs) * time.Second,
	}, logger)
	site := california.New(probe, logger)

	eng := engine.New(engine.Config{
		Seeds:       cfg.Crawler.Seeds,
		MaxAttempts: cfg.Crawler.MaxAttempts,
		Backoff:     cfg.Backoff(),
		TaskTimeout: cfg.TaskTimeout(),
	}, handles, site, guard, archive, publisher, logger)

	// Signals translate into cooperative cancellation, not process death.
	go func() {
		<-ctx.Done()
		eng.Cancel()
	}()

	reporter := progress.NewReporter(cfg.ReportInterval(), eng.Status, logger,
		sinks.NewLogSink(logger),
		sinks.NewPromSink(),
		sinks.NewConsoleSink(),
	)
	reporter.Start()
	defer reporter.Stop()

	var server *api.Server
	if cfg.Server.Enabled {
		server = api.NewServer(eng, cfg.Server.Port, logger)
		go func() {
			if err := server.Start(); err != nil {
				logger.Error("status server failed", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Warn("status server shutdown failed", zap.Error(err))
			}
		}()
	}

	summary, err := eng.Start(ctx)
	if err != nil {
		return err
	}
	logger.Info("crawl summary",
		zap.Int("visited", summary.Visited),
		zap.Int("leaves", summary.Leaves),
		zap.Int("inserted", summary.Inserted),
		zap.Int("duplicates", summary.Duplicates),
		zap.Int("failures", summary.Failures()),
		zap.Duration("elapsed", summary.Elapsed),
	)
	return nil
}

func buildArchive(ctx context.Context, cfg config.Config, logger *zap.Logger) (storage.Provider, error) {
	switch cfg.Storage.Provider {
	case "gcs":
		return storage.NewGCSProvider(ctx, cfg.Storage.Bucket, cfg.Storage.Prefix, logger)
	case "local":
		return storage.NewLocalProvider(cfg.Storage.Dir)
	default:
		return storage.NewNoOpProvider(), nil
	}
}

func buildPublisher(ctx context.Context, cfg config.Config, logger *zap.Logger) (queue.Publisher, error) {
	switch cfg.Queue.Provider {
	case "pubsub":
		return queue.NewPubSubPublisher(ctx, cfg.Queue.ProjectID, cfg.Queue.Topic, logger)
	case "memory":
		return queue.NewMemoryPublisher(), nil
	default:
		return queue.NewNoOpPublisher(), nil
	}
}
