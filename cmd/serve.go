package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	pubsubv2 "cloud.google.com/go/pubsub/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/clipstream/harvester/internal/api"
	"github.com/clipstream/harvester/internal/browser"
	"github.com/clipstream/harvester/internal/config"
	"github.com/clipstream/harvester/internal/enrich"
	eventsmemory "github.com/clipstream/harvester/internal/events/memory"
	eventspubsub "github.com/clipstream/harvester/internal/events/pubsub"
	"github.com/clipstream/harvester/internal/logging"
	"github.com/clipstream/harvester/internal/scraper"
	"github.com/clipstream/harvester/internal/status"
	"github.com/clipstream/harvester/internal/store"
	"github.com/clipstream/harvester/internal/workflow"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Starts the scraping API server",
		Long: `Runs the HTTP server that accepts discover-and-scrape workflow
requests, holding a single workflow slot and broadcasting progress over
the event bus.`,
		RunE: runServeCommand,
	}
}

func runServeCommand(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx := cmd.Context()

	var (
		bus      scraper.Bus
		enricher scraper.EnrichmentPublisher
		logBus   logging.Publisher
	)
	if cfg.PubSub.Enabled {
		client, err := pubsubv2.NewClient(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			return fmt.Errorf("create pubsub client: %w", err)
		}
		defer client.Close() //nolint:errcheck // best-effort close
		psBus := eventspubsub.New(client)
		defer psBus.Close()
		psEnricher := enrich.NewPubSubPublisher(client)
		defer psEnricher.Close()
		bus = psBus
		enricher = psEnricher
		logBus = psBus
	} else {
		bus = eventsmemory.New()
		enricher = enrich.NoOpPublisher{}
	}

	logger, err := logging.New(logging.Options{
		Development: cfg.Logging.Development,
		Bus:         logBus,
	})
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush
	if !cfg.PubSub.Enabled {
		logger.Warn("pubsub disabled, events stay in memory")
	}

	var videoStore scraper.VideoStore
	if cfg.DB.DSN != "" {
		pgStore, err := store.NewPostgresStore(ctx, store.PostgresConfig{
			DSN:             cfg.DB.DSN,
			MaxConns:        cfg.DB.MaxConns,
			MinConns:        cfg.DB.MinConns,
			MaxConnLifetime: cfg.MaxConnLifetime(),
		}, logger)
		if err != nil {
			return fmt.Errorf("connect store: %w", err)
		}
		defer pgStore.Close()
		videoStore = pgStore
	} else {
		logger.Warn("db.dsn not set, using in-memory store")
		videoStore = store.NewMemoryStore()
	}

	tracker := status.NewBroadcaster(bus, logger)
	newBrowser := func(ctx context.Context) (scraper.Browser, error) {
		return browser.NewManager(browser.Config{
			Headless:   cfg.Browser.Headless,
			UserAgent:  cfg.Browser.UserAgent,
			MaxTabs:    cfg.Browser.MaxTabs,
			NavTimeout: cfg.NavTimeout(),
			OpTimeout:  cfg.OpTimeout(),
			HostQPS:    cfg.Browser.HostQPS,
		}, logger)
	}
	controller := workflow.NewController(
		newBrowser,
		videoStore,
		bus,
		enricher,
		tracker,
		nil,
		workflow.Config{
			Platform:     cfg.Scraper.Platform,
			BatchSize:    cfg.Scraper.BatchSize,
			MaxComments:  cfg.Scraper.MaxComments,
			DefaultLimit: cfg.Scraper.DefaultLimit,
		},
		logger,
	)

	server := api.NewServer(controller, tracker, api.Options{
		APIKey:         authKey(cfg),
		RequestTimeout: cfg.RequestTimeout(),
	}, logger)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.Int("port", cfg.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("shutting down", zap.String("reason", "context cancelled"))
	}

	controller.Cancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

func authKey(cfg config.Config) string {
	if !cfg.Auth.Enabled {
		return ""
	}
	return cfg.Auth.APIKey
}
