// Package workflow owns the discover-and-scrape pipeline: it holds the
// single-flight slot, sequences the stages, and tears everything down when
// a run finishes or is cancelled.
package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/clipstream/harvester/internal/scraper"
	"github.com/clipstream/harvester/internal/status"
)

// BrowserFactory opens a fresh browser for one workflow run.
type BrowserFactory func(ctx context.Context) (scraper.Browser, error)

// Config carries the per-run knobs the controller passes down the pipeline.
type Config struct {
	Platform    string
	BatchSize   int
	MaxComments int
	// DefaultLimit substitutes for a mission limit of zero.
	DefaultLimit int
}

// Controller runs at most one workflow at a time. Start rejects while a run
// is in flight; Cancel aborts the in-flight run by cancelling its context,
// which collapses the browser session under it.
type Controller struct {
	newBrowser BrowserFactory
	store      scraper.VideoStore
	bus        scraper.Bus
	enricher   scraper.EnrichmentPublisher
	tracker    *status.Broadcaster
	delayer    scraper.Delayer
	logger     *zap.Logger
	cfg        Config

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
}

// NewController wires the controller's collaborators.
func NewController(
	newBrowser BrowserFactory,
	store scraper.VideoStore,
	bus scraper.Bus,
	enricher scraper.EnrichmentPublisher,
	tracker *status.Broadcaster,
	delayer scraper.Delayer,
	cfg Config,
	logger *zap.Logger,
) *Controller {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 5
	}
	if cfg.Platform == "" {
		cfg.Platform = "tiktok"
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 100
	}
	if delayer == nil {
		delayer = scraper.NewRandomDelayer()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		newBrowser: newBrowser,
		store:      store,
		bus:        bus,
		enricher:   enricher,
		tracker:    tracker,
		delayer:    delayer,
		logger:     logger,
		cfg:        cfg,
	}
}

// Running reports whether a workflow is currently in flight.
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Start claims the single-flight slot and launches the workflow in the
// background, returning immediately. A second Start while a run is in
// flight returns scraper.ErrWorkflowRunning.
func (c *Controller) Start(mission scraper.DiscoveryMission) error {
	if mission.Limit <= 0 {
		mission.Limit = c.cfg.DefaultLimit
	}

	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return scraper.ErrWorkflowRunning
	}
	runCtx, cancel := context.WithCancel(context.Background())
	c.running = true
	c.cancel = cancel
	c.mu.Unlock()

	go c.run(runCtx, mission)
	return nil
}

// Cancel aborts the in-flight workflow, if any. It is best effort: the run
// winds down asynchronously and frees the slot itself.
func (c *Controller) Cancel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running || c.cancel == nil {
		return false
	}
	c.logger.Info("cancelling in-flight workflow")
	c.cancel()
	return true
}

func (c *Controller) run(ctx context.Context, mission scraper.DiscoveryMission) {
	defer func() {
		c.mu.Lock()
		c.running = false
		c.cancel = nil
		c.mu.Unlock()
	}()

	started := time.Now()
	c.logger.Info("workflow started",
		zap.String("source", string(mission.Source)),
		zap.String("identifier", mission.Identifier),
		zap.Int("limit", mission.Limit),
	)

	report, err := c.execute(ctx, mission)
	if err != nil {
		c.tracker.SetStage(status.StageError)
		c.tracker.UpdateStep("error", status.StepFailed, err.Error())
		c.logger.Error("workflow failed",
			zap.Duration("elapsed", time.Since(started)),
			zap.Error(err),
		)
		return
	}

	c.tracker.SetStage(status.StageSuccess)
	c.tracker.UpdateStep("success", status.StepCompleted,
		fmt.Sprintf("Scraped %d new and refreshed %d existing videos", report.NewVideosScraped, report.VideosUpdated))
	c.logger.Info("workflow complete",
		zap.Duration("elapsed", time.Since(started)),
		zap.Int("new", report.NewVideosScraped),
		zap.Int("updated", report.VideosUpdated),
		zap.Int("failed", report.FailedSideMissions),
	)
}

func (c *Controller) execute(ctx context.Context, mission scraper.DiscoveryMission) (scraper.RunReport, error) {
	c.tracker.
		SetStage(status.StageInitializing).
		UpdateStep("api_request_received", status.StepCompleted).
		UpdateStep("browser_manager_init", status.StepActive)

	browser, err := c.newBrowser(ctx)
	if err != nil {
		c.tracker.UpdateStep("browser_manager_init", status.StepFailed)
		return scraper.RunReport{}, fmt.Errorf("initialize browser: %w", err)
	}
	browserClosed := false
	closeBrowser := func() {
		if browserClosed {
			return
		}
		browserClosed = true
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := browser.Close(closeCtx); err != nil {
			c.logger.Warn("browser shutdown failed", zap.Error(err))
		}
	}
	defer closeBrowser()
	c.tracker.
		UpdateStep("browser_manager_init", status.StepCompleted).
		UpdateStep("browser_ready", status.StepCompleted)

	urls, err := c.discover(ctx, mission, browser)
	if err != nil {
		return scraper.RunReport{}, err
	}

	side, err := c.analyze(ctx, mission, urls)
	if err != nil {
		return scraper.RunReport{}, err
	}

	extractor := scraper.NewExtractor(c.bus, c.delayer, c.cfg.MaxComments, c.logger)
	orchestrator := scraper.NewOrchestrator(
		browser, extractor, c.store, c.enricher, c.bus, c.tracker, c.delayer, c.logger)
	report, err := orchestrator.Run(ctx, scraper.ScrapeMission{
		Identifier:   mission.Identifier,
		Source:       mission.Source,
		SideMissions: side,
		Limit:        mission.Limit,
		BatchSize:    c.cfg.BatchSize,
	})
	if err != nil {
		return scraper.RunReport{}, fmt.Errorf("run scrape mission: %w", err)
	}

	c.tracker.
		SetStage(status.StageFinalizing).
		UpdateStep("report_generation", status.StepCompleted).
		UpdateStep("browser_shutdown", status.StepActive)
	closeBrowser()
	c.tracker.
		UpdateStep("browser_shutdown", status.StepCompleted).
		UpdateStep("process_complete", status.StepCompleted)

	return report, nil
}

func (c *Controller) discover(ctx context.Context, mission scraper.DiscoveryMission, browser scraper.Browser) ([]string, error) {
	c.tracker.SetStage(status.StageDiscovery)

	// Direct video-id missions short-circuit discovery without touching
	// the page, so don't spend a tab on them.
	var page scraper.Page
	if mission.Source != scraper.SourceVideoID {
		var err error
		page, err = browser.NewPage(ctx)
		if err != nil {
			c.tracker.UpdateStep("navigation", status.StepFailed)
			return nil, fmt.Errorf("open discovery page: %w", err)
		}
		defer page.Close()
	}

	engine := scraper.NewDiscoveryEngine(c.tracker, c.delayer, c.logger)
	urls, err := engine.Discover(ctx, mission, page)
	if err != nil {
		return nil, fmt.Errorf("discover videos: %w", err)
	}
	c.tracker.UpdateStep("url_extraction", status.StepCompleted,
		fmt.Sprintf("Extracted %d video URLs", len(urls)))
	return urls, nil
}

func (c *Controller) analyze(ctx context.Context, mission scraper.DiscoveryMission, urls []string) ([]scraper.SideMission, error) {
	c.tracker.
		SetStage(status.StageAnalysis).
		UpdateStep("db_query", status.StepActive,
			fmt.Sprintf("Checking %d URLs against the database", len(urls)))

	partition, err := scraper.PartitionURLs(ctx, c.store, urls)
	if err != nil {
		c.tracker.UpdateStep("db_query", status.StepFailed)
		return nil, fmt.Errorf("partition urls: %w", err)
	}
	c.tracker.
		UpdateStep("db_query", status.StepCompleted,
			fmt.Sprintf("%d new, %d already stored", len(partition.NewURLs), len(partition.ExistingURLs))).
		UpdateStep("job_classification", status.StepActive)

	side := scraper.PlanSideMissions(partition.NewURLs, partition.ExistingURLs, mission.Limit, c.cfg.Platform)
	for _, sm := range side {
		c.publishFeed(ctx, scraper.AddSideMissionPayload{
			Action:      scraper.ActionAddSideMission,
			SideMission: sm,
		})
	}
	c.tracker.
		UpdateStep("job_classification", status.StepCompleted,
			fmt.Sprintf("Planned %d side-missions", len(side))).
		UpdateStep("workload_ready", status.StepCompleted)
	c.logger.Info("workload planned",
		zap.Int("new_urls", len(partition.NewURLs)),
		zap.Int("existing_urls", len(partition.ExistingURLs)),
		zap.Int("side_missions", len(side)),
	)
	return side, nil
}

func (c *Controller) publishFeed(ctx context.Context, payload any) {
	if c.bus == nil {
		return
	}
	if err := c.bus.Publish(ctx, scraper.TopicFeed, payload); err != nil {
		c.logger.Warn("feed broadcast failed", zap.Error(err))
	}
}
