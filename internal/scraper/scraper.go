package scraper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/clipstream/harvester/internal/status"
)

const (
	itemJitterMin  = 500 * time.Millisecond
	itemJitterMax  = 2 * time.Second
	batchDelayMin  = 2500 * time.Millisecond
	batchDelayMax  = 7500 * time.Millisecond
	enrichmentName = "enrichment_queue"
)

// Orchestrator drives a scrape mission's side-missions through fixed-size
// concurrent batches, persisting each result and emitting granular status
// events. A broken item never aborts its siblings or the remaining
// batches; failures are recorded in the run report instead.
type Orchestrator struct {
	browser   Browser
	extractor *Extractor
	store     VideoStore
	enricher  EnrichmentPublisher
	bus       Bus
	tracker   *status.Broadcaster
	delayer   Delayer
	logger    *zap.Logger
}

// NewOrchestrator wires the orchestrator's collaborators.
func NewOrchestrator(
	browser Browser,
	extractor *Extractor,
	store VideoStore,
	enricher EnrichmentPublisher,
	bus Bus,
	tracker *status.Broadcaster,
	delayer Delayer,
	logger *zap.Logger,
) *Orchestrator {
	if delayer == nil {
		delayer = NewRandomDelayer()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		browser:   browser,
		extractor: extractor,
		store:     store,
		enricher:  enricher,
		bus:       bus,
		tracker:   tracker,
		delayer:   delayer,
		logger:    logger,
	}
}

// Run processes the mission and returns the aggregated report. Batches run
// strictly in sequence; items within a batch run concurrently, each
// isolated so that extraction, persistence, or publish failures only
// increment FailedSideMissions. A mission with zero side-missions performs
// zero batches and still emits the run summary.
func (o *Orchestrator) Run(ctx context.Context, mission ScrapeMission) (RunReport, error) {
	if mission.BatchSize <= 0 {
		return RunReport{}, fmt.Errorf("batch size must be >= 1, got %d", mission.BatchSize)
	}

	side := mission.SideMissions
	totalBatches := (len(side) + mission.BatchSize - 1) / mission.BatchSize

	o.tracker.
		SetStage(status.StageScraping).
		UpdateStep("batch_processing", status.StepActive,
			fmt.Sprintf("Processing %d videos in batches of %d", len(side), mission.BatchSize))
	o.logger.Info("starting scrape mission",
		zap.Int("side_missions", len(side)),
		zap.Int("batch_size", mission.BatchSize),
		zap.Int("total_batches", totalBatches),
	)

	report := RunReport{UpdatedVideoIDs: []string{}}
	var mu sync.Mutex

	for start := 0; start < len(side); start += mission.BatchSize {
		end := min(start+mission.BatchSize, len(side))
		batch := side[start:end]
		current := start/mission.BatchSize + 1

		o.tracker.UpdateStep("batch_processing", status.StepActive,
			fmt.Sprintf("Processing batch %d of %d (size: %d)", current, totalBatches, len(batch)))
		o.publishFeed(ctx, SetCurrentBatchPayload{
			Action:       ActionSetCurrentBatch,
			Batch:        batch,
			CurrentBatch: current,
			TotalBatches: totalBatches,
		})

		var wg sync.WaitGroup
		for _, item := range batch {
			wg.Add(1)
			go func(sm SideMission) {
				defer wg.Done()
				o.runSideMission(ctx, sm, mission.Identifier, &mu, &report)
			}(item)
		}
		wg.Wait()
		batchesTotal.Inc()

		if end < len(side) {
			o.tracker.UpdateStep("rate_limit_delays", status.StepActive, "Waiting before next batch")
			o.logger.Info("batch complete, applying inter-batch delay", zap.Int("batch", current))
			o.delayer.Jitter(ctx, batchDelayMin, batchDelayMax)
			o.tracker.UpdateStep("rate_limit_delays", status.StepPending)
		}
	}

	o.tracker.
		RemoveStep("rate_limit_delays", status.StepCompleted, "", 0).
		UpdateStep("batch_processing", status.StepCompleted,
			fmt.Sprintf("All %d batches have been processed", totalBatches)).
		UpdateStep("data_persistence", status.StepCompleted, "Data has been saved to the database")

	o.publishSummary(ctx, report)
	o.logger.Info("scrape mission complete",
		zap.Int("new", report.NewVideosScraped),
		zap.Int("updated", report.VideosUpdated),
		zap.Int("comments", report.TotalCommentsScraped),
		zap.Int("failed", report.FailedSideMissions),
	)
	return report, nil
}

// runSideMission processes one item end to end. Every failure path is
// absorbed here; nothing propagates past the item boundary.
func (o *Orchestrator) runSideMission(
	ctx context.Context,
	sm SideMission,
	identifier string,
	mu *sync.Mutex,
	report *RunReport,
) {
	// Desynchronize item starts against the previous batch.
	o.delayer.Jitter(ctx, itemJitterMin, itemJitterMax)
	o.logger.Debug("starting side-mission worker", zap.String("url", sm.URL))

	record, err := o.processItem(ctx, sm, identifier)
	if err != nil {
		mu.Lock()
		report.FailedSideMissions++
		mu.Unlock()
		sideMissionsTotal.WithLabelValues(string(sm.Policy), "error").Inc()
		o.tracker.UpdateStep("data_persistence", status.StepFailed)
		o.logger.Error("side-mission failed", zap.String("url", sm.URL), zap.Error(err))
		o.publishFeed(ctx, FinalizeSideMissionPayload{
			Action:      ActionFinalizeSideMission,
			Type:        "error",
			SideMission: sm,
			Error:       err.Error(),
		})
		return
	}

	mu.Lock()
	if sm.Policy == PolicyFull {
		report.NewVideosScraped++
		report.TotalCommentsScraped += len(record.Comments)
	} else {
		report.VideosUpdated++
		report.UpdatedVideoIDs = append(report.UpdatedVideoIDs, record.VideoID)
	}
	mu.Unlock()

	sideMissionsTotal.WithLabelValues(string(sm.Policy), "success").Inc()
	commentsScrapedTotal.Add(float64(len(record.Comments)))
	o.tracker.UpdateStep("data_persistence", status.StepActive,
		fmt.Sprintf("Saved video %s and its %d comments", record.VideoID, len(record.Comments)))
	o.publishFeed(ctx, FinalizeSideMissionPayload{
		Action:      ActionFinalizeSideMission,
		Type:        "success",
		SideMission: sm,
	})
}

func (o *Orchestrator) processItem(ctx context.Context, sm SideMission, identifier string) (VideoRecord, error) {
	page, err := o.browser.NewPage(ctx)
	if err != nil {
		return VideoRecord{}, fmt.Errorf("acquire page: %w", err)
	}
	defer page.Close()

	record, err := o.extractor.ExtractVideo(ctx, page, sm, identifier)
	if err != nil {
		return VideoRecord{}, err
	}

	if err := o.store.UpsertVideo(ctx, record); err != nil {
		return VideoRecord{}, fmt.Errorf("%w: video %s: %v", ErrPersistence, record.VideoID, err)
	}

	// The record is already durable at this point; a publish failure still
	// counts as an item failure so operators see the enrichment gap.
	if o.enricher != nil {
		if err := o.enricher.Publish(ctx, enrichmentName, record.VideoID); err != nil {
			return VideoRecord{}, fmt.Errorf("publish %s to enrichment queue: %w", record.VideoID, err)
		}
		o.logger.Info("published to enrichment queue", zap.String("video_id", record.VideoID))
	}
	return record, nil
}

func (o *Orchestrator) publishFeed(ctx context.Context, payload any) {
	if o.bus == nil {
		return
	}
	if err := o.bus.Publish(ctx, TopicFeed, payload); err != nil {
		o.logger.Warn("feed broadcast failed", zap.Error(err))
	}
}

func (o *Orchestrator) publishSummary(ctx context.Context, report RunReport) {
	if o.bus == nil {
		return
	}
	payload := RunSummaryPayload{Type: "run_complete", Report: report}
	if err := o.bus.Publish(ctx, TopicSummary, payload); err != nil {
		o.logger.Warn("summary broadcast failed", zap.Error(err))
	}
}
