package scraper

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/clipstream/harvester/internal/status"
)

// hydrationBrowser serves pages whose embedded state is derived from the
// navigated URL, so concurrent items each see their own video.
func hydrationBrowser(failingID string) *fakeBrowser {
	return &fakeBrowser{
		newPage: func() (Page, error) {
			page := newFakePage()
			page.attached[hydrationScriptSelector] = true
			page.textFor = func(lastURL string) (string, error) {
				id := VideoIDFromURL(lastURL)
				if id == failingID {
					return "{broken", nil
				}
				return hydrationJSON(id, "author-"+id, "desc #tag", 0), nil
			}
			return page, nil
		},
	}
}

func sideMissionsFor(policy Policy, ids ...string) []SideMission {
	missions := make([]SideMission, 0, len(ids))
	for _, id := range ids {
		missions = append(missions, SideMission{
			Platform: "tiktok",
			URL:      "https://www.tiktok.com/@u/video/" + id,
			Policy:   policy,
		})
	}
	return missions
}

func newTestOrchestrator(browser Browser, st *fakeStore, enricher *fakeEnricher, bus *recordBus) *Orchestrator {
	extractor := NewExtractor(bus, NopDelayer{}, 200, zap.NewNop())
	tracker := status.NewBroadcaster(bus, zap.NewNop())
	return NewOrchestrator(browser, extractor, st, enricher, bus, tracker, NopDelayer{}, zap.NewNop())
}

func TestOrchestratorCountsByPolicy(t *testing.T) {
	t.Parallel()

	st := newFakeStore()
	enricher := &fakeEnricher{}
	bus := newRecordBus()
	orch := newTestOrchestrator(hydrationBrowser(""), st, enricher, bus)

	side := append(
		sideMissionsFor(PolicyFull, "n1", "n2"),
		sideMissionsFor(PolicyMetadataOnly, "e1")...,
	)
	report, err := orch.Run(context.Background(), ScrapeMission{
		Identifier:   "cooking",
		SideMissions: side,
		BatchSize:    2,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, report.NewVideosScraped)
	assert.Equal(t, 1, report.VideosUpdated)
	assert.Equal(t, []string{"e1"}, report.UpdatedVideoIDs)
	assert.Zero(t, report.FailedSideMissions)
	assert.Equal(t, 3, st.upsertCount())
	assert.ElementsMatch(t, []string{"n1", "n2", "e1"}, enricher.published())

	// Two batches of sizes 2 and 1 were announced on the feed.
	var batches []SetCurrentBatchPayload
	for _, msg := range bus.byTopic(TopicFeed) {
		if payload, ok := msg.(SetCurrentBatchPayload); ok {
			batches = append(batches, payload)
		}
	}
	require.Len(t, batches, 2)
	assert.Equal(t, 1, batches[0].CurrentBatch)
	assert.Equal(t, 2, batches[0].TotalBatches)
	assert.Len(t, batches[0].Batch, 2)
	assert.Len(t, batches[1].Batch, 1)
}

func TestOrchestratorIsolatesItemFailures(t *testing.T) {
	t.Parallel()

	st := newFakeStore()
	bus := newRecordBus()
	orch := newTestOrchestrator(hydrationBrowser("n2"), st, &fakeEnricher{}, bus)

	report, err := orch.Run(context.Background(), ScrapeMission{
		SideMissions: sideMissionsFor(PolicyFull, "n1", "n2", "n3"),
		BatchSize:    3,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, report.NewVideosScraped)
	assert.Equal(t, 1, report.FailedSideMissions)
	assert.Equal(t, 2, st.upsertCount())

	var succeeded, failed int
	for _, msg := range bus.byTopic(TopicFeed) {
		payload, ok := msg.(FinalizeSideMissionPayload)
		if !ok {
			continue
		}
		switch payload.Type {
		case "success":
			succeeded++
			assert.Empty(t, payload.Error)
		case "error":
			failed++
			assert.NotEmpty(t, payload.Error)
			assert.True(t, strings.HasSuffix(payload.SideMission.URL, "/n2"))
		}
	}
	assert.Equal(t, 2, succeeded)
	assert.Equal(t, 1, failed)
}

func TestOrchestratorEmptyMissionStillPublishesSummary(t *testing.T) {
	t.Parallel()

	bus := newRecordBus()
	orch := newTestOrchestrator(hydrationBrowser(""), newFakeStore(), &fakeEnricher{}, bus)

	report, err := orch.Run(context.Background(), ScrapeMission{BatchSize: 5})
	require.NoError(t, err)
	assert.Zero(t, report.NewVideosScraped)
	assert.Zero(t, report.FailedSideMissions)

	summaries := bus.byTopic(TopicSummary)
	require.Len(t, summaries, 1)
	payload, ok := summaries[0].(RunSummaryPayload)
	require.True(t, ok)
	assert.Equal(t, "run_complete", payload.Type)
}

func TestOrchestratorEnrichmentFailureCountsAsItemFailure(t *testing.T) {
	t.Parallel()

	st := newFakeStore()
	enricher := &fakeEnricher{err: errors.New("queue unavailable")}
	orch := newTestOrchestrator(hydrationBrowser(""), st, enricher, newRecordBus())

	report, err := orch.Run(context.Background(), ScrapeMission{
		SideMissions: sideMissionsFor(PolicyFull, "n1"),
		BatchSize:    1,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, report.FailedSideMissions)
	assert.Zero(t, report.NewVideosScraped)
	// The record itself was persisted before the publish failed.
	assert.Equal(t, 1, st.upsertCount())
}

func TestOrchestratorRejectsInvalidBatchSize(t *testing.T) {
	t.Parallel()

	orch := newTestOrchestrator(hydrationBrowser(""), newFakeStore(), &fakeEnricher{}, newRecordBus())
	_, err := orch.Run(context.Background(), ScrapeMission{BatchSize: 0})
	assert.Error(t, err)
}

func TestOrchestratorPageAcquireFailureIsPerItem(t *testing.T) {
	t.Parallel()

	browser := &fakeBrowser{newPage: func() (Page, error) {
		return nil, errors.New("tab budget exhausted")
	}}
	st := newFakeStore()
	orch := newTestOrchestrator(browser, st, &fakeEnricher{}, newRecordBus())

	report, err := orch.Run(context.Background(), ScrapeMission{
		SideMissions: sideMissionsFor(PolicyFull, "n1", "n2"),
		BatchSize:    2,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, report.FailedSideMissions)
	assert.Zero(t, st.upsertCount())
}
