package scraper

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/clipstream/harvester/internal/status"
)

const (
	discoveryScrollRetries = 10
	discoveryScrollDeltaPx = 8000
	discoveryScrollMinWait = 1500 * time.Millisecond
	discoveryScrollMaxWait = 2500 * time.Millisecond
	defaultDiscoveryLimit  = 100
)

// DiscoveryEngine collects unique video URLs from a discovery-grid page by
// scrolling until a target count or a retry budget is exhausted.
type DiscoveryEngine struct {
	layouts []DiscoveryLayout
	delayer Delayer
	tracker *status.Broadcaster
	logger  *zap.Logger
}

// NewDiscoveryEngine builds an engine over the known grid layouts.
func NewDiscoveryEngine(tracker *status.Broadcaster, delayer Delayer, logger *zap.Logger) *DiscoveryEngine {
	if delayer == nil {
		delayer = NewRandomDelayer()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DiscoveryEngine{
		layouts: DiscoveryLayouts,
		delayer: delayer,
		tracker: tracker,
		logger:  logger,
	}
}

// Discover navigates to the mission's target page and returns unique video
// URLs in first-seen order, up to the mission limit. A direct video-id
// mission short-circuits with a one-element result. Layout detection
// failure is fatal; individual scroll or extraction failures consume one
// retry and the loop continues.
func (e *DiscoveryEngine) Discover(ctx context.Context, mission DiscoveryMission, page Page) ([]string, error) {
	target := TargetURL(mission)

	if mission.Source == SourceVideoID {
		return []string{target}, nil
	}

	e.tracker.UpdateStep("navigation", status.StepActive, fmt.Sprintf("Navigating to %q", target))
	e.logger.Info("starting discovery",
		zap.String("source", string(mission.Source)),
		zap.String("identifier", mission.Identifier),
		zap.String("url", target),
	)

	// Best effort: layout detection below decides whether the page is usable.
	if err := page.Navigate(ctx, target); err != nil {
		e.logger.Warn("discovery navigation failed", zap.String("url", target), zap.Error(err))
	}

	layout, err := DetectDiscoveryLayout(ctx, page, e.layouts)
	if err != nil {
		e.tracker.UpdateStep("navigation", status.StepFailed, "Could not find a layout for this page")
		e.logger.Error("no known discovery layout matched", zap.String("url", target))
		return nil, fmt.Errorf("detect discovery layout for %s: %w", target, err)
	}
	e.logger.Info("detected discovery layout", zap.String("layout", layout.Name))
	e.tracker.UpdateStep("navigation", status.StepCompleted)

	limit := mission.Limit
	if limit <= 0 {
		limit = defaultDiscoveryLimit
	}

	e.tracker.UpdateStep("scroll_automation", status.StepActive, "Scrolling to load video cards")

	seen := make(map[string]struct{}, limit)
	var urls []string
	anchorSelector := layout.VideoCardSelector + " a"

	for retries := discoveryScrollRetries; len(urls) < limit && retries > 0; retries-- {
		if err := e.collectPass(ctx, page, anchorSelector, seen, &urls, limit); err != nil {
			e.tracker.UpdateStep("url_extraction", status.StepFailed, "Failed to extract hrefs")
			e.logger.Warn("scroll pass failed, retrying",
				zap.Int("retries_left", retries-1),
				zap.Error(err),
			)
			continue
		}
		e.tracker.UpdateStep("scroll_automation", status.StepActive, fmt.Sprintf("Found %d hrefs", len(urls)))
	}

	e.tracker.UpdateStep("scroll_automation", status.StepCompleted, fmt.Sprintf("Found %d unique videos to scrape", len(urls)))
	e.logger.Info("discovery finished", zap.Int("unique_urls", len(urls)))
	discoveredURLsTotal.Add(float64(len(urls)))
	return urls, nil
}

func (e *DiscoveryEngine) collectPass(
	ctx context.Context,
	page Page,
	anchorSelector string,
	seen map[string]struct{},
	urls *[]string,
	limit int,
) error {
	if err := page.ScrollBy(ctx, discoveryScrollDeltaPx); err != nil {
		return fmt.Errorf("scroll: %w", err)
	}
	// Randomized wait between scrolls to appear more human-like.
	e.delayer.Jitter(ctx, discoveryScrollMinWait, discoveryScrollMaxWait)

	hrefs, err := page.Hrefs(ctx, anchorSelector)
	if err != nil {
		return fmt.Errorf("extract hrefs: %w", err)
	}
	for _, href := range hrefs {
		if len(*urls) >= limit {
			break
		}
		if !IsVideoURL(href) {
			continue
		}
		if _, dup := seen[href]; dup {
			continue
		}
		seen[href] = struct{}{}
		*urls = append(*urls, href)
	}
	return nil
}
