package scraper

import (
	"context"
	"fmt"
)

// PartitionResult splits discovered URLs into those not yet stored and
// those already known, each preserving the input's relative order.
type PartitionResult struct {
	NewURLs      []string
	ExistingURLs []string
}

// PartitionURLs derives an item id from each URL and asks the store which
// ids already exist. Pure over its query dependency; no side effects.
func PartitionURLs(ctx context.Context, store VideoStore, urls []string) (PartitionResult, error) {
	ids := make([]string, 0, len(urls))
	for _, u := range urls {
		ids = append(ids, VideoIDFromURL(u))
	}
	stored, err := store.StoredVideoIDs(ctx, ids)
	if err != nil {
		return PartitionResult{}, fmt.Errorf("query stored video ids: %w", err)
	}
	var result PartitionResult
	for _, u := range urls {
		if _, exists := stored[VideoIDFromURL(u)]; exists {
			result.ExistingURLs = append(result.ExistingURLs, u)
		} else {
			result.NewURLs = append(result.NewURLs, u)
		}
	}
	return result, nil
}

// PlanSideMissions builds the ordered side-mission list for a run. New
// items are always preferred and scraped in full; remaining capacity is
// filled with existing items for a metadata-only refresh. The output never
// exceeds limit.
func PlanSideMissions(newURLs, existingURLs []string, limit int, platform string) []SideMission {
	if limit <= 0 {
		return nil
	}
	missions := make([]SideMission, 0, limit)
	for _, u := range newURLs {
		if len(missions) >= limit {
			break
		}
		missions = append(missions, SideMission{
			Platform: platform,
			URL:      u,
			Policy:   PolicyFull,
		})
	}
	for _, u := range existingURLs {
		if len(missions) >= limit {
			break
		}
		missions = append(missions, SideMission{
			Platform: platform,
			URL:      u,
			Policy:   PolicyMetadataOnly,
		})
	}
	return missions
}
