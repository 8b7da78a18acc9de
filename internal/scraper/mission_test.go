package scraper

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartitionURLsPreservesOrder(t *testing.T) {
	t.Parallel()

	store := newFakeStore("2", "4")
	urls := []string{
		"https://www.tiktok.com/@a/video/1",
		"https://www.tiktok.com/@b/video/2",
		"https://www.tiktok.com/@c/video/3",
		"https://www.tiktok.com/@d/video/4",
	}

	result, err := PartitionURLs(context.Background(), store, urls)
	require.NoError(t, err)
	assert.Equal(t, []string{urls[0], urls[2]}, result.NewURLs)
	assert.Equal(t, []string{urls[1], urls[3]}, result.ExistingURLs)
}

func TestPartitionURLsEmptyInput(t *testing.T) {
	t.Parallel()

	result, err := PartitionURLs(context.Background(), newFakeStore(), nil)
	require.NoError(t, err)
	assert.Empty(t, result.NewURLs)
	assert.Empty(t, result.ExistingURLs)
}

func TestPartitionURLsPropagatesQueryError(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.queryErr = errors.New("connection refused")
	_, err := PartitionURLs(context.Background(), store, []string{"u"})
	assert.Error(t, err)
}

func TestPlanSideMissionsPrefersNewItems(t *testing.T) {
	t.Parallel()

	// 12 new and 8 existing with capacity for 15: all new items are
	// scraped in full and 3 existing get a metadata refresh.
	var newURLs, existingURLs []string
	for i := 0; i < 12; i++ {
		newURLs = append(newURLs, "https://example.com/video/n"+string(rune('a'+i)))
	}
	for i := 0; i < 8; i++ {
		existingURLs = append(existingURLs, "https://example.com/video/e"+string(rune('a'+i)))
	}

	missions := PlanSideMissions(newURLs, existingURLs, 15, "tiktok")
	require.Len(t, missions, 15)
	for i := 0; i < 12; i++ {
		assert.Equal(t, PolicyFull, missions[i].Policy)
		assert.Equal(t, newURLs[i], missions[i].URL)
	}
	for i := 12; i < 15; i++ {
		assert.Equal(t, PolicyMetadataOnly, missions[i].Policy)
	}
}

func TestPlanSideMissionsCapsAtLimit(t *testing.T) {
	t.Parallel()

	newURLs := []string{"a", "b", "c"}
	missions := PlanSideMissions(newURLs, nil, 2, "tiktok")
	require.Len(t, missions, 2)
	assert.Equal(t, "a", missions[0].URL)
	assert.Equal(t, "b", missions[1].URL)
}

func TestPlanSideMissionsZeroLimit(t *testing.T) {
	t.Parallel()

	assert.Nil(t, PlanSideMissions([]string{"a"}, []string{"b"}, 0, "tiktok"))
}
