package scraper

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestExtractHashtags(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"fyp", "cooking"}, ExtractHashtags("dinner time #fyp #cooking"))
	assert.Equal(t, []string{"fyp", "fyp"}, ExtractHashtags("#fyp and #fyp again"))
	assert.Equal(t, []string{"日本"}, ExtractHashtags("travel #日本"))
	assert.Empty(t, ExtractHashtags("no tags here"))
}

func TestExtractVideoBuildsRecord(t *testing.T) {
	t.Parallel()

	page := newFakePage()
	page.attached[hydrationScriptSelector] = true
	page.texts[hydrationScriptSelector] = hydrationJSON("v-100", "alice", "watch this #fyp", 0)

	bus := newRecordBus()
	extractor := NewExtractor(bus, NopDelayer{}, 200, zap.NewNop())

	mission := SideMission{
		Platform: "tiktok",
		URL:      "https://www.tiktok.com/@alice/video/v-100",
		Policy:   PolicyFull,
	}
	record, err := extractor.ExtractVideo(context.Background(), page, mission, "cooking")
	require.NoError(t, err)

	assert.Equal(t, "v-100", record.VideoID)
	assert.Equal(t, "alice", record.AuthorUsername)
	assert.Equal(t, "cooking", record.SearchedTerm)
	assert.Equal(t, mission.URL, record.VideoURL)
	assert.Equal(t, []string{"fyp"}, record.ExtractedHashtags)
	assert.Equal(t, "2023-11-14T22:13:20Z", record.UploadDate)
	assert.Equal(t, 10, record.Stats.LikesCount)
	assert.Empty(t, record.Comments)

	feed := bus.byTopic(TopicFeed)
	require.Len(t, feed, 1)
	payload, ok := feed[0].(AddVideoMetadataPayload)
	require.True(t, ok)
	assert.Equal(t, ActionAddVideoMetadata, payload.Action)
	assert.Equal(t, "v-100", payload.Metadata.VideoID)
	assert.Nil(t, payload.Metadata.Comments)
}

func TestExtractVideoMetadataOnlySkipsComments(t *testing.T) {
	t.Parallel()

	layout := CommentLayouts[0]
	page := newFakePage()
	page.attached[hydrationScriptSelector] = true
	page.attached[layout.CommentListContainer] = true
	page.attached[layout.CommentObjectWrapper] = true
	page.texts[hydrationScriptSelector] = hydrationJSON("v-200", "bob", "desc", 50)
	page.comments = []DOMComment{{DOMID: "c1", Author: "x", Text: "y"}}

	extractor := NewExtractor(nil, NopDelayer{}, 200, zap.NewNop())
	record, err := extractor.ExtractVideo(context.Background(), page, SideMission{
		URL:    "https://www.tiktok.com/@bob/video/v-200",
		Policy: PolicyMetadataOnly,
	}, "")
	require.NoError(t, err)
	assert.Equal(t, 50, record.Stats.CommentCount)
	assert.Empty(t, record.Comments)
}

func TestExtractVideoFullPolicyScrapesComments(t *testing.T) {
	t.Parallel()

	layout := CommentLayouts[0]
	page := newFakePage()
	page.attached[hydrationScriptSelector] = true
	page.attached[layout.CommentListContainer] = true
	page.attached[layout.CommentObjectWrapper] = true
	page.texts[hydrationScriptSelector] = hydrationJSON("v-300", "carol", "desc", 2)
	page.comments = []DOMComment{
		{DOMID: "c1", Author: "x", Text: "first"},
		{DOMID: "c2", Author: "y", Text: "second"},
	}

	extractor := NewExtractor(nil, NopDelayer{}, 200, zap.NewNop())
	record, err := extractor.ExtractVideo(context.Background(), page, SideMission{
		URL:    "https://www.tiktok.com/@carol/video/v-300",
		Policy: PolicyFull,
	}, "")
	require.NoError(t, err)
	assert.Len(t, record.Comments, 2)
}

func TestExtractVideoWrapsFailuresAsExtraction(t *testing.T) {
	t.Parallel()

	t.Run("missing hydration script", func(t *testing.T) {
		t.Parallel()
		page := newFakePage()
		extractor := NewExtractor(nil, NopDelayer{}, 200, zap.NewNop())
		_, err := extractor.ExtractVideo(context.Background(), page, SideMission{URL: "u"}, "")
		assert.ErrorIs(t, err, ErrExtraction)
	})

	t.Run("malformed state", func(t *testing.T) {
		t.Parallel()
		page := newFakePage()
		page.attached[hydrationScriptSelector] = true
		page.texts[hydrationScriptSelector] = "{not json"
		extractor := NewExtractor(nil, NopDelayer{}, 200, zap.NewNop())
		_, err := extractor.ExtractVideo(context.Background(), page, SideMission{URL: "u"}, "")
		assert.ErrorIs(t, err, ErrExtraction)
	})

	t.Run("state without item", func(t *testing.T) {
		t.Parallel()
		page := newFakePage()
		page.attached[hydrationScriptSelector] = true
		page.texts[hydrationScriptSelector] = `{"__DEFAULT_SCOPE__": {}}`
		extractor := NewExtractor(nil, NopDelayer{}, 200, zap.NewNop())
		_, err := extractor.ExtractVideo(context.Background(), page, SideMission{URL: "u"}, "")
		assert.ErrorIs(t, err, ErrExtraction)
	})
}
