package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"go.uber.org/zap"
)

const (
	// hydrationScriptSelector locates the embedded state script the platform
	// renders into every video detail page.
	hydrationScriptSelector = `script[id="__UNIVERSAL_DATA_FOR_REHYDRATION__"]`
	hydrationWaitTimeout    = 30 * time.Second
)

var hashtagPattern = regexp.MustCompile(`#(\p{L}+)`)

// hydrationState mirrors the nested path of the embedded page state down to
// the item metadata this extractor reads.
type hydrationState struct {
	DefaultScope struct {
		VideoDetail struct {
			ItemInfo struct {
				ItemStruct hydrationItem `json:"itemStruct"`
			} `json:"itemInfo"`
		} `json:"webapp.video-detail"`
	} `json:"__DEFAULT_SCOPE__"`
}

type hydrationItem struct {
	ID         string `json:"id"`
	Desc       string `json:"desc"`
	CreateTime int64  `json:"createTime"`
	Video      struct {
		Cover string `json:"cover"`
	} `json:"video"`
	Author struct {
		UniqueID string `json:"uniqueId"`
	} `json:"author"`
	Stats struct {
		DiggCount    int `json:"diggCount"`
		ShareCount   int `json:"shareCount"`
		CommentCount int `json:"commentCount"`
		PlayCount    int `json:"playCount"`
	} `json:"stats"`
}

// Extractor turns a loaded video detail page into a VideoRecord, optionally
// including the comment section.
type Extractor struct {
	layouts     []CommentLayout
	bus         Bus
	delayer     Delayer
	logger      *zap.Logger
	maxComments int
}

// NewExtractor builds an extractor over the known comment layouts.
func NewExtractor(bus Bus, delayer Delayer, maxComments int, logger *zap.Logger) *Extractor {
	if delayer == nil {
		delayer = NewRandomDelayer()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxComments <= 0 {
		maxComments = 200
	}
	return &Extractor{
		layouts:     CommentLayouts,
		bus:         bus,
		delayer:     delayer,
		logger:      logger,
		maxComments: maxComments,
	}
}

// ExtractVideo navigates to the side-mission URL, parses the embedded page
// state, and assembles the record. Under PolicyFull with a non-zero comment
// count it also scrapes the comment section. Core metadata is published on
// the feed topic before comment extraction starts.
func (e *Extractor) ExtractVideo(ctx context.Context, page Page, mission SideMission, searchedTerm string) (VideoRecord, error) {
	if err := page.Navigate(ctx, mission.URL); err != nil {
		return VideoRecord{}, fmt.Errorf("%w: navigate %s: %v", ErrExtraction, mission.URL, err)
	}
	if err := page.WaitAttached(ctx, hydrationScriptSelector, hydrationWaitTimeout); err != nil {
		return VideoRecord{}, fmt.Errorf("%w: hydration script missing on %s: %v", ErrExtraction, mission.URL, err)
	}

	raw, err := page.Text(ctx, hydrationScriptSelector)
	if err != nil {
		return VideoRecord{}, fmt.Errorf("%w: read hydration script: %v", ErrExtraction, err)
	}

	item, err := parseHydrationItem(raw)
	if err != nil {
		return VideoRecord{}, fmt.Errorf("%w: %v", ErrExtraction, err)
	}

	record := VideoRecord{
		VideoID:           item.ID,
		ThumbnailURL:      item.Video.Cover,
		SearchedTerm:      searchedTerm,
		VideoURL:          mission.URL,
		AuthorUsername:    item.Author.UniqueID,
		Description:       item.Desc,
		ExtractedHashtags: ExtractHashtags(item.Desc),
		Platform:          mission.Platform,
		UploadDate:        uploadDate(item.CreateTime),
		Stats: VideoStats{
			LikesCount:   item.Stats.DiggCount,
			ShareCount:   item.Stats.ShareCount,
			CommentCount: item.Stats.CommentCount,
			PlayCount:    item.Stats.PlayCount,
		},
	}

	e.publishMetadata(ctx, record)

	switch {
	case mission.Policy == PolicyFull && record.Stats.CommentCount > 0:
		e.logger.Info("scraping comments", zap.String("video_id", record.VideoID))
		record.Comments = e.ExtractComments(ctx, page, e.maxComments)
	case record.Stats.CommentCount > 0:
		e.logger.Debug("metadata-only policy, skipping comments", zap.String("video_id", record.VideoID))
	}
	return record, nil
}

func parseHydrationItem(raw string) (hydrationItem, error) {
	var state hydrationState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return hydrationItem{}, fmt.Errorf("parse hydration state: %v", err)
	}
	item := state.DefaultScope.VideoDetail.ItemInfo.ItemStruct
	if item.ID == "" {
		return hydrationItem{}, fmt.Errorf("hydration state has no item metadata")
	}
	return item, nil
}

func (e *Extractor) publishMetadata(ctx context.Context, record VideoRecord) {
	if e.bus == nil {
		return
	}
	payload := AddVideoMetadataPayload{
		Action:   ActionAddVideoMetadata,
		Metadata: record.Metadata(),
	}
	if err := e.bus.Publish(ctx, TopicFeed, payload); err != nil {
		e.logger.Warn("metadata broadcast failed", zap.Error(err))
	}
}

// ExtractHashtags pulls hashtag tokens out of free text. Duplicates are
// kept; the description is treated as-is.
func ExtractHashtags(description string) []string {
	matches := hashtagPattern.FindAllStringSubmatch(description, -1)
	tags := make([]string, 0, len(matches))
	for _, m := range matches {
		tags = append(tags, m[1])
	}
	return tags
}

func uploadDate(epochSeconds int64) string {
	if epochSeconds <= 0 {
		return ""
	}
	return time.Unix(epochSeconds, 0).UTC().Format(time.RFC3339)
}
