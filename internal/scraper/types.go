// Package scraper defines core types shared across subsystems.
package scraper

// Source identifies how a discovery mission finds its targets.
type Source string

// Supported discovery sources.
const (
	SourceHashtag Source = "hashtag"
	SourceSearch  Source = "search"
	SourceVideoID Source = "video_id"
)

// Policy controls how much of a video page a side-mission scrapes.
type Policy string

// Scrape policies attached to side-missions.
const (
	// PolicyFull scrapes metadata and the comment section.
	PolicyFull Policy = "full"
	// PolicyMetadataOnly refreshes counters and skips comments.
	PolicyMetadataOnly Policy = "metadata_only"
)

// DiscoveryMission is the immutable input to the discovery engine.
type DiscoveryMission struct {
	Source     Source `json:"source"`
	Identifier string `json:"identifier"`
	Limit      int    `json:"limit"`
}

// SideMission is one URL-level unit of scrape work. It is created by the
// mission planner and never mutated afterwards; per-item status is tracked
// externally, keyed by URL.
type SideMission struct {
	Platform string `json:"platform"`
	URL      string `json:"url"`
	Policy   Policy `json:"policy"`
}

// ScrapeMission owns the ordered side-mission list for one workflow run.
type ScrapeMission struct {
	Identifier   string        `json:"identifier"`
	Source       Source        `json:"source"`
	SideMissions []SideMission `json:"side_missions"`
	Limit        int           `json:"limit"`
	BatchSize    int           `json:"batch_size"`
}

// VideoStats carries the engagement counters read from the page state.
type VideoStats struct {
	LikesCount   int `json:"likes_count"`
	ShareCount   int `json:"share_count"`
	CommentCount int `json:"comment_count"`
	PlayCount    int `json:"play_count"`
}

// VideoRecord is the persisted unit produced by the page content extractor,
// upserted into the store keyed by VideoID.
type VideoRecord struct {
	VideoID           string          `json:"video_id"`
	ThumbnailURL      string          `json:"thumbnail_url"`
	SearchedTerm      string          `json:"searched_term"`
	VideoURL          string          `json:"video_url"`
	AuthorUsername    string          `json:"author_username"`
	Description       string          `json:"video_description"`
	ExtractedHashtags []string        `json:"extracted_hashtags"`
	Platform          string          `json:"platform"`
	UploadDate        string          `json:"upload_date"`
	Stats             VideoStats      `json:"stats"`
	Comments          []CommentRecord `json:"comments"`
}

// CommentRecord is one scraped comment. ParentCommentID is empty for
// top-level comments and references the parent's CommentID for replies.
type CommentRecord struct {
	CommentID       string `json:"comment_id"`
	ParentCommentID string `json:"parent_comment_id,omitempty"`
	Author          string `json:"author"`
	Text            string `json:"text"`
	LikesCount      int    `json:"likes_count"`
	IsCreator       bool   `json:"is_creator"`
}

// Metadata returns the record without its comment list, for feed events
// emitted before comment extraction completes.
func (v VideoRecord) Metadata() VideoRecord {
	meta := v
	meta.Comments = nil
	return meta
}

// RunReport aggregates the outcome of one scrape mission. Counters start at
// zero and only the orchestrator mutates them for the run's duration.
type RunReport struct {
	NewVideosScraped     int      `json:"new_videos_scraped"`
	VideosUpdated        int      `json:"videos_updated"`
	UpdatedVideoIDs      []string `json:"updated_video_ids"`
	TotalCommentsScraped int      `json:"total_comments_scraped"`
	FailedSideMissions   int      `json:"failed_side_missions"`
}
