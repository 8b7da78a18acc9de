package scraper

// Topics consumed by external dashboards.
const (
	TopicStatus  = "system_status"
	TopicFeed    = "active_scrape_feed"
	TopicSummary = "summary"
	TopicLog     = "scraper_logs"
)

// Feed actions carried on TopicFeed.
const (
	ActionSetCurrentBatch     = "SET_CURRENT_BATCH"
	ActionAddSideMission      = "ADD_SIDE_MISSION"
	ActionAddVideoMetadata    = "ADD_VIDEO_METADATA"
	ActionFinalizeSideMission = "FINALIZE_SIDE_MISSION"
)

// SetCurrentBatchPayload announces the batch about to start.
type SetCurrentBatchPayload struct {
	Action       string        `json:"action"`
	Batch        []SideMission `json:"batch"`
	CurrentBatch int           `json:"current_batch"`
	TotalBatches int           `json:"total_batches"`
}

// AddSideMissionPayload announces a planned side-mission.
type AddSideMissionPayload struct {
	Action      string      `json:"action"`
	SideMission SideMission `json:"side_mission"`
}

// AddVideoMetadataPayload carries core metadata as soon as it is parsed,
// before comment extraction completes, so subscribers can render a
// thumbnail while comments stream in.
type AddVideoMetadataPayload struct {
	Action   string      `json:"action"`
	Metadata VideoRecord `json:"metadata"`
}

// FinalizeSideMissionPayload reports the terminal outcome of one item.
type FinalizeSideMissionPayload struct {
	Action      string      `json:"action"`
	Type        string      `json:"type"`
	SideMission SideMission `json:"side_mission"`
	Error       string      `json:"error,omitempty"`
}

// RunSummaryPayload carries the completed report on TopicSummary.
type RunSummaryPayload struct {
	Type   string    `json:"type"`
	Report RunReport `json:"report"`
}
