package status

// stageTemplate pairs a stage header with its initial step set. Templates
// are copied on every transition; they are never mutated in place.
type stageTemplate struct {
	Info  StageInfo
	Steps map[string]Step
}

var stageTemplates = map[Stage]stageTemplate{
	StageIdle: {
		Info:  StageInfo{Title: "IDLE: AWAITING TASK", Variant: "INFO"},
		Steps: map[string]Step{},
	},
	StageInitializing: {
		Info: StageInfo{Title: "INITIALIZING...", Variant: "TASK"},
		Steps: map[string]Step{
			"api_request_received": {Label: "API_REQUEST_RECEIVED", Description: "Validating parameters", Status: StepPending},
			"browser_manager_init": {Label: "BROWSER_MANAGER_INIT", Description: "Initializing persistent browser", Status: StepPending},
			"browser_ready":        {Label: "BROWSER_READY", Description: "Browser ready for discovery", Status: StepPending},
		},
	},
	StageDiscovery: {
		Info: StageInfo{Title: "STAGE 1: DISCOVERING VIDEOS", Variant: "TASK"},
		Steps: map[string]Step{
			"navigation":        {Label: "NAVIGATION", Description: "Navigating to target page", Status: StepPending},
			"scroll_automation": {Label: "SCROLL_AUTOMATION", Description: "Scrolling to load video grid", Status: StepPending},
			"url_extraction":    {Label: "URL_EXTRACTION", Description: "Extracting video URLs from page", Status: StepPending},
		},
	},
	StageAnalysis: {
		Info: StageInfo{Title: "STAGE 2: ANALYZING WORKLOAD", Variant: "TASK"},
		Steps: map[string]Step{
			"db_query":           {Label: "DB_QUERY", Description: "Checking for existing videos in database", Status: StepPending},
			"job_classification": {Label: "JOB_CLASSIFICATION", Description: "Categorizing new vs. update jobs", Status: StepPending},
			"workload_ready":     {Label: "WORKLOAD_READY", Description: "Analysis complete, scrape queue populated", Status: StepPending},
		},
	},
	StageScraping: {
		Info: StageInfo{Title: "STAGE 3: SCRAPING DATA", Variant: "TASK"},
		Steps: map[string]Step{
			"batch_processing": {Label: "BATCH_PROCESSING", Description: "Processing videos in batches", Status: StepPending},
			"data_persistence": {Label: "DATA_PERSISTENCE", Description: "Saving data to database", Status: StepPending},
			"rate_limit_delays": {Label: "RATE_LIMIT_DELAYS", Description: "Applying human-like delays", Status: StepPending},
		},
	},
	StageFinalizing: {
		Info: StageInfo{Title: "STAGE 4: FINALIZING", Variant: "TASK"},
		Steps: map[string]Step{
			"report_generation": {Label: "REPORT_GENERATION", Description: "Compiling final run report", Status: StepPending},
			"browser_shutdown":  {Label: "BROWSER_SHUTDOWN", Description: "Closing browser instance", Status: StepPending},
			"process_complete":  {Label: "PROCESS_COMPLETE", Description: "Harvester run finished", Status: StepPending},
		},
	},
	StageSuccess: {
		Info: StageInfo{Title: "COMPLETE: HARVEST SUCCESSFUL", Variant: "SUCCESS"},
		Steps: map[string]Step{
			"success": {Label: "SUCCESS", Description: "The operation completed successfully.", Status: StepPending},
		},
	},
	StageError: {
		Info: StageInfo{Title: "ERROR: HARVEST FAILED", Variant: "FAILURE"},
		Steps: map[string]Step{
			"error": {Label: "ERROR", Description: "An unrecoverable error occurred.", Status: StepPending},
		},
	},
}
