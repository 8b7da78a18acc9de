package scraper

import "errors"

// Error taxonomy for the harvest workflow. Only ErrLayoutNotFound (during
// discovery) and ErrBrowserInit abort a whole mission; everything raised
// inside the batch loop is recorded per item and never rethrown.
var (
	// ErrWorkflowRunning rejects a new mission while one is active.
	ErrWorkflowRunning = errors.New("a scrape workflow is already in progress")
	// ErrLayoutNotFound means no known selector signature matched the page.
	ErrLayoutNotFound = errors.New("could not detect a known page layout")
	// ErrExtraction wraps navigation or parse failures for a single item.
	ErrExtraction = errors.New("page extraction failed")
	// ErrPersistence wraps store failures for a single item.
	ErrPersistence = errors.New("persisting scraped data failed")
	// ErrBrowserInit means the shared browser context could not be acquired.
	ErrBrowserInit = errors.New("browser initialization failed")
)
