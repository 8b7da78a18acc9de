package scraper

import (
	"context"
	"time"
)

// Page is a single browser tab acquired from the shared context. Callers
// must Close the page when done, including on error paths.
type Page interface {
	// Navigate loads the URL and returns once the document is interactive.
	Navigate(ctx context.Context, url string) error
	// WaitAttached blocks until the selector exists in the DOM or the
	// timeout elapses.
	WaitAttached(ctx context.Context, selector string, timeout time.Duration) error
	// ScrollBy scrolls the viewport vertically by deltaY pixels.
	ScrollBy(ctx context.Context, deltaY int) error
	// Hrefs returns the href of every anchor matching the selector.
	Hrefs(ctx context.Context, selector string) ([]string, error)
	// Text returns the inner text of the first element matching the selector.
	Text(ctx context.Context, selector string) (string, error)
	// ClickAll clicks every visible element matching the selector and
	// reports how many were clicked.
	ClickAll(ctx context.Context, selector string) (int, error)
	// Comments extracts the currently rendered comment containers using the
	// given layout's selectors.
	Comments(ctx context.Context, layout CommentLayout) ([]DOMComment, error)
	// Close releases the tab.
	Close()
}

// Browser hands out pages from one shared automation context. Closing the
// browser tears down the context, which makes in-flight page operations
// fail; that is the cancellation mechanism for a running mission.
type Browser interface {
	NewPage(ctx context.Context) (Page, error)
	Close(ctx context.Context) error
}

// DOMComment is the raw shape a page returns for one rendered comment
// container, before it becomes a CommentRecord.
type DOMComment struct {
	DOMID     string       `json:"dom_id"`
	Author    string       `json:"author"`
	Text      string       `json:"text"`
	Likes     string       `json:"likes"`
	IsCreator bool         `json:"is_creator"`
	Replies   []DOMComment `json:"replies"`
}

// VideoStore persists scraped records and answers existence checks.
type VideoStore interface {
	// StoredVideoIDs returns the subset of ids already present in the store.
	StoredVideoIDs(ctx context.Context, ids []string) (map[string]struct{}, error)
	// UpsertVideo inserts or updates the record and its comments atomically,
	// keyed by VideoID.
	UpsertVideo(ctx context.Context, record VideoRecord) error
}

// Bus publishes payloads to a named topic, fire-and-forget.
type Bus interface {
	Publish(ctx context.Context, topic string, payload any) error
}

// EnrichmentPublisher pushes persisted video ids to a downstream queue.
type EnrichmentPublisher interface {
	Publish(ctx context.Context, queue string, videoID string) error
}

// Delayer injects the randomized anti-detection waits so tests can run with
// a zero-delay implementation.
type Delayer interface {
	// Jitter sleeps for a uniformly random duration in [min, max], or until
	// the context is done.
	Jitter(ctx context.Context, min, max time.Duration)
}
