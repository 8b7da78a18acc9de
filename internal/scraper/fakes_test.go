package scraper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// fakePage is a scriptable Page for unit tests.
type fakePage struct {
	mu        sync.Mutex
	navigated []string
	attached  map[string]bool
	texts     map[string]string
	textFor   func(lastURL string) (string, error)
	hrefQueue [][]string
	hrefsErr  error
	comments  []DOMComment
	clickable map[string]int
	scrolls   int
	closed    bool
	navErr    error
}

func newFakePage() *fakePage {
	return &fakePage{
		attached:  make(map[string]bool),
		texts:     make(map[string]string),
		clickable: make(map[string]int),
	}
}

func (p *fakePage) lastNavigated() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.navigated) == 0 {
		return ""
	}
	return p.navigated[len(p.navigated)-1]
}

func (p *fakePage) Navigate(_ context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.navigated = append(p.navigated, url)
	return p.navErr
}

func (p *fakePage) WaitAttached(_ context.Context, selector string, _ time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.attached[selector] {
		return nil
	}
	return fmt.Errorf("selector %q never attached", selector)
}

func (p *fakePage) ScrollBy(_ context.Context, _ int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scrolls++
	return nil
}

func (p *fakePage) Hrefs(_ context.Context, _ string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.hrefsErr != nil {
		return nil, p.hrefsErr
	}
	if len(p.hrefQueue) == 0 {
		return nil, nil
	}
	next := p.hrefQueue[0]
	if len(p.hrefQueue) > 1 {
		p.hrefQueue = p.hrefQueue[1:]
	}
	return next, nil
}

func (p *fakePage) Text(_ context.Context, selector string) (string, error) {
	if p.textFor != nil {
		return p.textFor(p.lastNavigated())
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if text, ok := p.texts[selector]; ok {
		return text, nil
	}
	return "", errors.New("no text configured")
}

func (p *fakePage) ClickAll(_ context.Context, selector string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := p.clickable[selector]
	p.clickable[selector] = 0
	return n, nil
}

func (p *fakePage) Comments(_ context.Context, _ CommentLayout) ([]DOMComment, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.comments, nil
}

func (p *fakePage) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}

// fakeBrowser hands out pages from a factory.
type fakeBrowser struct {
	mu      sync.Mutex
	newPage func() (Page, error)
	opened  int
	closed  bool
}

func (b *fakeBrowser) NewPage(_ context.Context) (Page, error) {
	b.mu.Lock()
	b.opened++
	b.mu.Unlock()
	return b.newPage()
}

func (b *fakeBrowser) Close(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// recordBus captures published payloads per topic.
type recordBus struct {
	mu       sync.Mutex
	messages map[string][]any
	err      error
}

func newRecordBus() *recordBus {
	return &recordBus{messages: make(map[string][]any)}
}

func (b *recordBus) Publish(_ context.Context, topic string, payload any) error {
	if b.err != nil {
		return b.err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages[topic] = append(b.messages[topic], payload)
	return nil
}

func (b *recordBus) byTopic(topic string) []any {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]any, len(b.messages[topic]))
	copy(out, b.messages[topic])
	return out
}

// fakeStore is an in-memory VideoStore with scriptable failures.
type fakeStore struct {
	mu        sync.Mutex
	stored    map[string]struct{}
	upserts   []VideoRecord
	queryErr  error
	upsertErr error
}

func newFakeStore(existing ...string) *fakeStore {
	s := &fakeStore{stored: make(map[string]struct{})}
	for _, id := range existing {
		s.stored[id] = struct{}{}
	}
	return s
}

func (s *fakeStore) StoredVideoIDs(_ context.Context, ids []string) (map[string]struct{}, error) {
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	found := make(map[string]struct{})
	for _, id := range ids {
		if _, ok := s.stored[id]; ok {
			found[id] = struct{}{}
		}
	}
	return found, nil
}

func (s *fakeStore) UpsertVideo(_ context.Context, record VideoRecord) error {
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stored[record.VideoID] = struct{}{}
	s.upserts = append(s.upserts, record)
	return nil
}

func (s *fakeStore) upsertCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.upserts)
}

// fakeEnricher records published video ids.
type fakeEnricher struct {
	mu  sync.Mutex
	ids []string
	err error
}

func (e *fakeEnricher) Publish(_ context.Context, _ string, videoID string) error {
	if e.err != nil {
		return e.err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ids = append(e.ids, videoID)
	return nil
}

func (e *fakeEnricher) published() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.ids))
	copy(out, e.ids)
	return out
}

// hydrationJSON renders a minimal embedded page state for one video.
func hydrationJSON(videoID, author, desc string, commentCount int) string {
	return fmt.Sprintf(`{
		"__DEFAULT_SCOPE__": {
			"webapp.video-detail": {
				"itemInfo": {
					"itemStruct": {
						"id": %q,
						"desc": %q,
						"createTime": 1700000000,
						"video": {"cover": "https://cdn.example.com/%s.jpg"},
						"author": {"uniqueId": %q},
						"stats": {
							"diggCount": 10,
							"shareCount": 2,
							"commentCount": %d,
							"playCount": 500
						}
					}
				}
			}
		}
	}`, videoID, desc, videoID, author, commentCount)
}
