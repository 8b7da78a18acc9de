// Package enrich hands persisted video ids to the downstream enrichment
// pipeline. The abstraction keeps the scraper independent of the queue
// implementation.
package enrich

import (
	"context"
	"fmt"
	"sync"

	pubsub "cloud.google.com/go/pubsub/v2"
)

// PubSubPublisher implements scraper.EnrichmentPublisher on Google Cloud
// Pub/Sub. Publishes wait for the server acknowledgement because a lost id
// means a video never gets enriched.
type PubSubPublisher struct {
	client *pubsub.Client

	mu         sync.Mutex
	publishers map[string]*pubsub.Publisher
}

// NewPubSubPublisher creates a publisher on an existing client.
func NewPubSubPublisher(client *pubsub.Client) *PubSubPublisher {
	return &PubSubPublisher{
		client:     client,
		publishers: make(map[string]*pubsub.Publisher),
	}
}

// Publish sends the video id to the named queue topic.
func (p *PubSubPublisher) Publish(ctx context.Context, queue string, videoID string) error {
	if p == nil || p.client == nil {
		return fmt.Errorf("enrichment publisher is not configured")
	}
	result := p.publisher(queue).Publish(ctx, &pubsub.Message{Data: []byte(videoID)})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish video id to %s: %w", queue, err)
	}
	return nil
}

func (p *PubSubPublisher) publisher(queue string) *pubsub.Publisher {
	p.mu.Lock()
	defer p.mu.Unlock()
	pub, ok := p.publishers[queue]
	if !ok {
		pub = p.client.Publisher(queue)
		p.publishers[queue] = pub
	}
	return pub
}

// Close stops every cached publisher.
func (p *PubSubPublisher) Close() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, pub := range p.publishers {
		pub.Stop()
	}
	p.publishers = make(map[string]*pubsub.Publisher)
}

// NoOpPublisher discards every publish. Useful for local runs without a
// queue backend.
type NoOpPublisher struct{}

// Publish does nothing and returns nil.
func (NoOpPublisher) Publish(_ context.Context, _ string, _ string) error { return nil }

// MemoryPublisher records published ids for tests.
type MemoryPublisher struct {
	mu  sync.RWMutex
	ids map[string][]string
}

// NewMemoryPublisher returns an empty MemoryPublisher.
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{ids: make(map[string][]string)}
}

// Publish records the id under the queue name.
func (m *MemoryPublisher) Publish(_ context.Context, queue string, videoID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids[queue] = append(m.ids[queue], videoID)
	return nil
}

// IDs returns the recorded ids for a queue.
func (m *MemoryPublisher) IDs(queue string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.ids[queue]))
	copy(out, m.ids[queue])
	return out
}
