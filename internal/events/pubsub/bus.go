// Package pubsub implements the event bus on Google Cloud Pub/Sub.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	pubsub "cloud.google.com/go/pubsub/v2"
)

// Bus fans scraper events out to Pub/Sub topics. Publisher handles are
// created lazily and cached per topic.
type Bus struct {
	client *pubsub.Client

	mu         sync.Mutex
	publishers map[string]*pubsub.Publisher
}

// New creates a Bus on the provided client.
func New(client *pubsub.Client) *Bus {
	return &Bus{
		client:     client,
		publishers: make(map[string]*pubsub.Publisher),
	}
}

// Publish marshals the payload to JSON and publishes it to the topic,
// waiting for the server acknowledgement.
func (b *Bus) Publish(ctx context.Context, topic string, payload any) error {
	if b == nil || b.client == nil {
		return fmt.Errorf("pubsub bus is not configured")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	result := b.publisher(topic).Publish(ctx, &pubsub.Message{Data: data})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

func (b *Bus) publisher(topic string) *pubsub.Publisher {
	b.mu.Lock()
	defer b.mu.Unlock()
	pub, ok := b.publishers[topic]
	if !ok {
		pub = b.client.Publisher(topic)
		b.publishers[topic] = pub
	}
	return pub
}

// Close stops every cached publisher, flushing pending messages.
func (b *Bus) Close() {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, pub := range b.publishers {
		pub.Stop()
	}
	b.publishers = make(map[string]*pubsub.Publisher)
}
