// Package memory contains an in-memory event bus for tests.
package memory

import (
	"context"
	"sync"
)

// Bus records published payloads for inspection.
type Bus struct {
	mu       sync.RWMutex
	messages []PublishedMessage
}

// PublishedMessage captures one publish call.
type PublishedMessage struct {
	Topic   string
	Payload any
}

// New returns a memory Bus.
func New() *Bus {
	return &Bus{}
}

// Publish records the message.
func (b *Bus) Publish(_ context.Context, topic string, payload any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, PublishedMessage{Topic: topic, Payload: payload})
	return nil
}

// Messages returns the recorded publishes.
func (b *Bus) Messages() []PublishedMessage {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]PublishedMessage, len(b.messages))
	copy(out, b.messages)
	return out
}

// ByTopic returns the recorded publishes for one topic.
func (b *Bus) ByTopic(topic string) []PublishedMessage {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []PublishedMessage
	for _, msg := range b.messages {
		if msg.Topic == topic {
			out = append(out, msg)
		}
	}
	return out
}
