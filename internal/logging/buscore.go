package logging

import (
	"context"
	"time"

	"go.uber.org/zap/zapcore"
)

// Publisher is the slice of the event bus the log forwarder needs.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) error
}

const logTopic = "scraper_logs"

// LogEvent is the payload shape forwarded to the log topic.
type LogEvent struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Logger    string `json:"logger"`
	Message   string `json:"message"`
}

// BusCore is a zapcore.Core that forwards log entries to the event bus so
// dashboard subscribers can tail the scraper. Publishes are fire-and-forget
// with a short deadline; logging never blocks on the bus.
type BusCore struct {
	zapcore.LevelEnabler
	bus Publisher
}

// NewBusCore forwards entries at or above the given level.
func NewBusCore(bus Publisher, enab zapcore.LevelEnabler) *BusCore {
	return &BusCore{LevelEnabler: enab, bus: bus}
}

// With implements zapcore.Core. Structured fields are not forwarded, only
// the rendered message.
func (c *BusCore) With([]zapcore.Field) zapcore.Core { return c }

// Check implements zapcore.Core.
func (c *BusCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return checked.AddCore(entry, c)
	}
	return checked
}

// Write implements zapcore.Core.
func (c *BusCore) Write(entry zapcore.Entry, _ []zapcore.Field) error {
	event := LogEvent{
		Timestamp: entry.Time.UTC().Format(time.RFC3339),
		Level:     entry.Level.String(),
		Logger:    entry.LoggerName,
		Message:   entry.Message,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = c.bus.Publish(ctx, logTopic, event)
	}()
	return nil
}

// Sync implements zapcore.Core.
func (c *BusCore) Sync() error { return nil }
