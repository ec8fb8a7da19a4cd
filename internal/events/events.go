package events

import (
	"context"
	"log/slog"
)

// Event is a domain fact emitted after a successful state change.
type Event interface {
	EventName() string
}

type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// LogPublisher records events as structured log lines.
type LogPublisher struct {
	Logger *slog.Logger
}

func NewLogPublisher(l *slog.Logger) *LogPublisher {
	if l == nil {
		l = slog.Default()
	}
	return &LogPublisher{Logger: l.With("component", "events")}
}

func (p *LogPublisher) Publish(ctx context.Context, e Event) {
	p.Logger.InfoContext(ctx, "domain event", "event", e.EventName(), "payload", e)
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) {}
