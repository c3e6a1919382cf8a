package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Store persists audit events. Implementations: InMemoryStore, KafkaStore.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Publisher captures structured audit events. Compliance events are
// fail-closed: if the store rejects them, Emit returns the error and the
// calling operation must fail. Operations events are logged and dropped.
type Publisher struct {
	store  Store
	logger *slog.Logger
}

type Option func(*Publisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func NewPublisher(store Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Action == "" {
		return fmt.Errorf("audit event requires Action")
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Category == "" {
		event.Category = event.Action.Category()
	}

	if err := p.store.Append(ctx, event); err != nil {
		if event.Category == CategoryCompliance {
			if p.logger != nil {
				p.logger.ErrorContext(ctx, "compliance audit failed",
					"action", event.Action,
					"subject_id", event.SubjectID,
					"error", err,
				)
			}
			return fmt.Errorf("compliance audit persistence failed: %w", err)
		}
		if p.logger != nil {
			p.logger.WarnContext(ctx, "audit event dropped",
				"action", event.Action,
				"error", err,
			)
		}
	}
	return nil
}
