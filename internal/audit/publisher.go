package audit

import (
	"context"
	"time"

	"github.com/texlink-oficial/texlink/pkg/requestcontext"
)

// Store persists audit events. Implementations are append-only.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByCredential(ctx context.Context, credentialID string) ([]Event, error)
}

// Publisher captures structured audit events. It is append-only and uses the
// storage layer for persistence so tests can swap sinks easily.
type Publisher struct {
	store Store
}

func NewPublisher(store Store) *Publisher {
	return &Publisher{store: store}
}

func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	return p.store.Append(ctx, event)
}

func (p *Publisher) List(ctx context.Context, credentialID string) ([]Event, error) {
	return p.store.ListByCredential(ctx, credentialID)
}
