package audit

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/texlink-oficial/texlink/pkg/requestcontext"
)

func TestPublisher_EmitFillsTimestampAndRequestID(t *testing.T) {
	store := NewInMemoryStore()
	publisher := NewPublisher(store)

	ctx := requestcontext.WithRequestID(context.Background(), "req-42")
	err := publisher.Emit(ctx, Event{
		CredentialID: "cred-1",
		Action:       ActionCredentialCreated,
		ActorID:      "user-1",
	})
	require.NoError(t, err)

	events := store.All()
	require.Len(t, events, 1)
	assert.False(t, events[0].Timestamp.IsZero())
	assert.Equal(t, "req-42", events[0].RequestID)
}

func TestPublisher_EmitKeepsExplicitFields(t *testing.T) {
	store := NewInMemoryStore()
	publisher := NewPublisher(store)

	stamp := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	err := publisher.Emit(context.Background(), Event{
		Timestamp:    stamp,
		CredentialID: "cred-1",
		Action:       ActionStatusChanged,
		RequestID:    "explicit",
	})
	require.NoError(t, err)

	events := store.All()
	require.Len(t, events, 1)
	assert.Equal(t, stamp, events[0].Timestamp)
	assert.Equal(t, "explicit", events[0].RequestID)
}

func TestPublisher_ListFiltersByCredential(t *testing.T) {
	store := NewInMemoryStore()
	publisher := NewPublisher(store)
	ctx := context.Background()

	require.NoError(t, publisher.Emit(ctx, Event{CredentialID: "cred-1", Action: ActionCredentialCreated}))
	require.NoError(t, publisher.Emit(ctx, Event{CredentialID: "cred-2", Action: ActionCredentialCreated}))
	require.NoError(t, publisher.Emit(ctx, Event{CredentialID: "cred-1", Action: ActionStatusChanged}))

	events, err := publisher.List(ctx, "cred-1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, ActionCredentialCreated, events[0].Action)
	assert.Equal(t, ActionStatusChanged, events[1].Action)
}

type fakeOutbox struct {
	rows      []OutboxRow
	published []uuid.UUID
}

func (f *fakeOutbox) FetchUnpublished(context.Context, int) ([]OutboxRow, error) {
	var pending []OutboxRow
	for _, row := range f.rows {
		if !f.isPublished(row.ID) {
			pending = append(pending, row)
		}
	}
	return pending, nil
}

func (f *fakeOutbox) MarkPublished(_ context.Context, rowID uuid.UUID) error {
	f.published = append(f.published, rowID)
	return nil
}

func (f *fakeOutbox) isPublished(rowID uuid.UUID) bool {
	for _, published := range f.published {
		if published == rowID {
			return true
		}
	}
	return false
}

type fakeSink struct {
	produced []string
	failOn   string
}

func (f *fakeSink) Produce(_ context.Context, key string, _ []byte) error {
	if key == f.failOn {
		return errors.New("broker unavailable")
	}
	f.produced = append(f.produced, key)
	return nil
}

func outboxRow(aggregateID string) OutboxRow {
	return OutboxRow{ID: uuid.New(), AggregateID: aggregateID, Payload: []byte(`{}`)}
}

func TestWorker_DrainPublishesAndMarks(t *testing.T) {
	outbox := &fakeOutbox{rows: []OutboxRow{outboxRow("cred-1"), outboxRow("cred-2")}}
	sink := &fakeSink{}
	worker := NewWorker(outbox, sink, slog.Default())

	worker.drain(context.Background())

	assert.Equal(t, []string{"cred-1", "cred-2"}, sink.produced)
	assert.Len(t, outbox.published, 2)
}

func TestWorker_FailedProduceStopsAndRetriesLater(t *testing.T) {
	outbox := &fakeOutbox{rows: []OutboxRow{outboxRow("cred-1"), outboxRow("cred-2"), outboxRow("cred-3")}}
	sink := &fakeSink{failOn: "cred-2"}
	worker := NewWorker(outbox, sink, slog.Default())

	worker.drain(context.Background())
	assert.Equal(t, []string{"cred-1"}, sink.produced)
	assert.Len(t, outbox.published, 1, "rows after the failure stay unpublished")

	// Broker recovers; next tick picks up where it left off.
	sink.failOn = ""
	worker.drain(context.Background())
	assert.Equal(t, []string{"cred-1", "cred-2", "cred-3"}, sink.produced)
	assert.Len(t, outbox.published, 3)
}
