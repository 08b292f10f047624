package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	workerBatchSize = 100
	workerInterval  = 2 * time.Second
)

// Outbox is the slice of the postgres store the worker needs.
type Outbox interface {
	FetchUnpublished(ctx context.Context, limit int) ([]OutboxRow, error)
	MarkPublished(ctx context.Context, rowID uuid.UUID) error
}

// Sink is the publish side; KafkaSink in production.
type Sink interface {
	Produce(ctx context.Context, key string, payload []byte) error
}

// Worker drains the audit outbox into the sink. Rows that fail to publish stay
// unpublished and are retried on the next tick.
type Worker struct {
	outbox Outbox
	sink   Sink
	logger *slog.Logger
}

func NewWorker(outbox Outbox, sink Sink, logger *slog.Logger) *Worker {
	return &Worker{outbox: outbox, sink: sink, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(workerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.drain(ctx)
		}
	}
}

func (w *Worker) drain(ctx context.Context) {
	rows, err := w.outbox.FetchUnpublished(ctx, workerBatchSize)
	if err != nil {
		w.logger.ErrorContext(ctx, "audit outbox fetch failed", "error", err)
		return
	}

	for _, row := range rows {
		if err := w.sink.Produce(ctx, row.AggregateID, row.Payload); err != nil {
			w.logger.WarnContext(ctx, "audit publish failed, will retry",
				"outbox_id", row.ID,
				"error", err,
			)
			return
		}
		if err := w.outbox.MarkPublished(ctx, row.ID); err != nil {
			w.logger.ErrorContext(ctx, "audit mark published failed", "outbox_id", row.ID, "error", err)
			return
		}
	}
}
