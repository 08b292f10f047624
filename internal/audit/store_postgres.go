package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PostgresStore implements Store using the transactional outbox pattern:
// events land in the outbox table and the Kafka worker publishes them. The
// credential store's history rows remain the queryable source of truth; the
// outbox exists to feed downstream consumers.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_outbox (id, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, uuid.New(), event.CredentialID, event.Action, payload, time.Now())
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByCredential(ctx context.Context, credentialID string) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload FROM audit_outbox WHERE aggregate_id = $1 ORDER BY created_at ASC
	`, credentialID)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var event Event
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, fmt.Errorf("unmarshal audit payload: %w", err)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// FetchUnpublished returns up to limit outbox rows not yet sent to Kafka.
func (s *PostgresStore) FetchUnpublished(ctx context.Context, limit int) ([]OutboxRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, aggregate_id, payload FROM audit_outbox
		WHERE published_at IS NULL
		ORDER BY created_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch outbox: %w", err)
	}
	defer rows.Close()

	var out []OutboxRow
	for rows.Next() {
		var row OutboxRow
		if err := rows.Scan(&row.ID, &row.AggregateID, &row.Payload); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// MarkPublished stamps an outbox row after a successful Kafka produce.
func (s *PostgresStore) MarkPublished(ctx context.Context, rowID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE audit_outbox SET published_at = $2 WHERE id = $1
	`, rowID, time.Now())
	return err
}

// OutboxRow is one pending outbox entry.
type OutboxRow struct {
	ID          uuid.UUID
	AggregateID string
	Payload     []byte
}
