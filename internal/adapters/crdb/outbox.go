package crdb

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/robertarktes/seat-reservation-engine/internal/domain"
)

type OutboxRecord struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   uuid.UUID
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Status        string // NEW, PUBLISHED, FAILED
	DedupeKey     string
}

func (l *Ledger) InsertOutbox(ctx context.Context, tx pgx.Tx, record OutboxRecord) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload_json, status, dedupe_key)
		VALUES ($1, $2, $3, $4, $5, 'NEW', $6)
	`, record.ID, record.AggregateType, record.AggregateID, record.EventType, record.Payload, record.DedupeKey)
	return err
}

// insertOutboxTx enqueues an order lifecycle event in the same transaction as
// the state transition it describes.
func (l *Ledger) insertOutboxTx(ctx context.Context, tx pgx.Tx, order domain.Order, eventType string) error {
	payload, err := json.Marshal(map[string]interface{}{
		"order_id":  order.ID,
		"show_id":   order.ShowID,
		"holder_id": order.HolderID,
		"seats":     order.Seats,
	})
	if err != nil {
		return err
	}
	return l.InsertOutbox(ctx, tx, OutboxRecord{
		ID:            uuid.New(),
		AggregateType: "order",
		AggregateID:   order.ID,
		EventType:     eventType,
		Payload:       payload,
		DedupeKey:     uuid.New().String(),
	})
}

func (l *Ledger) GetUnpublishedOutbox(ctx context.Context, limit int) ([]OutboxRecord, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT id, aggregate_type, aggregate_id, event_type, payload_json, created_at, published_at, status, dedupe_key
		FROM outbox WHERE status = 'NEW' ORDER BY created_at ASC LIMIT $1 FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []OutboxRecord
	for rows.Next() {
		var rec OutboxRecord
		err := rows.Scan(&rec.ID, &rec.AggregateType, &rec.AggregateID, &rec.EventType, &rec.Payload, &rec.CreatedAt, &rec.PublishedAt, &rec.Status, &rec.DedupeKey)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (l *Ledger) MarkPublished(ctx context.Context, id uuid.UUID, publishedAt time.Time, dedupeKey string) error {
	_, err := l.pool.Exec(ctx, `
		UPDATE outbox SET status = 'PUBLISHED', published_at = $2, dedupe_key = $3 WHERE id = $1
	`, id, publishedAt, dedupeKey)
	return err
}
