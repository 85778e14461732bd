package outbox

import (
	"context"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/robertarktes/seat-reservation-engine/internal/adapters/crdb"
	"github.com/robertarktes/seat-reservation-engine/internal/adapters/rabbit"
	"github.com/robertarktes/seat-reservation-engine/internal/observability"
)

// Publisher drains NEW outbox rows to RabbitMQ. Order lifecycle events are
// written to the outbox in the same transaction as the state transition, so
// the delivery here is at-least-once with the dedupe key as message id.
type Publisher struct {
	ledger    *crdb.Ledger
	rabbitPub *rabbit.Publisher
	logger    observability.Logger
}

func NewPublisher(ledger *crdb.Ledger, rabbitPub *rabbit.Publisher, logger observability.Logger) *Publisher {
	return &Publisher{ledger: ledger, rabbitPub: rabbitPub, logger: logger}
}

func (p *Publisher) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.drain(ctx)
		}
	}
}

func (p *Publisher) drain(ctx context.Context) {
	records, err := p.ledger.GetUnpublishedOutbox(ctx, 100)
	if err != nil {
		p.logger.Error("failed to read outbox", err)
		return
	}
	for _, rec := range records {
		observability.OutboxLag.Set(time.Since(rec.CreatedAt).Seconds())
		msg := amqp.Publishing{
			MessageId:   rec.DedupeKey,
			ContentType: "application/json",
			Body:        rec.Payload,
		}
		if err := p.rabbitPub.Publish(ctx, rec.EventType, msg); err != nil {
			observability.RabbitPublishRetries.Inc()
			p.logger.Error("failed to publish outbox record", err)
			continue
		}
		if err := p.ledger.MarkPublished(ctx, rec.ID, time.Now(), rec.DedupeKey); err != nil {
			p.logger.Error("failed to mark outbox record published", err)
		}
	}
}
