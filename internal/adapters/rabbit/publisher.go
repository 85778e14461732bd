package rabbit

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const exchange = "booking.events"

type Publisher struct {
	ch *amqp.Channel
}

func NewPublisher(conn *amqp.Connection) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	err = ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil)
	if err != nil {
		return nil, err
	}
	return &Publisher{ch: ch}, nil
}

func (p *Publisher) Publish(ctx context.Context, key string, msg amqp.Publishing) error {
	return p.ch.PublishWithContext(ctx, exchange, key, false, false, msg)
}

// PublishJSON marshals payload and publishes it under the routing key.
func (p *Publisher) PublishJSON(ctx context.Context, key string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return p.Publish(ctx, key, amqp.Publishing{
		MessageId:   uuid.New().String(),
		ContentType: "application/json",
		Body:        body,
	})
}
