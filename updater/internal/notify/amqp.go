package notify

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQP publishes events as persistent JSON messages to a durable queue on the
// default exchange. A connection is opened per event; cycles are hours apart.
type AMQP struct {
	url   string
	queue string
}

// NewAMQP returns a notifier publishing to queue on the broker at url.
func NewAMQP(url, queue string) *AMQP {
	return &AMQP{url: url, queue: queue}
}

// Notify publishes ev.
func (a *AMQP) Notify(ctx context.Context, ev Event) error {
	msg, err := message(ev)
	if err != nil {
		return err
	}

	conn, err := amqp.Dial(a.url)
	if err != nil {
		return fmt.Errorf("amqp dial: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("amqp channel: %w", err)
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(a.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("amqp declare %s: %w", a.queue, err)
	}
	if err := ch.PublishWithContext(ctx, "", a.queue, false, false, msg); err != nil {
		return fmt.Errorf("amqp publish %s: %w", a.queue, err)
	}
	return nil
}

func message(ev Event) (amqp.Publishing, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("amqp encode: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.RunID,
		Timestamp:    ev.StartedAt,
		Type:         "trends.updated",
		Body:         body,
	}, nil
}
