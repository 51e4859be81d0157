package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

const notificationsExchange = "notifications_fanout"

// AMQPNotifier publishes notification events to a RabbitMQ fanout exchange.
// Downstream consumers (push, SMS, email workers) subscribe independently.
type AMQPNotifier struct {
	conn   *amqp.Connection
	ch     *amqp.Channel
	logger zerolog.Logger
}

// envelope is the wire shape of a published notification.
type envelope struct {
	Recipient string    `json:"recipient"`
	EventType string    `json:"event_type"`
	Payload   any       `json:"payload"`
	SentAt    time.Time `json:"sent_at"`
}

// DialAMQP connects to RabbitMQ and declares the notifications exchange.
func DialAMQP(url string, logger zerolog.Logger) (*AMQPNotifier, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(notificationsExchange, "fanout", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}
	return &AMQPNotifier{
		conn:   conn,
		ch:     ch,
		logger: logger.With().Str("component", "amqp_notifier").Logger(),
	}, nil
}

// Notify implements Notifier by publishing a persistent JSON message.
func (n *AMQPNotifier) Notify(ctx context.Context, recipientRef, eventType string, payload any) error {
	body, err := json.Marshal(envelope{
		Recipient: recipientRef,
		EventType: eventType,
		Payload:   payload,
		SentAt:    time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	err = n.ch.PublishWithContext(ctx, notificationsExchange, "", false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}

	n.logger.Debug().
		Str("recipient", recipientRef).
		Str("event_type", eventType).
		Msg("notification published")
	return nil
}

// Close releases the channel and connection.
func (n *AMQPNotifier) Close() {
	if n == nil {
		return
	}
	if n.ch != nil {
		_ = n.ch.Close()
	}
	if n.conn != nil {
		_ = n.conn.Close()
	}
}
