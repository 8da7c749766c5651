package persistence

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/civicdesk/municipal-service/internal/config"
)

// RabbitPublisher publishes lifecycle events to a direct exchange.
type RabbitPublisher struct {
	conn       *amqp.Connection
	channel    *amqp.Channel
	exchange   string
	routingKey string
}

// NewRabbitPublisher dials the broker and declares the exchange, queue and binding.
func NewRabbitPublisher(cfg config.BrokerConfig, logger *zap.Logger) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(cfg.Exchange, "direct", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	if _, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(cfg.Queue, cfg.RoutingKey, cfg.Exchange, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("bind queue: %w", err)
	}

	logger.Info("connected to rabbitmq", zap.String("exchange", cfg.Exchange), zap.String("queue", cfg.Queue))
	return &RabbitPublisher{
		conn:       conn,
		channel:    ch,
		exchange:   cfg.Exchange,
		routingKey: cfg.RoutingKey,
	}, nil
}

// Publish sends body as a persistent JSON message tagged with eventType.
func (r *RabbitPublisher) Publish(ctx context.Context, eventID, eventType string, body []byte) error {
	return r.channel.PublishWithContext(ctx,
		r.exchange,
		r.routingKey,
		false, false,
		amqp.Publishing{
			ContentType:  "application/json",
			MessageId:    eventID,
			Type:         eventType,
			Body:         body,
			Timestamp:    time.Now().UTC(),
			DeliveryMode: amqp.Persistent,
		},
	)
}

// Close releases the channel and connection.
func (r *RabbitPublisher) Close() {
	if r == nil {
		return
	}
	_ = r.channel.Close()
	_ = r.conn.Close()
}
