package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"storefront/internal/util"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// AMQPProducer publishes events to a durable RabbitMQ queue
type AMQPProducer struct {
	conn   *amqp.Connection
	ch     *amqp.Channel
	queue  string
	logger *zap.Logger
}

// NewAMQPProducer dials url and declares queue
func NewAMQPProducer(url, queue string) (*AMQPProducer, error) {
	conn, ch, err := dialQueue(url, queue)
	if err != nil {
		return nil, err
	}
	return &AMQPProducer{conn: conn, ch: ch, queue: queue, logger: util.GetLogger()}, nil
}

// PublishEvent publishes an event to the queue. The key travels as the
// message id so consumers can log it.
func (p *AMQPProducer) PublishEvent(ctx context.Context, key string, event interface{}) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = p.ch.PublishWithContext(ctx,
		"",
		p.queue,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    key,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish to rabbitmq: %w", err)
	}

	p.logger.Debug("Published event", zap.String("key", key), zap.String("queue", p.queue))
	return nil
}

// Close closes the channel and the connection
func (p *AMQPProducer) Close() error {
	_ = p.ch.Close()
	return p.conn.Close()
}

// AMQPConsumer consumes events from a RabbitMQ queue
type AMQPConsumer struct {
	conn   *amqp.Connection
	ch     *amqp.Channel
	queue  string
	logger *zap.Logger
}

// NewAMQPConsumer dials url and declares queue
func NewAMQPConsumer(url, queue string) (*AMQPConsumer, error) {
	conn, ch, err := dialQueue(url, queue)
	if err != nil {
		return nil, err
	}
	if err := ch.Qos(10, 0, false); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to set qos: %w", err)
	}
	return &AMQPConsumer{conn: conn, ch: ch, queue: queue, logger: util.GetLogger()}, nil
}

// StartConsuming acks every delivery after handler returns; failures are logged
func (c *AMQPConsumer) StartConsuming(ctx context.Context, handler MessageHandler) error {
	msgs, err := c.ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to consume %s: %w", c.queue, err)
	}

	c.logger.Info("Starting RabbitMQ consumer", zap.String("queue", c.queue))

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Consumer context cancelled, stopping")
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel for %s closed", c.queue)
			}
			if err := handler(ctx, d.Body); err != nil {
				c.logger.Error("Error handling message",
					zap.String("message_id", d.MessageId),
					zap.Error(err))
			}
			if err := d.Ack(false); err != nil {
				c.logger.Error("Error acking message", zap.Error(err))
			}
		}
	}
}

// Close closes the channel and the connection
func (c *AMQPConsumer) Close() error {
	_ = c.ch.Close()
	return c.conn.Close()
}

func dialQueue(url, queue string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("failed to open rabbitmq channel: %w", err)
	}

	_, err = ch.QueueDeclare(
		queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}
	return conn, ch, nil
}
