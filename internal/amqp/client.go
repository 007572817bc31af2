// Package amqp is the notification side-channel of the engine: budget
// and progress events go out through a direct exchange, and the export
// worker consumes them. Publishing is best effort — the engine never
// fails an operation because an event could not be delivered.
package amqp

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// Routing keys discriminate the two message types sharing the queue,
// so the consumer never decodes a body under the wrong schema.
const (
	routingKeyBudgetUpdated   = "budget.updated"
	routingKeyProgressApplied = "progress.applied"
)

type Client struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
}

func NewClient(url, exchangeName, queueName string) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	client := &Client{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		queueName:    queueName,
	}

	if err := client.setup(); err != nil {
		client.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	return client, nil
}

func (c *Client) setup() error {
	err := c.channel.ExchangeDeclare(
		c.exchangeName,
		"direct",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = c.channel.QueueDeclare(
		c.queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	for _, key := range []string{routingKeyBudgetUpdated, routingKeyProgressApplied} {
		if err := c.channel.QueueBind(c.queueName, key, c.exchangeName, false, nil); err != nil {
			return fmt.Errorf("bind queue for %s: %w", key, err)
		}
	}

	return nil
}

// PublishBudgetUpdated implements services.EventPublisher.
func (c *Client) PublishBudgetUpdated(ctx context.Context, workID string, version int64) error {
	msg := &BudgetUpdatedMessage{WorkID: workID, Version: version, Timestamp: time.Now()}
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := c.publish(ctx, routingKeyBudgetUpdated, body); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Published budget update",
		"work_id", workID,
		"version", version,
		"exchange", c.exchangeName)
	return nil
}

// PublishProgressApplied implements services.EventPublisher.
func (c *Client) PublishProgressApplied(ctx context.Context, workID, logID string, weightedProgress float64) error {
	msg := &ProgressAppliedMessage{
		WorkID:           workID,
		LogID:            logID,
		WeightedProgress: weightedProgress,
		Timestamp:        time.Now(),
	}
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := c.publish(ctx, routingKeyProgressApplied, body); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Published progress event",
		"work_id", workID,
		"log_id", logID,
		"weighted_progress", weightedProgress,
		"exchange", c.exchangeName)
	return nil
}

func (c *Client) publish(ctx context.Context, routingKey string, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := c.channel.PublishWithContext(
		ctx,
		c.exchangeName,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}
	return nil
}

// EventHandler receives the decoded messages of the shared queue.
type EventHandler interface {
	HandleBudgetUpdated(ctx context.Context, msg *BudgetUpdatedMessage) error
	HandleProgressApplied(ctx context.Context, msg *ProgressAppliedMessage) error
}

// ConsumeEvents delivers queue messages to the handler with manual
// acknowledgment: a handler error nacks with requeue, an undecodable or
// unroutable message is dropped.
func (c *Client) ConsumeEvents(ctx context.Context, handler EventHandler) error {
	msgs, err := c.channel.Consume(
		c.queueName,
		"",    // consumer tag
		false, // manual ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming events", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping event consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}

			requeue, err := handleDelivery(ctx, handler, delivery)
			if err != nil {
				slog.ErrorContext(ctx, "Failed to process event",
					"error", err,
					"routing_key", delivery.RoutingKey,
					"requeue", requeue)
				delivery.Nack(false, requeue)
				continue
			}
			delivery.Ack(false)
		}
	}
}

// handleDelivery decodes one delivery by routing key and hands it to the
// handler. The bool reports whether a failed delivery should requeue:
// handler errors are retryable, malformed messages are not.
func handleDelivery(ctx context.Context, handler EventHandler, d amqp091.Delivery) (bool, error) {
	switch d.RoutingKey {
	case routingKeyBudgetUpdated:
		msg, err := BudgetUpdatedMessageFromJSON(d.Body)
		if err != nil {
			return false, fmt.Errorf("unmarshal budget event: %w", err)
		}
		if err := handler.HandleBudgetUpdated(ctx, msg); err != nil {
			return true, fmt.Errorf("handle budget event for work %s: %w", msg.WorkID, err)
		}
	case routingKeyProgressApplied:
		msg, err := ProgressAppliedMessageFromJSON(d.Body)
		if err != nil {
			return false, fmt.Errorf("unmarshal progress event: %w", err)
		}
		if err := handler.HandleProgressApplied(ctx, msg); err != nil {
			return true, fmt.Errorf("handle progress event for work %s: %w", msg.WorkID, err)
		}
	default:
		return false, fmt.Errorf("unknown routing key %q", d.RoutingKey)
	}
	return false, nil
}

// ExponentialBackoff returns the wait before reconnect attempt n,
// doubling from one second and capped at 30s.
func ExponentialBackoff(attempt int) time.Duration {
	d := time.Second << uint(attempt)
	if d > 30*time.Second || d <= 0 {
		return 30 * time.Second
	}
	return d
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
