package amqp

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// Client wraps one AMQP connection with two durable queues on a direct
// exchange: eventQueue carries ledger change notifications, importQueue
// carries statement batches for the import worker.
type Client struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	eventQueue   string
	importQueue  string
}

func NewClient(url, exchangeName, eventQueue, importQueue string) (*Client, error) {
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
		eventQueue:   eventQueue,
		importQueue:  importQueue,
	}

	if err := client.setup(); err != nil {
		client.Close()
		return nil, fmt.Errorf("setup exchange and queues: %w", err)
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

	for _, queue := range []string{c.eventQueue, c.importQueue} {
		_, err = c.channel.QueueDeclare(
			queue,
			true,  // durable
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			nil,
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", queue, err)
		}

		// Routing key mirrors the queue name on a direct exchange.
		err = c.channel.QueueBind(queue, queue, c.exchangeName, false, nil)
		if err != nil {
			return fmt.Errorf("bind queue %s: %w", queue, err)
		}
	}

	return nil
}

// PublishTransactionEvent publishes a ledger change notification.
func (c *Client) PublishTransactionEvent(ctx context.Context, evt *TransactionEvent) error {
	body, err := evt.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if err := c.publish(ctx, c.eventQueue, body); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Published transaction event",
		"kind", evt.Kind,
		"transaction_id", evt.TransactionID,
		"account_id", evt.AccountID,
		"count", evt.Count)
	return nil
}

// PublishStatementBatch enqueues a statement batch for the import worker.
func (c *Client) PublishStatementBatch(ctx context.Context, msg *StatementBatchMessage) error {
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal batch: %w", err)
	}

	if err := c.publish(ctx, c.importQueue, body); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Published statement batch",
		"account_id", msg.AccountID,
		"user_id", msg.UserID,
		"rows", len(msg.Rows))
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

// ConsumeStatementBatches delivers statement batches to handler with manual
// acks. A handler error nacks with requeue; a malformed body is dropped.
func (c *Client) ConsumeStatementBatches(ctx context.Context, handler func(*StatementBatchMessage) error) error {
	msgs, err := c.channel.Consume(
		c.importQueue,
		"",    // consumer
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming statement batches", "queue", c.importQueue)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}

			msg, err := StatementBatchMessageFromJSON(delivery.Body)
			if err != nil {
				slog.ErrorContext(ctx, "Failed to unmarshal batch", "error", err)
				delivery.Nack(false, false)
				continue
			}

			if err := handler(msg); err != nil {
				slog.ErrorContext(ctx, "Failed to handle batch",
					"error", err,
					"account_id", msg.AccountID,
					"rows", len(msg.Rows))
				delivery.Nack(false, true)
				continue
			}

			delivery.Ack(false)
			slog.InfoContext(ctx, "Processed statement batch",
				"account_id", msg.AccountID,
				"rows", len(msg.Rows))
		}
	}
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
