// Package amqp connects the bot and the worker through RabbitMQ. The bot
// publishes report requests; the worker consumes them.
package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp091 "github.com/rabbitmq/amqp091-go"

	"spendbot/internal/log"
)

const publishTimeout = 5 * time.Second

// Config holds the broker topology.
type Config struct {
	URL      string
	Exchange string
	Queue    string
}

// Client wraps one AMQP connection and channel.
type Client struct {
	conn    *amqp091.Connection
	channel *amqp091.Channel
	config  Config
	logger  *slog.Logger
}

// NewClient connects to the broker and declares the exchange, queue, and
// binding. The topology is declared by both processes so startup order does
// not matter.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	conn, err := amqp091.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := channel.ExchangeDeclare(cfg.Exchange, "direct", true, false, false, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", cfg.Exchange, err)
	}

	queue, err := channel.QueueDeclare(cfg.Queue, true, false, false, false, nil)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", cfg.Queue, err)
	}

	if err := channel.QueueBind(queue.Name, queue.Name, cfg.Exchange, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("bind queue %s: %w", queue.Name, err)
	}

	logger.Info("connected to broker",
		log.FieldExchange, cfg.Exchange,
		log.FieldQueue, cfg.Queue)

	return &Client{conn: conn, channel: channel, config: cfg, logger: logger}, nil
}

// Close closes the channel and connection.
func (c *Client) Close() error {
	if err := c.channel.Close(); err != nil {
		c.conn.Close()
		return fmt.Errorf("close channel: %w", err)
	}
	return c.conn.Close()
}

// PublishReportRequest enqueues one report request as a persistent message.
func (c *Client) PublishReportRequest(ctx context.Context, req ReportRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal report request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = c.channel.PublishWithContext(ctx, c.config.Exchange, c.config.Queue, false, false,
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("publish report request: %w", err)
	}

	c.logger.Debug("published report request",
		log.FieldUserID, req.UserID,
		log.FieldYear, req.Year,
		log.FieldMonth, req.Month)
	return nil
}

// ConsumeReportRequests delivers queued requests to handle until ctx is
// canceled. A handler error requeues the message once; a redelivered
// failure is dropped to keep one bad message from wedging the queue.
func (c *Client) ConsumeReportRequests(ctx context.Context, handle func(context.Context, ReportRequest) error) error {
	if err := c.channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := c.channel.Consume(c.config.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed")
			}
			c.handleDelivery(ctx, d, handle)
		}
	}
}

func (c *Client) handleDelivery(ctx context.Context, d amqp091.Delivery, handle func(context.Context, ReportRequest) error) {
	var req ReportRequest
	if err := json.Unmarshal(d.Body, &req); err != nil {
		c.logger.Error("dropping malformed message", log.FieldError, err)
		d.Nack(false, false)
		return
	}

	if err := handle(ctx, req); err != nil {
		c.logger.Error("report request failed",
			log.FieldUserID, req.UserID,
			log.FieldYear, req.Year,
			log.FieldMonth, req.Month,
			log.FieldError, err)
		d.Nack(false, !d.Redelivered)
		return
	}

	d.Ack(false)
}
