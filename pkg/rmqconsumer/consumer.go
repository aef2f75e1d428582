package rmqconsumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"compraser-api/config"
)

// can scale depends on a parallel worker count
const preFetchCount = 1

var (
	ErrNoConnection = errors.New("amqp connection is not established")

	// routing key -> audit action
	auditActions = map[string]string{
		"file.uploaded":   "FileUploaded",
		"file.compressed": "FileCompressed",
		"file.expired":    "FileExpired",
	}
)

type (
	Consumer struct {
		cfg        config.MQ
		log        *zap.Logger
		chConsume  *amqp091.Channel
		chDelivery <-chan amqp091.Delivery
	}

	auditEvent struct {
		EventID  string `json:"event_id"`
		RecordID string `json:"record_id"`
	}
)

func New(cfg config.MQ, logger *zap.Logger) *Consumer {
	return &Consumer{
		cfg: cfg,
		log: logger,
	}
}

// Connect opens a dedicated channel on the publisher's connection.
func (c *Consumer) Connect(conn *amqp091.Connection) error {
	if conn == nil || conn.IsClosed() {
		return ErrNoConnection
	}

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("amqp channel: %w", err)
	}
	c.chConsume = ch

	c.log.Info("rabbitmq consumer connected successfully")

	return nil
}

func (c *Consumer) Init() error {
	if err := c.chConsume.ExchangeDeclare(
		c.cfg.Exchange,
		c.cfg.ExchangeType,
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		return fmt.Errorf("exchange declare: %w", err)
	}
	if _, err := c.chConsume.QueueDeclare(
		c.cfg.QueueName,
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	for rk := range auditActions {
		if err := c.chConsume.QueueBind(
			c.cfg.QueueName,
			rk,
			c.cfg.Exchange,
			false,
			nil,
		); err != nil {
			return fmt.Errorf("queue bind %s: %w", rk, err)
		}
	}

	if err := c.chConsume.Qos(preFetchCount, 0, false); err != nil {
		return fmt.Errorf("qos: %w", err)
	}

	var err error
	c.chDelivery, err = c.chConsume.Consume(
		c.cfg.QueueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	return nil
}

func (c *Consumer) DeliveryWorker(ctx context.Context) {
	c.log.Info("starting delivery worker")

	defer func() {
		c.log.Info("delivery worker gracefully stopped")
	}()

	for {
		select {
		case msg, ok := <-c.chDelivery:
			if !ok {
				return
			}
			if err := c.delivery(msg); err != nil {
				c.log.Error("mq read message error", zap.Error(err))
				_ = msg.Nack(false, false)
				continue
			}
			_ = msg.Ack(false)
		case <-ctx.Done():
			_ = c.chConsume.Close()
			return
		}
	}
}

// delivery writes one audit line per lifecycle event.
func (c *Consumer) delivery(msg amqp091.Delivery) error {
	action, ok := auditActions[msg.RoutingKey]
	if !ok {
		return fmt.Errorf("unknown routing key %q", msg.RoutingKey)
	}

	var e auditEvent
	if err := json.Unmarshal(msg.Body, &e); err != nil {
		return fmt.Errorf("decode %s event: %w", msg.RoutingKey, err)
	}

	c.log.Info("file audit",
		zap.String("action", action),
		zap.String("event_id", e.EventID),
		zap.String("record_id", e.RecordID),
		zap.ByteString("event_body", msg.Body),
	)

	return nil
}
