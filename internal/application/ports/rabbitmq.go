package ports

import (
	"context"

	"github.com/rabbitmq/amqp091-go"

	"compraser-api/internal/infrastructure/mq"
)

type (
	// EventPublisher reports false when the event was not queued.
	EventPublisher interface {
		Publish(e mq.Event) bool
	}

	RabbitMQ interface {
		EventPublisher
		Connect(ctx context.Context, dsn string) error
		Init() error
		PublisherWorker(ctx context.Context)
		GetConn() *amqp091.Connection
	}
)
