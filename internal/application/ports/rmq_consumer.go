package ports

import (
	"context"

	"github.com/rabbitmq/amqp091-go"
)

type RMQConsumer interface {
	Connect(conn *amqp091.Connection) error
	Init() error
	DeliveryWorker(ctx context.Context)
}
