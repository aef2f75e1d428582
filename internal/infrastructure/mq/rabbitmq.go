package mq

import (
	"context"
	"encoding/json"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"compraser-api/config"
	domain "compraser-api/internal/domain/file_record"
	"compraser-api/internal/interface/api/rest/dto/file_record"
)

// "Rely on metrics, not guesses."
const bufferSize = 128

// Event actions double as routing keys.
const (
	ActionUploaded   = "file.uploaded"
	ActionCompressed = "file.compressed"
	ActionExpired    = "file.expired"
)

var Actions = []string{ActionUploaded, ActionCompressed, ActionExpired}

type (
	InputCh  = chan Event
	RabbitMQ struct {
		cfg      config.MQ
		log      *zap.Logger
		conn     *amqp091.Connection
		pubCh    *amqp091.Channel
		in       InputCh
		mCounter *prometheus.CounterVec
	}
	Event struct {
		Id       uuid.UUID              `json:"event_id"`
		TS       time.Time              `json:"time_stamp"`
		Action   string                 `json:"event_action"`
		RecordID string                 `json:"record_id"`
		Payload  file_record.FileRecord `json:"record_payload"`
	}

	// Nop discards events when no broker is configured.
	Nop struct{}
)

func NewEvent(action string, r domain.FileRecord) Event {
	return Event{
		Id:       uuid.New(),
		TS:       time.Now().UTC(),
		Action:   action,
		RecordID: r.ID.String(),
		Payload:  file_record.ToResponseFileRecord(r),
	}
}

func New(cfg config.MQ, logger *zap.Logger, mCounter *prometheus.CounterVec) *RabbitMQ {
	return &RabbitMQ{
		cfg:      cfg,
		log:      logger,
		in:       make(chan Event, bufferSize),
		mCounter: mCounter,
	}
}

func (r *RabbitMQ) Connect(ctx context.Context, dsn string) error {
	dialer := &net.Dialer{Timeout: 10 * time.Second}

	amqpCfg := amqp091.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Properties: amqp091.Table{
			"connection_name": "compraser",
		},
		Dial: func(network, addr string) (net.Conn, error) {
			return dialer.DialContext(ctx, network, addr)
		},
	}

	var err error
	r.conn, err = amqp091.DialConfig(dsn, amqpCfg)
	if err != nil {
		return err
	}
	r.pubCh, err = r.conn.Channel()
	if err != nil {
		_ = r.conn.Close()
		return err
	}

	r.log.Info("rabbitmq connected successfully")

	return nil
}

func (r *RabbitMQ) Init() error {
	if err := r.pubCh.ExchangeDeclare(
		r.cfg.Exchange,
		r.cfg.ExchangeType,
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		_ = r.pubCh.Close()
		return err
	}
	q, err := r.pubCh.QueueDeclare(
		r.cfg.QueueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return err
	}

	for _, rk := range Actions {
		if err = r.pubCh.QueueBind(q.Name, rk, r.cfg.Exchange, false, nil); err != nil {
			return err
		}
	}

	return nil
}

// Publish never blocks the caller: with a full buffer the event is dropped and counted.
func (r *RabbitMQ) Publish(e Event) bool {
	select {
	case r.in <- e:
		return true
	default:
		if r.mCounter != nil {
			r.mCounter.WithLabelValues("events_dropped_total").Inc()
		}
		r.log.Warn("mq buffer full, event dropped",
			zap.String("action", e.Action),
			zap.String("record_id", e.RecordID),
		)
		return false
	}
}

func (r *RabbitMQ) PublisherWorker(ctx context.Context) {
	r.log.Info("starting publisher worker")

	defer func() {
		r.log.Info("publisher worker gracefully stopped")
	}()

	for {
		select {
		case e := <-r.in:
			if err := r.publish(ctx, e); err != nil {
				// alert
				r.log.Error("mq publish error", zap.Error(err))
			}
		case <-ctx.Done():
			if r.pubCh != nil {
				_ = r.pubCh.Close()
			}
			return
		}
	}
}

func (r *RabbitMQ) publish(ctx context.Context, e Event) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}

	pub := amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    e.Id.String(),
		Timestamp:    e.TS,
		Type:         e.Action,
		Body:         b,
	}

	return r.pubCh.PublishWithContext(
		ctx,
		r.cfg.Exchange,
		e.Action,
		false,
		false,
		pub,
	)
}

func (r *RabbitMQ) GetConn() *amqp091.Connection { return r.conn }

func (Nop) Publish(Event) bool { return false }
