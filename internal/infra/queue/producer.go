package queue

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/xavierca1/npi-leads/internal/usecase"
)

// SyncJob is one queued sync invocation. Chain counts how many times the job
// has been re-published to continue an unfinished search.
type SyncJob struct {
	Input usecase.SyncInput `json:"input"`
	Chain int               `json:"chain"`
}

type SyncJobPublisher interface {
	PublishSyncJob(ctx context.Context, job SyncJob) error
}

// channelPublisher is the subset of *amqp.Channel the producer needs.
type channelPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type RabbitMQProducer struct {
	Ch channelPublisher
}

func NewProducer(ch *amqp.Channel) *RabbitMQProducer {
	return &RabbitMQProducer{Ch: ch}
}

func (p *RabbitMQProducer) PublishSyncJob(ctx context.Context, job SyncJob) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode sync job: %w", err)
	}

	err = p.Ch.PublishWithContext(ctx,
		ExchangeName,
		RoutingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish sync job: %w", err)
	}
	return nil
}
