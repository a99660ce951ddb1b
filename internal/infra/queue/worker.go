package queue

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/xavierca1/npi-leads/internal/usecase"
)

// DefaultMaxChain bounds how many continuations a single enqueued search may
// produce.
const DefaultMaxChain = 50

type SyncExecutor interface {
	Execute(ctx context.Context, in usecase.SyncInput) (*usecase.SyncOutput, error)
}

// ReportSender is notified once a queued search reaches completion.
type ReportSender interface {
	SendSyncReport(ctx context.Context, out *usecase.SyncOutput) error
}

type consumerChannel interface {
	Qos(prefetchCount, prefetchSize int, global bool) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

type Worker struct {
	Channel   consumerChannel
	Sync      SyncExecutor
	Publisher SyncJobPublisher
	Reports   ReportSender
	MaxChain  int
	Logger    *zap.Logger
}

// NewWorker accepts a nil report sender when mail is not configured.
func NewWorker(ch *amqp.Channel, sync SyncExecutor, publisher SyncJobPublisher, reports ReportSender, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		Channel:   ch,
		Sync:      sync,
		Publisher: publisher,
		Reports:   reports,
		MaxChain:  DefaultMaxChain,
		Logger:    logger.Named("queue.worker"),
	}
}

// Start consumes deliveries one at a time until ctx is cancelled or the
// channel closes.
func (w *Worker) Start(ctx context.Context, queueName string) error {
	if err := w.Channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("failed to set prefetch: %w", err)
	}

	msgs, err := w.Channel.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	w.Logger.Info("worker waiting for sync jobs", zap.String("queue", queueName))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return nil
			}
			w.Handle(ctx, d)
		}
	}
}

// Handle processes a delivery and acks or dead-letters it.
func (w *Worker) Handle(ctx context.Context, d amqp.Delivery) {
	var job SyncJob
	if err := json.Unmarshal(d.Body, &job); err != nil {
		w.Logger.Error("malformed sync job", zap.Error(err))
		_ = d.Nack(false, false)
		return
	}

	if err := w.process(ctx, job); err != nil {
		w.Logger.Error("sync job failed", zap.Int("chain", job.Chain), zap.Error(err))
		_ = d.Nack(false, false)
		return
	}
	_ = d.Ack(false)
}

func (w *Worker) process(ctx context.Context, job SyncJob) error {
	job.Input.Resume = true

	out, err := w.Sync.Execute(ctx, job.Input)
	if err != nil {
		return err
	}

	logger := w.Logger.With(zap.String("search_key", out.SearchKey), zap.Int("chain", job.Chain))
	if !out.Success {
		return fmt.Errorf("sync did not succeed: %s", out.Error)
	}

	if out.IsComplete {
		logger.Info("search complete", zap.Int("total_available", out.TotalAvailable))
		if w.Reports != nil {
			if err := w.Reports.SendSyncReport(ctx, out); err != nil {
				logger.Warn("failed to send sync report", zap.Error(err))
			}
		}
		return nil
	}

	maxChain := w.MaxChain
	if maxChain <= 0 {
		maxChain = DefaultMaxChain
	}
	if job.Chain >= maxChain {
		logger.Warn("continuation limit reached", zap.Int("max_chain", maxChain), zap.Float64("progress", out.Progress))
		return nil
	}

	next := SyncJob{Input: job.Input, Chain: job.Chain + 1}
	if err := w.Publisher.PublishSyncJob(ctx, next); err != nil {
		return fmt.Errorf("failed to queue continuation: %w", err)
	}
	logger.Info("continuation queued", zap.Float64("progress", out.Progress))
	return nil
}
