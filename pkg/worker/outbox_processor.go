package worker

import (
	"context"
	"time"

	"github.com/teleclinic/consult-api/internal/model"
	"github.com/teleclinic/consult-api/internal/repository"
	"github.com/teleclinic/consult-api/pkg/logger"
	"github.com/teleclinic/consult-api/pkg/messaging"
	"github.com/teleclinic/consult-api/pkg/metrics"
)

// Channel the processor publishes lifecycle events on.
const EventChannel = "consult.events"

type OutboxProcessorConfig struct {
	BatchSize    int
	PollInterval time.Duration
}

// OutboxProcessor drains pending outbox events to the message broker.
type OutboxProcessor struct {
	repo    repository.OutboxRepository
	broker  messaging.Broker
	config  OutboxProcessorConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewOutboxProcessor(
	repo repository.OutboxRepository,
	broker messaging.Broker,
	config OutboxProcessorConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *OutboxProcessor {
	if config.BatchSize <= 0 {
		config.BatchSize = 50
	}
	if config.PollInterval <= 0 {
		config.PollInterval = 5 * time.Second
	}

	return &OutboxProcessor{
		repo:    repo,
		broker:  broker,
		config:  config,
		logger:  logger,
		metrics: metrics,
	}
}

func (p *OutboxProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.logger.Info("starting outbox processor")

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("shutting down outbox processor")
			return
		case <-ticker.C:
			if err := p.processEvents(ctx); err != nil {
				p.logger.Error(err, "failed to process events")
			}
		}
	}
}

func (p *OutboxProcessor) processEvents(ctx context.Context) error {
	events, err := p.repo.GetPendingEvents(ctx, p.config.BatchSize)
	if err != nil {
		return err
	}

	for _, event := range events {
		start := time.Now()
		err := p.broker.Publish(ctx, EventChannel, messaging.Message{
			Type:    event.EventType,
			Payload: event.Payload,
		})
		if p.metrics != nil {
			p.metrics.OutboxProcessingLatency.Observe(time.Since(start).Seconds())
		}

		if err != nil {
			p.logger.Error(err, "failed to publish event", "event_id", event.ID)
			msg := err.Error()
			if updateErr := p.repo.UpdateStatus(ctx, event.ID, model.OutboxStatusFailed, &msg); updateErr != nil {
				p.logger.Error(updateErr, "failed to mark event failed", "event_id", event.ID)
			}
			if p.metrics != nil {
				p.metrics.OutboxEventsFailed.Inc()
			}
			continue
		}

		if err := p.repo.UpdateStatus(ctx, event.ID, model.OutboxStatusProcessed, nil); err != nil {
			p.logger.Error(err, "failed to mark event processed", "event_id", event.ID)
			continue
		}
		if p.metrics != nil {
			p.metrics.OutboxEventsProcessed.Inc()
		}
	}
	return nil
}
