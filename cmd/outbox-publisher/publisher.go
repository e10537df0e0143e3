package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"go.uber.org/multierr"

	"github.com/adityakhanna/vastra-backend/pkg/config"
	"github.com/adityakhanna/vastra-backend/pkg/db/models"
	"github.com/adityakhanna/vastra-backend/pkg/logger"
	"github.com/adityakhanna/vastra-backend/pkg/metrics"
)

const (
	workerName = "outbox_publisher"

	defaultBatchSize      = 50
	defaultPollMs         = 500
	defaultMaxAttempts    = 10
	defaultPublishTimeout = 15 * time.Second
	publishBaseBackoff    = 200 * time.Millisecond
	publishMaxRetries     = 2
	maxLoopBackoff        = 10 * time.Second
	jitterWindow          = 250 * time.Millisecond
)

var jitterSource = rand.New(rand.NewSource(time.Now().UnixNano()))

type outboxStore interface {
	FetchUnpublished(limit int) ([]models.OutboxEvent, error)
	MarkPublished(id uuid.UUID) error
	MarkFailed(id uuid.UUID, cause error) error
	MarkTerminal(id uuid.UUID, cause error) error
}

type publisher interface {
	Publish(ctx context.Context, msg *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(ctx context.Context) (string, error)
}

type PublisherParams struct {
	Config  *config.Config
	Logger  *logger.Logger
	Store   outboxStore
	Pub     publisher
	Metrics *metrics.WorkerMetrics
}

// Publisher drains the outbox table into the order events topic. Events that
// exhaust their attempts are parked as terminal so the loop never wedges on a
// poison row.
type Publisher struct {
	logg           *logger.Logger
	store          outboxStore
	pub            publisher
	metrics        *metrics.WorkerMetrics
	batchSize      int
	maxAttempts    int
	pollInterval   time.Duration
	publishTimeout time.Duration
}

func NewPublisher(params PublisherParams) (*Publisher, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Store == nil {
		return nil, errors.New("outbox store is required")
	}
	if params.Pub == nil {
		return nil, errors.New("publisher is required")
	}

	batch := params.Config.Outbox.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	pollMs := params.Config.Outbox.PollIntervalMS
	if pollMs <= 0 {
		pollMs = defaultPollMs
	}
	maxAttempts := params.Config.Outbox.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	return &Publisher{
		logg:           params.Logger,
		store:          params.Store,
		pub:            params.Pub,
		metrics:        params.Metrics,
		batchSize:      batch,
		maxAttempts:    maxAttempts,
		pollInterval:   time.Duration(pollMs) * time.Millisecond,
		publishTimeout: defaultPublishTimeout,
	}, nil
}

// Run polls until the context is cancelled. Batch errors back off
// exponentially; an empty fetch sleeps one poll interval.
func (p *Publisher) Run(ctx context.Context) error {
	interval := p.pollInterval
	backoff := interval

	for {
		select {
		case <-ctx.Done():
			if p.logg != nil {
				p.logg.Info(ctx, "outbox publisher context canceled")
			}
			return ctx.Err()
		default:
		}

		processed, err := p.processBatch(ctx)
		if err != nil {
			if p.logg != nil {
				p.logg.Error(ctx, "outbox publisher batch error", err)
			}
			backoff = nextBackoff(backoff, interval, maxLoopBackoff)
			if err := sleep(ctx, withJitter(backoff)); err != nil {
				return err
			}
			continue
		}

		backoff = interval

		if processed {
			continue
		}

		if err := sleep(ctx, withJitter(interval)); err != nil {
			return err
		}
	}
}

func (p *Publisher) processBatch(ctx context.Context) (bool, error) {
	started := time.Now()

	events, err := p.store.FetchUnpublished(p.batchSize)
	if err != nil {
		return false, fmt.Errorf("fetch unpublished events: %w", err)
	}
	if len(events) == 0 {
		return false, nil
	}

	var batchErr error
	for i := range events {
		if err := p.handleEvent(ctx, &events[i]); err != nil {
			batchErr = multierr.Append(batchErr, err)
		}
	}

	p.metrics.ObserveDuration(workerName, time.Since(started))
	return true, batchErr
}

func (p *Publisher) handleEvent(ctx context.Context, event *models.OutboxEvent) error {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     string(event.EventType),
		"aggregate_type": string(event.AggregateType),
		"aggregate_id":   event.AggregateID.String(),
		"attempts":       event.Attempts,
	}

	publishErr := p.publishWithRetry(ctx, event)
	if publishErr == nil {
		p.metrics.IncSuccess(workerName)
		if markErr := p.store.MarkPublished(event.ID); markErr != nil {
			return fmt.Errorf("mark published %s: %w", event.ID, markErr)
		}
		if p.logg != nil {
			p.logg.Info(p.logg.WithFields(ctx, fields), "outbox event published")
		}
		return nil
	}

	p.metrics.IncFailure(workerName)

	nextAttempt := event.Attempts + 1
	fields["attempts"] = nextAttempt

	if nextAttempt >= p.maxAttempts {
		fields["terminal_reason"] = "max_attempts"
		if p.logg != nil {
			logCtx := p.logg.WithFields(ctx, fields)
			p.logg.Warn(p.logg.WithField(logCtx, "error", publishErr.Error()), "outbox event parked as terminal")
		}
		terminalErr := fmt.Errorf("max publish attempts reached: %w", publishErr)
		if markErr := p.store.MarkTerminal(event.ID, terminalErr); markErr != nil {
			return fmt.Errorf("mark terminal %s: %w", event.ID, markErr)
		}
		return nil
	}

	if p.logg != nil {
		logCtx := p.logg.WithFields(ctx, fields)
		p.logg.Warn(p.logg.WithField(logCtx, "error", publishErr.Error()), "outbox publish failed")
	}
	if markErr := p.store.MarkFailed(event.ID, publishErr); markErr != nil {
		return fmt.Errorf("mark failure %s: %w", event.ID, markErr)
	}
	return nil
}

func (p *Publisher) publishWithRetry(ctx context.Context, event *models.OutboxEvent) error {
	msg := &gcppubsub.Message{
		Data: event.Payload,
		Attributes: map[string]string{
			"event_type":     string(event.EventType),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   event.AggregateID.String(),
			"created_at":     event.CreatedAt.Format(time.RFC3339Nano),
		},
	}

	backoff := retry.WithMaxRetries(publishMaxRetries, retry.NewExponential(publishBaseBackoff))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		publishCtx, cancel := context.WithTimeout(ctx, p.publishTimeout)
		defer cancel()

		result := p.pub.Publish(publishCtx, msg)
		if result == nil {
			return errors.New("publisher returned nil result")
		}
		if _, err := result.Get(publishCtx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, base, max time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	next := current * 2
	if next > max {
		return max
	}
	return next
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	jitter := time.Duration(jitterSource.Int63n(int64(jitterWindow)))
	return d + jitter
}

func newGCPPublisher(p *gcppubsub.Publisher) publisher {
	if p == nil {
		return nil
	}
	return &gcpPublisher{Publisher: p}
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	if p == nil || p.Publisher == nil {
		return nil
	}
	return p.Publisher.Publish(ctx, msg)
}
