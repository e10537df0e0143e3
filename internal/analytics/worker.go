package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/adityakhanna/vastra-backend/pkg/logger"
	"github.com/adityakhanna/vastra-backend/pkg/metrics"
)

const (
	workerName = "analytics_consumer"

	// attrEventType is set by the outbox publisher on every message.
	attrEventType = "event_type"
)

type subscriber interface {
	Receive(ctx context.Context, f func(ctx context.Context, msg *pubsub.Message)) error
}

// Worker consumes published order events and forwards them to BigQuery.
// Decode failures ack the message; the payload will never get better. Insert
// failures nack so Pub/Sub redelivers.
type Worker struct {
	sub     subscriber
	writer  *Writer
	metrics *metrics.WorkerMetrics
	logg    *logger.Logger
}

func NewWorker(sub subscriber, writer *Writer, workerMetrics *metrics.WorkerMetrics, logg *logger.Logger) (*Worker, error) {
	if sub == nil {
		return nil, fmt.Errorf("subscriber required")
	}
	if writer == nil {
		return nil, fmt.Errorf("writer required")
	}
	return &Worker{sub: sub, writer: writer, metrics: workerMetrics, logg: logg}, nil
}

// Run blocks on the subscription until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	if w.logg != nil {
		w.logg.Info(ctx, "analytics worker started")
	}
	return w.sub.Receive(ctx, w.handle)
}

func (w *Worker) handle(ctx context.Context, msg *pubsub.Message) {
	started := time.Now()
	eventType := msg.Attributes[attrEventType]

	err := w.writer.Record(ctx, eventType, msg.Data)
	w.metrics.ObserveDuration(workerName, time.Since(started))

	if err == nil {
		w.metrics.IncSuccess(workerName)
		msg.Ack()
		return
	}

	w.metrics.IncFailure(workerName)
	var malformed *decodeError
	if errors.As(err, &malformed) {
		if w.logg != nil {
			w.logg.Error(ctx, "dropping undecodable order event", err)
		}
		msg.Ack()
		return
	}

	if w.logg != nil {
		w.logg.Error(ctx, "recording order event failed", err)
	}
	msg.Nack()
}
