package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/adityakhanna/vastra-backend/pkg/logger"
)

type rowInserter interface {
	InsertRows(ctx context.Context, table string, rows []any) error
}

// Writer lands decoded order events in the BigQuery order_events table.
type Writer struct {
	bq    rowInserter
	table string
	logg  *logger.Logger
	now   func() time.Time
}

func NewWriter(bq rowInserter, table string, logg *logger.Logger) (*Writer, error) {
	if bq == nil {
		return nil, fmt.Errorf("bigquery inserter required")
	}
	if table == "" {
		return nil, fmt.Errorf("table name required")
	}
	return &Writer{bq: bq, table: table, logg: logg, now: time.Now}, nil
}

// Record decodes the envelope and appends it to the events table.
func (w *Writer) Record(ctx context.Context, eventType string, payload []byte) error {
	row, err := RowFromEnvelope(eventType, payload, w.now())
	if err != nil {
		return err
	}
	if err := w.bq.InsertRows(ctx, w.table, []any{row}); err != nil {
		return fmt.Errorf("inserting order event row: %w", err)
	}

	if w.logg != nil {
		logCtx := w.logg.WithFields(ctx, map[string]any{
			"event_id":   row.EventID,
			"event_type": row.EventType,
			"order_id":   row.OrderID,
		})
		w.logg.Info(logCtx, "order event recorded")
	}
	return nil
}
