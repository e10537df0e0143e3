package analytics

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

type queryRunner interface {
	Query(ctx context.Context, sql string, params []bigquery.QueryParameter) (*bigquery.RowIterator, error)
}

// Reports answers the merchandising questions the admin dashboard asks of the
// order events table.
type Reports struct {
	bq      queryRunner
	dataset string
	table   string
}

func NewReports(bq queryRunner, dataset, table string) (*Reports, error) {
	if bq == nil {
		return nil, fmt.Errorf("query runner required")
	}
	if dataset == "" || table == "" {
		return nil, fmt.Errorf("dataset and table required")
	}
	return &Reports{bq: bq, dataset: dataset, table: table}, nil
}

// RevenueByDayRow is one day of paid order revenue.
type RevenueByDayRow struct {
	Day     time.Time `bigquery:"day" json:"day"`
	Revenue float64   `bigquery:"revenue" json:"revenue"`
	Orders  int64     `bigquery:"orders" json:"orders"`
}

// ChannelSplitRow is paid revenue for one sales channel.
type ChannelSplitRow struct {
	Channel string  `bigquery:"channel" json:"channel"`
	Revenue float64 `bigquery:"revenue" json:"revenue"`
	Orders  int64   `bigquery:"orders" json:"orders"`
}

// TopProductRow is one product ranked by units sold in paid orders.
type TopProductRow struct {
	ProductID string  `bigquery:"product_id" json:"product_id"`
	Title     string  `bigquery:"title" json:"title"`
	Units     int64   `bigquery:"units" json:"units"`
	Revenue   float64 `bigquery:"revenue" json:"revenue"`
}

// ComboAttachmentRow summarizes how often carts convert with a combo applied.
type ComboAttachmentRow struct {
	Orders        int64   `bigquery:"orders" json:"orders"`
	ComboOrders   int64   `bigquery:"combo_orders" json:"combo_orders"`
	TotalSavings  float64 `bigquery:"total_savings" json:"total_savings"`
	AttachmentPct float64 `bigquery:"attachment_pct" json:"attachment_pct"`
}

// RevenueByDay sums paid order totals per day since the given time.
func (r *Reports) RevenueByDay(ctx context.Context, since time.Time) ([]RevenueByDayRow, error) {
	sql := fmt.Sprintf(`
		SELECT
			TIMESTAMP_TRUNC(occurred_at, DAY) AS day,
			SUM(total) AS revenue,
			COUNT(*) AS orders
		FROM %s
		WHERE event_type = 'order_paid' AND occurred_at >= @since
		GROUP BY day
		ORDER BY day`, r.tableRef())

	it, err := r.bq.Query(ctx, sql, []bigquery.QueryParameter{{Name: "since", Value: since}})
	if err != nil {
		return nil, fmt.Errorf("revenue by day query: %w", err)
	}
	return collect[RevenueByDayRow](it)
}

// ChannelSplit breaks paid revenue down by sales channel.
func (r *Reports) ChannelSplit(ctx context.Context, since time.Time) ([]ChannelSplitRow, error) {
	sql := fmt.Sprintf(`
		SELECT
			channel,
			SUM(total) AS revenue,
			COUNT(*) AS orders
		FROM %s
		WHERE event_type = 'order_paid' AND occurred_at >= @since
		GROUP BY channel
		ORDER BY revenue DESC`, r.tableRef())

	it, err := r.bq.Query(ctx, sql, []bigquery.QueryParameter{{Name: "since", Value: since}})
	if err != nil {
		return nil, fmt.Errorf("channel split query: %w", err)
	}
	return collect[ChannelSplitRow](it)
}

// TopProducts ranks products by units sold in paid orders. Line items live in
// the stored payload JSON, so the query unnests them there.
func (r *Reports) TopProducts(ctx context.Context, since time.Time, limit int) ([]TopProductRow, error) {
	if limit <= 0 {
		limit = 10
	}
	sql := fmt.Sprintf(`
		SELECT
			JSON_VALUE(item, '$.product_id') AS product_id,
			ANY_VALUE(JSON_VALUE(item, '$.title')) AS title,
			SUM(CAST(JSON_VALUE(item, '$.quantity') AS INT64)) AS units,
			SUM(CAST(JSON_VALUE(item, '$.line_total') AS FLOAT64)) AS revenue
		FROM %s, UNNEST(JSON_QUERY_ARRAY(payload_json, '$.items')) AS item
		WHERE event_type = 'order_paid' AND occurred_at >= @since
		GROUP BY product_id
		ORDER BY units DESC
		LIMIT @limit`, r.tableRef())

	it, err := r.bq.Query(ctx, sql, []bigquery.QueryParameter{
		{Name: "since", Value: since},
		{Name: "limit", Value: limit},
	})
	if err != nil {
		return nil, fmt.Errorf("top products query: %w", err)
	}
	return collect[TopProductRow](it)
}

// ComboAttachment reports the share of created orders that carried a combo.
func (r *Reports) ComboAttachment(ctx context.Context, since time.Time) (*ComboAttachmentRow, error) {
	sql := fmt.Sprintf(`
		SELECT
			COUNT(*) AS orders,
			COUNTIF(combo_savings > 0) AS combo_orders,
			SUM(combo_savings) AS total_savings,
			SAFE_DIVIDE(COUNTIF(combo_savings > 0), COUNT(*)) * 100 AS attachment_pct
		FROM %s
		WHERE event_type = 'order_created' AND occurred_at >= @since`, r.tableRef())

	it, err := r.bq.Query(ctx, sql, []bigquery.QueryParameter{{Name: "since", Value: since}})
	if err != nil {
		return nil, fmt.Errorf("combo attachment query: %w", err)
	}
	rows, err := collect[ComboAttachmentRow](it)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return &ComboAttachmentRow{}, nil
	}
	return &rows[0], nil
}

func (r *Reports) tableRef() string {
	return fmt.Sprintf("`%s.%s`", r.dataset, r.table)
}

func collect[T any](it *bigquery.RowIterator) ([]T, error) {
	var rows []T
	for {
		var row T
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading query results: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
