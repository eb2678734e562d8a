// Package analytics runs passthrough queries against the BigQuery dataset
// the ML pipeline writes to.
package analytics

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

type Client struct {
	bq      *bigquery.Client
	project string
	dataset string
}

func New(ctx context.Context, projectID, dataset string) (*Client, error) {
	bq, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return &Client{bq: bq, project: projectID, dataset: dataset}, nil
}

func (c *Client) Close() error { return c.bq.Close() }

// QuerySignalsAnalytics aggregates signal scores per ticker over the
// lookback window. Empty ticker means all tickers.
func (c *Client) QuerySignalsAnalytics(ctx context.Context, ticker string, lookbackDays int) ([]map[string]bigquery.Value, error) {
	q := c.bq.Query(fmt.Sprintf(`
		SELECT ticker, AVG(score) AS avg_score, COUNT(*) AS n
		FROM `+"`%s.%s.signals`"+`
		WHERE (@ticker = '' OR ticker = @ticker)
		  AND generated_at >= TIMESTAMP_SUB(CURRENT_TIMESTAMP(), INTERVAL @lookback_days DAY)
		GROUP BY ticker
		ORDER BY n DESC`, c.project, c.dataset))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "ticker", Value: ticker},
		{Name: "lookback_days", Value: int64(lookbackDays)},
	}
	return collect(ctx, q)
}

// QueryPortfolioMetrics returns the most recent derived portfolio metrics
// for dashboards.
func (c *Client) QueryPortfolioMetrics(ctx context.Context) ([]map[string]bigquery.Value, error) {
	q := c.bq.Query(fmt.Sprintf(
		"SELECT * FROM `%s.%s.portfolio_metrics` ORDER BY ts DESC LIMIT 100",
		c.project, c.dataset))
	return collect(ctx, q)
}

func collect(ctx context.Context, q *bigquery.Query) ([]map[string]bigquery.Value, error) {
	it, err := q.Read(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]bigquery.Value, 0)
	for {
		var row map[string]bigquery.Value
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, nil
}
