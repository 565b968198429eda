// Package bigquery streams the customer master table into the warehouse in
// bounded batches with retry on transient insert failures.
package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/clientpulse/internal/rfm/types"
	"github.com/angelmondragon/clientpulse/pkg/logger"
	"google.golang.org/api/googleapi"
)

const (
	defaultBatchSize   = 500
	defaultMaxAttempts = 3
	retryBackoff       = 2 * time.Second
)

type tableInserter interface {
	InsertRows(ctx context.Context, table string, rows []any) error
}

// Writer streams master rows to one BigQuery table.
type Writer struct {
	client      tableInserter
	table       string
	logg        *logger.Logger
	batchSize   int
	maxAttempts int
	backoff     time.Duration
}

// NewWriter builds the sink. batchSize <= 0 falls back to the default.
func NewWriter(client tableInserter, table string, logg *logger.Logger, batchSize int) (*Writer, error) {
	if client == nil {
		return nil, fmt.Errorf("bigquery client required")
	}
	if strings.TrimSpace(table) == "" {
		return nil, fmt.Errorf("bigquery table name required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Writer{
		client:      client,
		table:       strings.TrimSpace(table),
		logg:        logg,
		batchSize:   batchSize,
		maxAttempts: defaultMaxAttempts,
		backoff:     retryBackoff,
	}, nil
}

// masterRow is the warehouse representation of one customer. Every row of a
// run shares the same run_id so downstream queries can pin a snapshot.
type masterRow struct {
	RunID         string    `bigquery:"run_id"`
	RunDate       time.Time `bigquery:"run_date"`
	CustomerID    string    `bigquery:"customer_id"`
	LastOrderDate time.Time `bigquery:"last_order_date"`
	OrderCount    int       `bigquery:"order_count"`
	TotalSpend    float64   `bigquery:"total_spend"`
	AvgTicket     float64   `bigquery:"avg_ticket"`
	RecencyDays   int       `bigquery:"recency_days"`
	RScore        int       `bigquery:"r_score"`
	FScore        int       `bigquery:"f_score"`
	MScore        int       `bigquery:"m_score"`
	Segment       string    `bigquery:"segment"`

	PreferredCategoryID   string `bigquery:"preferred_category_id"`
	PreferredCategoryName string `bigquery:"preferred_category_name"`
	PreferredBrandID      string `bigquery:"preferred_brand_id"`
	PreferredBrandName    string `bigquery:"preferred_brand_name"`
	FavoriteSKU           string `bigquery:"favorite_sku"`
	FavoriteProductName   string `bigquery:"favorite_product_name"`
}

// Write streams all rows, batch by batch, tagging each with the run id.
func (w *Writer) Write(ctx context.Context, runID string, runDate time.Time, rows []types.CustomerMasterRow) error {
	if len(rows) == 0 {
		return nil
	}

	logCtx := w.logg.WithFields(ctx, map[string]any{
		"table": w.table,
		"rows":  len(rows),
	})

	for start := 0; start < len(rows); start += w.batchSize {
		end := start + w.batchSize
		if end > len(rows) {
			end = len(rows)
		}
		batch := make([]any, 0, end-start)
		for _, row := range rows[start:end] {
			batch = append(batch, buildRow(runID, runDate, row))
		}
		if err := w.insertWithRetry(ctx, batch); err != nil {
			return fmt.Errorf("inserting rows %d-%d: %w", start, end-1, err)
		}
	}

	w.logg.Info(logCtx, "customer master streamed to bigquery")
	return nil
}

func (w *Writer) insertWithRetry(ctx context.Context, batch []any) error {
	var lastErr error
	for attempt := 1; attempt <= w.maxAttempts; attempt++ {
		lastErr = w.client.InsertRows(ctx, w.table, batch)
		if lastErr == nil {
			return nil
		}
		if !isTransient(lastErr) || attempt == w.maxAttempts {
			return lastErr
		}
		w.logg.Warn(w.logg.WithFields(ctx, map[string]any{
			"attempt": attempt,
			"error":   lastErr.Error(),
		}), "transient bigquery insert failure")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.backoff * time.Duration(attempt)):
		}
	}
	return lastErr
}

func isTransient(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr != nil {
		switch apiErr.Code {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable:
			return true
		}
	}
	return false
}

func buildRow(runID string, runDate time.Time, row types.CustomerMasterRow) *masterRow {
	spend, _ := row.TotalSpend.Float64()
	ticket, _ := row.AvgTicket.Float64()
	return &masterRow{
		RunID:         runID,
		RunDate:       runDate,
		CustomerID:    row.CustomerID,
		LastOrderDate: row.LastOrderDate,
		OrderCount:    row.OrderCount,
		TotalSpend:    spend,
		AvgTicket:     ticket,
		RecencyDays:   row.RecencyDays,
		RScore:        row.RScore,
		FScore:        row.FScore,
		MScore:        row.MScore,
		Segment:       row.Segment.String(),

		PreferredCategoryID:   row.PreferredCategoryID,
		PreferredCategoryName: row.PreferredCategoryName,
		PreferredBrandID:      row.PreferredBrandID,
		PreferredBrandName:    row.PreferredBrandName,
		FavoriteSKU:           row.FavoriteSKU,
		FavoriteProductName:   row.FavoriteProductName,
	}
}
