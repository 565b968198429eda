package aggregate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/clientpulse/internal/rfm/types"
	pkgerrors "github.com/angelmondragon/clientpulse/pkg/errors"
	"github.com/angelmondragon/clientpulse/pkg/logger"
)

// DefaultMaxSkipRatio aborts the run when more than half of the eligible
// records are malformed; segmenting a majority-corrupt dataset would be
// misleading.
const DefaultMaxSkipRatio = 0.5

// Options controls which orders qualify for aggregation.
type Options struct {
	MinYear      int
	Statuses     types.StatusSet
	MaxSkipRatio float64
}

// Stats summarizes what the aggregation pass saw.
type Stats struct {
	Total    int // records received
	Dropped  int // excluded by the year/status filter
	Skipped  int // malformed records skipped and logged
	Eligible int // records that passed the filter
}

// Aggregator folds raw order records into one aggregate per customer.
type Aggregator struct {
	logg *logger.Logger
}

func New(logg *logger.Logger) (*Aggregator, error) {
	if logg == nil {
		return nil, fmt.Errorf("aggregate logger required")
	}
	return &Aggregator{logg: logg}, nil
}

// skipDetail is attached to per-record validation errors and to the
// data-quality abort so callers can log without string matching.
type skipDetail struct {
	OrderID string `json:"order_id"`
	Field   string `json:"field"`
	Reason  string `json:"reason"`
}

type qualityDetail struct {
	Threshold float64 `json:"threshold"`
	Observed  float64 `json:"observed"`
	Skipped   int     `json:"skipped"`
	Eligible  int     `json:"eligible"`
}

// Aggregate filters orders to order_date.year >= MinYear and status in the
// qualifying set, then folds the remainder into one CustomerAggregate per
// customer. Malformed records (missing customer id, non-positive grand total)
// are skipped and logged; the run aborts with a data-quality error when the
// skip ratio among eligible records exceeds MaxSkipRatio.
func (a *Aggregator) Aggregate(ctx context.Context, orders []types.OrderRecord, opts Options) (map[string]types.CustomerAggregate, Stats, error) {
	maxSkip := opts.MaxSkipRatio
	if maxSkip <= 0 {
		maxSkip = DefaultMaxSkipRatio
	}

	stats := Stats{Total: len(orders)}
	aggregates := make(map[string]types.CustomerAggregate)
	seenOrderIDs := make(map[string]struct{}, len(orders))

	for _, order := range orders {
		if order.OrderDate.Year() < opts.MinYear || !opts.Statuses.Contains(order.Status) {
			stats.Dropped++
			continue
		}
		stats.Eligible++

		if detail, ok := validate(order); !ok {
			stats.Skipped++
			skipCtx := a.logg.WithFields(ctx, map[string]any{
				"order_id": detail.OrderID,
				"field":    detail.Field,
				"reason":   detail.Reason,
			})
			a.logg.Warn(skipCtx, "skipping malformed order record")
			continue
		}

		// The source is assumed deduplicated, but a repeated order id must
		// not inflate order_count or spend.
		if _, dup := seenOrderIDs[order.ID]; dup {
			a.logg.Debug(a.logg.WithField(ctx, "order_id", order.ID), "duplicate order id ignored")
			continue
		}
		seenOrderIDs[order.ID] = struct{}{}

		agg, exists := aggregates[order.CustomerID]
		if !exists {
			agg = types.CustomerAggregate{CustomerID: order.CustomerID}
		}
		if order.OrderDate.After(agg.LastOrderDate) {
			agg.LastOrderDate = order.OrderDate
		}
		agg.OrderCount++
		agg.TotalSpend = agg.TotalSpend.Add(order.GrandTotal)
		agg.LineItemHistory = append(agg.LineItemHistory, order.LineItems...)
		aggregates[order.CustomerID] = agg
	}

	if stats.Eligible > 0 {
		observed := float64(stats.Skipped) / float64(stats.Eligible)
		if observed > maxSkip {
			err := pkgerrors.New(pkgerrors.CodeDataQuality,
				fmt.Sprintf("skip ratio %.2f exceeds threshold %.2f", observed, maxSkip)).
				WithDetails(qualityDetail{
					Threshold: maxSkip,
					Observed:  observed,
					Skipped:   stats.Skipped,
					Eligible:  stats.Eligible,
				})
			return nil, stats, err
		}
	}

	return aggregates, stats, nil
}

func validate(order types.OrderRecord) (skipDetail, bool) {
	if order.CustomerID == "" {
		return skipDetail{OrderID: order.ID, Field: "customer_id", Reason: "missing"}, false
	}
	if !order.GrandTotal.IsPositive() {
		return skipDetail{OrderID: order.ID, Field: "grand_total", Reason: "non-positive"}, false
	}
	return skipDetail{}, true
}
