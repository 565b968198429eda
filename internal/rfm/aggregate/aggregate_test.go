package aggregate

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/angelmondragon/clientpulse/internal/rfm/types"
	pkgerrors "github.com/angelmondragon/clientpulse/pkg/errors"
	"github.com/angelmondragon/clientpulse/pkg/logger"
	"github.com/shopspring/decimal"
)

func testAggregator(t *testing.T) *Aggregator {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	agg, err := New(logg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return agg
}

func date(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

func order(id, customer string, when time.Time, total int64, status types.OrderStatus, items ...types.LineItem) types.OrderRecord {
	return types.OrderRecord{
		ID:         id,
		CustomerID: customer,
		OrderDate:  when,
		GrandTotal: decimal.NewFromInt(total),
		Status:     status,
		LineItems:  items,
	}
}

func defaultOptions() Options {
	return Options{
		MinYear:  2024,
		Statuses: types.NewStatusSet([]string{"complete", "processing"}),
	}
}

func TestAggregateFoldsPerCustomer(t *testing.T) {
	brandItem := types.LineItem{SKU: "S1", BrandID: "B1", Qty: 2, RowTotal: decimal.NewFromInt(100)}
	orders := []types.OrderRecord{
		order("O1", "C1", date(2024, 2, 1), 100, types.OrderStatusComplete, brandItem),
		order("O2", "C1", date(2024, 5, 1), 200, types.OrderStatusComplete, brandItem),
		order("O3", "C1", date(2023, 3, 1), 500, types.OrderStatusCanceled),
	}

	aggregates, stats, err := testAggregator(t).Aggregate(context.Background(), orders, defaultOptions())
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	if stats.Dropped != 1 || stats.Eligible != 2 {
		t.Fatalf("stats = %+v, want 1 dropped / 2 eligible", stats)
	}

	agg, ok := aggregates["C1"]
	if !ok {
		t.Fatalf("customer C1 missing from aggregates")
	}
	if agg.OrderCount != 2 {
		t.Fatalf("order count = %d, want 2", agg.OrderCount)
	}
	if !agg.TotalSpend.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("total spend = %s, want 300", agg.TotalSpend)
	}
	if !agg.LastOrderDate.Equal(date(2024, 5, 1)) {
		t.Fatalf("last order date = %s, want 2024-05-01", agg.LastOrderDate)
	}
	if len(agg.LineItemHistory) != 2 {
		t.Fatalf("line item history length = %d, want 2", len(agg.LineItemHistory))
	}
}

func TestAggregateFullyFilteredCustomerAbsent(t *testing.T) {
	orders := []types.OrderRecord{
		order("O1", "C1", date(2024, 2, 1), 100, types.OrderStatusComplete),
		order("O2", "C2", date(2023, 2, 1), 100, types.OrderStatusComplete),
		order("O3", "C2", date(2024, 2, 1), 100, types.OrderStatusCanceled),
	}

	aggregates, _, err := testAggregator(t).Aggregate(context.Background(), orders, defaultOptions())
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if _, ok := aggregates["C2"]; ok {
		t.Fatalf("customer C2 should not appear: all orders filtered")
	}
	if len(aggregates) != 1 {
		t.Fatalf("aggregates = %d customers, want 1", len(aggregates))
	}
}

func TestAggregateSkipsMalformedRecords(t *testing.T) {
	orders := []types.OrderRecord{
		order("O1", "", date(2024, 2, 1), 100, types.OrderStatusComplete),
		order("O2", "C1", date(2024, 2, 1), 0, types.OrderStatusComplete),
		order("O3", "C1", date(2024, 2, 1), -5, types.OrderStatusComplete),
		order("O4", "C1", date(2024, 2, 1), 100, types.OrderStatusComplete),
		order("O5", "C1", date(2024, 3, 1), 100, types.OrderStatusComplete),
		order("O6", "C1", date(2024, 4, 1), 100, types.OrderStatusComplete),
		order("O7", "C1", date(2024, 5, 1), 100, types.OrderStatusComplete),
	}

	aggregates, stats, err := testAggregator(t).Aggregate(context.Background(), orders, defaultOptions())
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if stats.Skipped != 3 {
		t.Fatalf("skipped = %d, want 3", stats.Skipped)
	}
	if aggregates["C1"].OrderCount != 4 {
		t.Fatalf("order count = %d, want 4", aggregates["C1"].OrderCount)
	}
}

func TestAggregateDataQualityAbort(t *testing.T) {
	orders := []types.OrderRecord{
		order("O1", "", date(2024, 2, 1), 100, types.OrderStatusComplete),
		order("O2", "", date(2024, 2, 1), 100, types.OrderStatusComplete),
		order("O3", "C1", date(2024, 2, 1), 100, types.OrderStatusComplete),
	}

	_, _, err := testAggregator(t).Aggregate(context.Background(), orders, defaultOptions())
	if err == nil {
		t.Fatalf("expected data-quality error for 2/3 skip ratio")
	}
	if !pkgerrors.IsCode(err, pkgerrors.CodeDataQuality) {
		t.Fatalf("error code = %v, want data quality", err)
	}
}

func TestAggregateSkipRatioAtThresholdPasses(t *testing.T) {
	// Exactly at the threshold must not abort; only strictly above does.
	orders := []types.OrderRecord{
		order("O1", "", date(2024, 2, 1), 100, types.OrderStatusComplete),
		order("O2", "C1", date(2024, 2, 1), 100, types.OrderStatusComplete),
	}

	aggregates, stats, err := testAggregator(t).Aggregate(context.Background(), orders, defaultOptions())
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if stats.Skipped != 1 || len(aggregates) != 1 {
		t.Fatalf("stats = %+v, aggregates = %d", stats, len(aggregates))
	}
}

func TestAggregateDedupesOrderIDs(t *testing.T) {
	orders := []types.OrderRecord{
		order("O1", "C1", date(2024, 2, 1), 100, types.OrderStatusComplete),
		order("O1", "C1", date(2024, 2, 1), 100, types.OrderStatusComplete),
	}

	aggregates, _, err := testAggregator(t).Aggregate(context.Background(), orders, defaultOptions())
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	agg := aggregates["C1"]
	if agg.OrderCount != 1 {
		t.Fatalf("order count = %d, want 1 after dedup", agg.OrderCount)
	}
	if !agg.TotalSpend.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("total spend = %s, want 100 after dedup", agg.TotalSpend)
	}
}

func TestAggregateEmptyInput(t *testing.T) {
	aggregates, stats, err := testAggregator(t).Aggregate(context.Background(), nil, defaultOptions())
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(aggregates) != 0 || stats.Total != 0 {
		t.Fatalf("expected empty result, got %d aggregates", len(aggregates))
	}
}
