// Package preference derives preferred category, preferred brand, and
// favorite product from a customer's line-item history.
package preference

import (
	"github.com/angelmondragon/clientpulse/internal/rfm/types"
	"github.com/shopspring/decimal"
)

type tally struct {
	revenue decimal.Decimal
	qty     int64
}

// Resolve picks the preferred category and brand by summed line revenue and
// the favorite product by cumulative quantity. All tie-breaks end at the
// lexicographically smallest id, so the result is independent of line-item
// order. Dimensions with no qualifying line items stay empty; the row is
// still emitted.
func Resolve(agg types.CustomerAggregate) types.CustomerPreference {
	categories := make(map[string]tally)
	brands := make(map[string]tally)
	products := make(map[string]tally)

	for _, item := range agg.LineItemHistory {
		if item.CategoryID != "" {
			categories[item.CategoryID] = accumulate(categories[item.CategoryID], item)
		}
		if item.BrandID != "" {
			brands[item.BrandID] = accumulate(brands[item.BrandID], item)
		}
		if item.SKU != "" {
			products[item.SKU] = accumulate(products[item.SKU], item)
		}
	}

	return types.CustomerPreference{
		PreferredCategoryID: pickByRevenue(categories),
		PreferredBrandID:    pickByRevenue(brands),
		FavoriteSKU:         pickByQty(products),
	}
}

func accumulate(t tally, item types.LineItem) tally {
	t.revenue = t.revenue.Add(item.RowTotal)
	t.qty += item.Qty
	return t
}

// pickByRevenue prefers the highest summed revenue, then the greater total
// quantity, then the smallest id.
func pickByRevenue(tallies map[string]tally) string {
	var bestID string
	var best tally
	for id, t := range tallies {
		if bestID == "" || betterByRevenue(t, id, best, bestID) {
			bestID, best = id, t
		}
	}
	return bestID
}

func betterByRevenue(a tally, aID string, b tally, bID string) bool {
	if cmp := a.revenue.Cmp(b.revenue); cmp != 0 {
		return cmp > 0
	}
	if a.qty != b.qty {
		return a.qty > b.qty
	}
	return aID < bID
}

// pickByQty prefers the highest cumulative quantity, then the greater summed
// revenue, then the smallest SKU.
func pickByQty(tallies map[string]tally) string {
	var bestID string
	var best tally
	for id, t := range tallies {
		if bestID == "" || betterByQty(t, id, best, bestID) {
			bestID, best = id, t
		}
	}
	return bestID
}

func betterByQty(a tally, aID string, b tally, bID string) bool {
	if a.qty != b.qty {
		return a.qty > b.qty
	}
	if cmp := a.revenue.Cmp(b.revenue); cmp != 0 {
		return cmp > 0
	}
	return aID < bID
}
