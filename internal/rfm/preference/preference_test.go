package preference

import (
	"testing"

	"github.com/angelmondragon/clientpulse/internal/rfm/types"
	"github.com/shopspring/decimal"
)

func item(sku, category, brand string, qty int64, revenue int64) types.LineItem {
	return types.LineItem{
		SKU:        sku,
		CategoryID: category,
		BrandID:    brand,
		Qty:        qty,
		RowTotal:   decimal.NewFromInt(revenue),
	}
}

func TestResolvePicksByRevenueAndQty(t *testing.T) {
	agg := types.CustomerAggregate{
		CustomerID: "C1",
		LineItemHistory: []types.LineItem{
			item("S1", "CAT1", "B1", 1, 50),
			item("S1", "CAT1", "B1", 1, 50),
			item("S2", "CAT2", "B2", 5, 60),
		},
	}

	pref := Resolve(agg)
	if pref.PreferredCategoryID != "CAT1" {
		t.Fatalf("preferred category = %q, want CAT1 (100 revenue beats 60)", pref.PreferredCategoryID)
	}
	if pref.PreferredBrandID != "B1" {
		t.Fatalf("preferred brand = %q, want B1", pref.PreferredBrandID)
	}
	if pref.FavoriteSKU != "S2" {
		t.Fatalf("favorite sku = %q, want S2 (qty 5 beats 2)", pref.FavoriteSKU)
	}
}

func TestResolveTieBreaksAreTotal(t *testing.T) {
	// Equal revenue and equal qty on every dimension: the smaller id wins.
	agg := types.CustomerAggregate{
		CustomerID: "C1",
		LineItemHistory: []types.LineItem{
			item("S2", "CAT2", "B2", 1, 50),
			item("S1", "CAT1", "B1", 1, 50),
		},
	}

	pref := Resolve(agg)
	if pref.PreferredCategoryID != "CAT1" {
		t.Fatalf("preferred category = %q, want CAT1 on id tie-break", pref.PreferredCategoryID)
	}
	if pref.PreferredBrandID != "B1" {
		t.Fatalf("preferred brand = %q, want B1 on id tie-break", pref.PreferredBrandID)
	}
	if pref.FavoriteSKU != "S1" {
		t.Fatalf("favorite sku = %q, want S1 on id tie-break", pref.FavoriteSKU)
	}
}

func TestResolveIndependentOfLineItemOrder(t *testing.T) {
	items := []types.LineItem{
		item("S1", "CAT1", "B1", 2, 30),
		item("S2", "CAT2", "B2", 2, 30),
		item("S3", "CAT1", "B2", 1, 10),
	}

	forward := Resolve(types.CustomerAggregate{LineItemHistory: items})

	reversed := make([]types.LineItem, len(items))
	for i, it := range items {
		reversed[len(items)-1-i] = it
	}
	backward := Resolve(types.CustomerAggregate{LineItemHistory: reversed})

	if forward != backward {
		t.Fatalf("preference depends on line order: %+v vs %+v", forward, backward)
	}
}

func TestResolveRevenueTieFallsToQty(t *testing.T) {
	agg := types.CustomerAggregate{
		LineItemHistory: []types.LineItem{
			item("S1", "CAT1", "B1", 1, 50),
			item("S2", "CAT2", "B2", 4, 50),
		},
	}

	pref := Resolve(agg)
	if pref.PreferredCategoryID != "CAT2" {
		t.Fatalf("preferred category = %q, want CAT2 (revenue tied, higher qty)", pref.PreferredCategoryID)
	}
}

func TestResolvePartialDimensions(t *testing.T) {
	agg := types.CustomerAggregate{
		LineItemHistory: []types.LineItem{
			item("S1", "", "", 1, 50),
		},
	}

	pref := Resolve(agg)
	if pref.PreferredCategoryID != "" || pref.PreferredBrandID != "" {
		t.Fatalf("expected empty category/brand, got %+v", pref)
	}
	if pref.FavoriteSKU != "S1" {
		t.Fatalf("favorite sku = %q, want S1", pref.FavoriteSKU)
	}
}

func TestResolveNoLineItems(t *testing.T) {
	pref := Resolve(types.CustomerAggregate{CustomerID: "C1"})
	if pref != (types.CustomerPreference{}) {
		t.Fatalf("expected all-empty preference, got %+v", pref)
	}
}
