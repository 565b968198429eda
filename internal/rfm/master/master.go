// Package master joins the per-customer maps into the final sorted
// customer master table.
package master

import (
	"fmt"
	"sort"

	"github.com/angelmondragon/clientpulse/internal/rfm/types"
	pkgerrors "github.com/angelmondragon/clientpulse/pkg/errors"
)

// Build joins aggregates, scores, and preferences on customer id, resolves
// display names through the lookup (falling back to the raw id), and returns
// the rows ordered by sortKey with customer id as the ascending tie-break.
// Scores and preferences are produced from the same aggregate map, so a
// missing entry is a programming error, not a data condition.
func Build(
	aggregates map[string]types.CustomerAggregate,
	scores map[string]types.RFMScore,
	preferences map[string]types.CustomerPreference,
	lookup types.NameLookup,
	sortKey types.SortKey,
) ([]types.CustomerMasterRow, error) {
	rows := make([]types.CustomerMasterRow, 0, len(aggregates))

	for id, agg := range aggregates {
		sc, ok := scores[id]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeInternal,
				fmt.Sprintf("customer %s missing from scores", id))
		}
		pref, ok := preferences[id]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeInternal,
				fmt.Sprintf("customer %s missing from preferences", id))
		}

		rows = append(rows, types.CustomerMasterRow{
			CustomerID:    agg.CustomerID,
			LastOrderDate: agg.LastOrderDate,
			OrderCount:    agg.OrderCount,
			TotalSpend:    agg.TotalSpend,
			AvgTicket:     sc.AvgTicket,
			RecencyDays:   sc.RecencyDays,
			RScore:        sc.RScore,
			FScore:        sc.FScore,
			MScore:        sc.MScore,
			Segment:       sc.Segment,

			PreferredCategoryID:   pref.PreferredCategoryID,
			PreferredCategoryName: resolveName(lookup, types.EntityCategory, pref.PreferredCategoryID),
			PreferredBrandID:      pref.PreferredBrandID,
			PreferredBrandName:    resolveName(lookup, types.EntityBrand, pref.PreferredBrandID),
			FavoriteSKU:           pref.FavoriteSKU,
			FavoriteProductName:   resolveName(lookup, types.EntityProduct, pref.FavoriteSKU),
		})
	}

	less, err := comparator(sortKey)
	if err != nil {
		return nil, err
	}
	sort.Slice(rows, func(i, j int) bool {
		return less(rows[i], rows[j])
	})

	return rows, nil
}

func resolveName(lookup types.NameLookup, kind types.EntityKind, id string) string {
	if id == "" {
		return ""
	}
	if lookup != nil {
		if name, ok := lookup.Name(kind, id); ok {
			return name
		}
	}
	return id
}

// comparator returns a strict ordering for the sort key: descending for
// ltv/frequency/ticket, ascending for recency, with customer id ascending
// breaking every tie so identical inputs always produce identical output.
func comparator(key types.SortKey) (func(a, b types.CustomerMasterRow) bool, error) {
	switch key {
	case types.SortByLTV:
		return func(a, b types.CustomerMasterRow) bool {
			if cmp := a.TotalSpend.Cmp(b.TotalSpend); cmp != 0 {
				return cmp > 0
			}
			return a.CustomerID < b.CustomerID
		}, nil
	case types.SortByFrequency:
		return func(a, b types.CustomerMasterRow) bool {
			if a.OrderCount != b.OrderCount {
				return a.OrderCount > b.OrderCount
			}
			return a.CustomerID < b.CustomerID
		}, nil
	case types.SortByRecency:
		return func(a, b types.CustomerMasterRow) bool {
			if a.RecencyDays != b.RecencyDays {
				return a.RecencyDays < b.RecencyDays
			}
			return a.CustomerID < b.CustomerID
		}, nil
	case types.SortByTicket:
		return func(a, b types.CustomerMasterRow) bool {
			if cmp := a.AvgTicket.Cmp(b.AvgTicket); cmp != 0 {
				return cmp > 0
			}
			return a.CustomerID < b.CustomerID
		}, nil
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("unsupported sort key %q", key))
	}
}
