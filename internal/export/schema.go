// Package export serializes the customer master table to files. The row
// schema is fixed here so every sink (CSV, Parquet, Sheets) emits the same
// columns in the same order.
package export

import (
	"strconv"

	"github.com/angelmondragon/clientpulse/internal/rfm/types"
)

const dateLayout = "2006-01-02"

// Header returns the column names of the customer master schema.
func Header() []string {
	return []string{
		"customer_id",
		"last_order_date",
		"order_count",
		"total_spend",
		"avg_ticket",
		"recency_days",
		"r_score",
		"f_score",
		"m_score",
		"segment",
		"preferred_category_id",
		"preferred_category_name",
		"preferred_brand_id",
		"preferred_brand_name",
		"favorite_sku",
		"favorite_product_name",
	}
}

// Record flattens one master row into the schema's column order. Money is
// rendered with two decimals; dates as YYYY-MM-DD.
func Record(row types.CustomerMasterRow) []string {
	return []string{
		row.CustomerID,
		row.LastOrderDate.Format(dateLayout),
		strconv.Itoa(row.OrderCount),
		row.TotalSpend.StringFixed(2),
		row.AvgTicket.StringFixed(2),
		strconv.Itoa(row.RecencyDays),
		strconv.Itoa(row.RScore),
		strconv.Itoa(row.FScore),
		strconv.Itoa(row.MScore),
		row.Segment.String(),
		row.PreferredCategoryID,
		row.PreferredCategoryName,
		row.PreferredBrandID,
		row.PreferredBrandName,
		row.FavoriteSKU,
		row.FavoriteProductName,
	}
}
