package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/angelmondragon/clientpulse/internal/rfm/types"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
)

// masterParquetRow mirrors the export schema with parquet-friendly types.
// Money travels as DOUBLE; dates as UTF8 strings in YYYY-MM-DD.
type masterParquetRow struct {
	CustomerID    string  `parquet:"name=customer_id, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	LastOrderDate string  `parquet:"name=last_order_date, type=BYTE_ARRAY, convertedtype=UTF8"`
	OrderCount    int32   `parquet:"name=order_count, type=INT32"`
	TotalSpend    float64 `parquet:"name=total_spend, type=DOUBLE"`
	AvgTicket     float64 `parquet:"name=avg_ticket, type=DOUBLE"`
	RecencyDays   int32   `parquet:"name=recency_days, type=INT32"`
	RScore        int32   `parquet:"name=r_score, type=INT32"`
	FScore        int32   `parquet:"name=f_score, type=INT32"`
	MScore        int32   `parquet:"name=m_score, type=INT32"`
	Segment       string  `parquet:"name=segment, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`

	PreferredCategoryID   string `parquet:"name=preferred_category_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	PreferredCategoryName string `parquet:"name=preferred_category_name, type=BYTE_ARRAY, convertedtype=UTF8"`
	PreferredBrandID      string `parquet:"name=preferred_brand_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	PreferredBrandName    string `parquet:"name=preferred_brand_name, type=BYTE_ARRAY, convertedtype=UTF8"`
	FavoriteSKU           string `parquet:"name=favorite_sku, type=BYTE_ARRAY, convertedtype=UTF8"`
	FavoriteProductName   string `parquet:"name=favorite_product_name, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// WriteParquet writes the master table to path with snappy compression.
func WriteParquet(path string, rows []types.CustomerMasterRow) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating export directory: %w", err)
	}

	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("creating parquet file: %w", err)
	}

	pw, err := writer.NewParquetWriter(fw, new(masterParquetRow), 2)
	if err != nil {
		_ = fw.Close()
		return fmt.Errorf("creating parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, row := range rows {
		spend, _ := row.TotalSpend.Float64()
		ticket, _ := row.AvgTicket.Float64()
		record := masterParquetRow{
			CustomerID:    row.CustomerID,
			LastOrderDate: row.LastOrderDate.Format(dateLayout),
			OrderCount:    int32(row.OrderCount),
			TotalSpend:    spend,
			AvgTicket:     ticket,
			RecencyDays:   int32(row.RecencyDays),
			RScore:        int32(row.RScore),
			FScore:        int32(row.FScore),
			MScore:        int32(row.MScore),
			Segment:       row.Segment.String(),

			PreferredCategoryID:   row.PreferredCategoryID,
			PreferredCategoryName: row.PreferredCategoryName,
			PreferredBrandID:      row.PreferredBrandID,
			PreferredBrandName:    row.PreferredBrandName,
			FavoriteSKU:           row.FavoriteSKU,
			FavoriteProductName:   row.FavoriteProductName,
		}
		if err := pw.Write(record); err != nil {
			_ = fw.Close()
			return fmt.Errorf("writing parquet row for customer %s: %w", row.CustomerID, err)
		}
	}

	if err := pw.WriteStop(); err != nil {
		_ = fw.Close()
		return fmt.Errorf("finalizing parquet file: %w", err)
	}
	return fw.Close()
}
