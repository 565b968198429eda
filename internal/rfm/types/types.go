package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderRecord is one placed order as delivered by the merchant client.
// Records are treated as immutable once fetched.
type OrderRecord struct {
	ID         string
	CustomerID string
	OrderDate  time.Time
	GrandTotal decimal.Decimal
	Status     OrderStatus
	LineItems  []LineItem
}

// LineItem is one product line within an order. CategoryID or BrandID may be
// empty when the catalog has no value for the product.
type LineItem struct {
	SKU        string
	CategoryID string
	BrandID    string
	Qty        int64
	RowTotal   decimal.Decimal
}

// CustomerAggregate is one row per distinct customer with at least one
// qualifying order. Built once per run and only read afterwards.
type CustomerAggregate struct {
	CustomerID      string
	LastOrderDate   time.Time
	OrderCount      int
	TotalSpend      decimal.Decimal
	LineItemHistory []LineItem
}

// RFMScore carries the raw metrics, the 1-5 quintile scores, and the segment
// derived from them for a single customer.
type RFMScore struct {
	RecencyDays int
	Frequency   int
	Monetary    decimal.Decimal
	AvgTicket   decimal.Decimal
	RScore      int
	FScore      int
	MScore      int
	Segment     Segment
}

// CustomerPreference holds the resolved preference attributes. An empty field
// means the dimension could not be resolved (no line items carried it); the
// customer row is still emitted.
type CustomerPreference struct {
	PreferredCategoryID string
	PreferredBrandID    string
	FavoriteSKU         string
}

// CustomerMasterRow is the final emitted entity: aggregate identity, scores,
// preferences, and the display names resolved through the name lookup.
type CustomerMasterRow struct {
	CustomerID    string
	LastOrderDate time.Time
	OrderCount    int
	TotalSpend    decimal.Decimal
	AvgTicket     decimal.Decimal
	RecencyDays   int
	RScore        int
	FScore        int
	MScore        int
	Segment       Segment

	PreferredCategoryID   string
	PreferredCategoryName string
	PreferredBrandID      string
	PreferredBrandName    string
	FavoriteSKU           string
	FavoriteProductName   string
}

// NameLookup resolves catalog ids to display names. Implementations must
// tolerate missing keys; the builder falls back to the raw id.
type NameLookup interface {
	Name(kind EntityKind, id string) (string, bool)
}
