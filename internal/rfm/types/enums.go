package types

import (
	"fmt"
	"sort"
	"strings"
)

// OrderStatus is the merchant-side order state string.
type OrderStatus string

const (
	OrderStatusComplete   OrderStatus = "complete"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusCanceled   OrderStatus = "canceled"
	OrderStatusClosed     OrderStatus = "closed"
)

// StatusSet is the configured set of "counted" statuses.
type StatusSet map[OrderStatus]struct{}

// NewStatusSet builds a StatusSet from raw config values, trimming and
// lowercasing each entry.
func NewStatusSet(values []string) StatusSet {
	set := make(StatusSet, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		set[OrderStatus(v)] = struct{}{}
	}
	return set
}

// Values returns the statuses as sorted strings, suitable for API filters.
func (s StatusSet) Values() []string {
	values := make([]string, 0, len(s))
	for status := range s {
		values = append(values, string(status))
	}
	sort.Strings(values)
	return values
}

// Contains reports whether the status qualifies.
func (s StatusSet) Contains(status OrderStatus) bool {
	_, ok := s[OrderStatus(strings.ToLower(string(status)))]
	return ok
}

// Segment is a named behavioral category derived from the quintile scores.
type Segment string

const (
	SegmentChampion       Segment = "champion"
	SegmentLoyal          Segment = "loyal"
	SegmentPotentialLoyal Segment = "potential_loyal"
	SegmentNew            Segment = "new"
	SegmentAtRisk         Segment = "at_risk"
	SegmentLost           Segment = "lost"
)

var validSegments = []Segment{
	SegmentChampion,
	SegmentLoyal,
	SegmentPotentialLoyal,
	SegmentNew,
	SegmentAtRisk,
	SegmentLost,
}

// String implements fmt.Stringer.
func (s Segment) String() string {
	return string(s)
}

// IsValid reports whether the value is a known Segment.
func (s Segment) IsValid() bool {
	for _, candidate := range validSegments {
		if candidate == s {
			return true
		}
	}
	return false
}

// EntityKind selects the namespace for a name lookup.
type EntityKind string

const (
	EntityCategory EntityKind = "category"
	EntityBrand    EntityKind = "brand"
	EntityProduct  EntityKind = "product"
)

// SortKey selects the field the master table is ordered by.
type SortKey string

const (
	SortByLTV       SortKey = "ltv"
	SortByFrequency SortKey = "frequency"
	SortByRecency   SortKey = "recency"
	SortByTicket    SortKey = "ticket"
)

var validSortKeys = []SortKey{SortByLTV, SortByFrequency, SortByRecency, SortByTicket}

// ParseSortKey converts raw input into a SortKey.
func ParseSortKey(value string) (SortKey, error) {
	normalized := SortKey(strings.ToLower(strings.TrimSpace(value)))
	for _, candidate := range validSortKeys {
		if candidate == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sort key %q", value)
}

// String implements fmt.Stringer.
func (k SortKey) String() string {
	return string(k)
}
