package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewStatusSet(t *testing.T) {
	set := NewStatusSet([]string{" Complete ", "PROCESSING", "", "processing"})

	require.Len(t, set, 2)
	require.True(t, set.Contains("complete"))
	require.True(t, set.Contains("Processing"))
	require.False(t, set.Contains("canceled"))
}

func TestStatusSetValuesSorted(t *testing.T) {
	set := NewStatusSet([]string{"processing", "complete"})
	require.Equal(t, []string{"complete", "processing"}, set.Values())
}

func TestParseSortKey(t *testing.T) {
	key, err := ParseSortKey(" LTV ")
	require.NoError(t, err)
	require.Equal(t, SortByLTV, key)

	_, err = ParseSortKey("spend")
	require.Error(t, err)
}

func TestSegmentIsValid(t *testing.T) {
	require.True(t, SegmentChampion.IsValid())
	require.True(t, SegmentAtRisk.IsValid())
	require.False(t, Segment("whale").IsValid())
}
