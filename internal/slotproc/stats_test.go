package slotproc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/0xkanth/slot-monitor/pkg/models"
)

func TestComputeStats_CountsSuccessAndMatches(t *testing.T) {
	results := []models.SlotProcessingResult{
		{Slot: 1, Success: true, ProcessingTimeMS: 10, MatchedTransactions: []models.SlotMatch{{Signature: "a"}}},
		{Slot: 2, Success: true, ProcessingTimeMS: 20},
		{Slot: 3, Success: false, ProcessingTimeMS: 5, Error: "boom"},
	}

	stats := computeStats(results)
	require.Equal(t, 3, stats.TotalSlots)
	require.Equal(t, 2, stats.SuccessCount)
	require.Equal(t, 1, stats.TotalMatches)
}

func TestPercentile_EmptyReturnsZero(t *testing.T) {
	require.Equal(t, int64(0), percentile(nil, 50))
}

func TestPercentile_PicksOrderedIndex(t *testing.T) {
	sorted := []int64{10, 20, 30, 40, 50}
	require.Equal(t, int64(30), percentile(sorted, 50))
	require.Equal(t, int64(50), percentile(sorted, 100))
	require.Equal(t, int64(10), percentile(sorted, 0))
}

func TestIdentityDeduper_ReturnsInputUnchanged(t *testing.T) {
	matches := []models.MatchedFilter{{FilterID: "a"}, {FilterID: "b"}}
	require.Equal(t, matches, identityDeduper{}.Dedup(matches))
}
