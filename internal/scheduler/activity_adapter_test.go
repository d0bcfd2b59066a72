package scheduler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/0xkanth/slot-monitor/internal/prefilter"
	"github.com/0xkanth/slot-monitor/pkg/models"
)

func TestActivityFeederAdapter_ObservesNonZeroDeltasOnly(t *testing.T) {
	tracker := prefilter.NewActivityTracker()
	adapter := ActivityFeederAdapter{Tracker: tracker}

	tx := &models.CanonicalTransaction{
		TokenBalanceChanges: []models.TokenBalanceChange{
			{Mint: "mintA", Change: 500},
			{Mint: "mintB", Change: 0},
			{Mint: "mintC", Change: -300},
		},
	}

	adapter.Observe(1234, tx)

	snap := tracker.Export()
	require.Equal(t, uint64(1234), snap.TokenLastSeen["mintA"])
	require.Equal(t, uint64(1234), snap.TokenLastSeen["mintC"])
	require.NotContains(t, snap.TokenLastSeen, "mintB")
	require.Equal(t, float64(300), snap.TokenVolume["mintC"])
}

func TestActivityFeederAdapter_NilTrackerIsNoOp(t *testing.T) {
	adapter := ActivityFeederAdapter{}
	tx := &models.CanonicalTransaction{
		TokenBalanceChanges: []models.TokenBalanceChange{{Mint: "mintA", Change: 500}},
	}
	require.NotPanics(t, func() { adapter.Observe(1, tx) })
}

func TestActivityFeederAdapter_AllZeroChangesSkipsUpdate(t *testing.T) {
	tracker := prefilter.NewActivityTracker()
	adapter := ActivityFeederAdapter{Tracker: tracker}

	tx := &models.CanonicalTransaction{
		TokenBalanceChanges: []models.TokenBalanceChange{{Mint: "mintA", Change: 0}},
	}
	adapter.Observe(99, tx)

	snap := tracker.Export()
	require.Equal(t, uint64(0), snap.ConsecutiveEmptySlots)
	require.Empty(t, snap.TokenLastSeen)
}
