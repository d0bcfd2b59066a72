package prefilter

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestActivityTracker_UpdateWithActivityResetsEmptyCounter(t *testing.T) {
	tracker := NewActivityTracker()
	tracker.MarkEmpty()
	tracker.MarkEmpty()
	tracker.MarkEmpty()

	empty, _ := tracker.snapshot()
	require.Equal(t, uint64(3), empty)

	tracker.Update(1000, []TokenVolume{{Mint: "mintA", Volume: 42.0}})

	empty, lastSeen := tracker.snapshot()
	require.Equal(t, uint64(0), empty)
	require.Equal(t, uint64(1000), lastSeen["mintA"])
}

func TestActivityTracker_UpdateWithNoActivityIncrementsCounter(t *testing.T) {
	tracker := NewActivityTracker()
	tracker.Update(1, nil)
	tracker.Update(2, nil)

	empty, _ := tracker.snapshot()
	require.Equal(t, uint64(2), empty)
}

func TestActivityTracker_ExportRestoreRoundTrips(t *testing.T) {
	tracker := NewActivityTracker()
	tracker.Update(500, []TokenVolume{{Mint: "mintA", Volume: 10}})
	tracker.Update(501, []TokenVolume{{Mint: "mintA", Volume: 5}})

	snap := tracker.Export()

	restored := NewActivityTracker()
	restored.Restore(snap)

	emptyWant, lastSeenWant := tracker.snapshot()
	emptyGot, lastSeenGot := restored.snapshot()
	require.Equal(t, emptyWant, emptyGot)
	require.Equal(t, lastSeenWant, lastSeenGot)
	require.Equal(t, float64(15), restored.Export().TokenVolume["mintA"])
}

func TestActiveHours_ContainsWraparound(t *testing.T) {
	wrap := ActiveHours{Start: 22, End: 4}
	require.True(t, wrap.contains(23))
	require.True(t, wrap.contains(0))
	require.True(t, wrap.contains(4))
	require.False(t, wrap.contains(12))

	normal := ActiveHours{Start: 9, End: 17}
	require.True(t, normal.contains(12))
	require.False(t, normal.contains(20))
}

func TestDownsampleEveryNth(t *testing.T) {
	slots := []uint64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	got := downsampleEveryNth(slots, 3)
	require.Equal(t, []uint64{0, 3, 6, 9}, got)
}
