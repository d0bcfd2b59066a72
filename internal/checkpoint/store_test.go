package checkpoint

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/0xkanth/slot-monitor/pkg/models"
)

func TestStore_LoadMissingFileReturnsNilNil(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "does-not-exist.json"))
	cp, err := s.Load()
	require.NoError(t, err)
	require.Nil(t, cp)
}

func TestStore_SaveThenLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	s := New(path)

	want := models.SlotCheckpoint{
		LastProcessedSlot:   12345,
		Timestamp:           1700000000,
		TotalSlotsProcessed: 500,
		TotalMatchesFound:   7,
	}
	require.NoError(t, s.Save(want))

	got, err := s.Load()
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, want, *got)
}

func TestStore_SaveOverwritesPreviousCheckpoint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	s := New(path)

	require.NoError(t, s.Save(models.SlotCheckpoint{LastProcessedSlot: 1}))
	require.NoError(t, s.Save(models.SlotCheckpoint{LastProcessedSlot: 2}))

	got, err := s.Load()
	require.NoError(t, err)
	require.Equal(t, uint64(2), got.LastProcessedSlot)
}

func TestNew_EmptyPathFallsBackToDefault(t *testing.T) {
	s := New("")
	require.Equal(t, DefaultPath, s.path)
}
