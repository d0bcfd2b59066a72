package dispatch

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/0xkanth/slot-monitor/pkg/models"
)

type fakeNotifier struct {
	calls []string
}

func (f *fakeNotifier) Notify(_ context.Context, channel, severity, message string) error {
	f.calls = append(f.calls, channel+"|"+severity+"|"+message)
	return nil
}

type fakeArchiver struct {
	records []ArchiveRecord
}

func (f *fakeArchiver) Archive(_ context.Context, record ArchiveRecord) error {
	f.records = append(f.records, record)
	return nil
}

func TestDispatch_AlertRoutesToNotifierByDefaultChannel(t *testing.T) {
	notifier := &fakeNotifier{}
	d := New(zerolog.Nop(), Config{Notifier: notifier})

	tx := &models.CanonicalTransaction{Signature: "sig1", Slot: 10}
	matches := []models.MatchedFilter{
		{
			FilterID: "f1",
			Name:     "big transfer",
			Actions: []models.Action{
				{Kind: models.ActionAlert, Severity: "warning", Channels: []string{"group-chat"}},
			},
		},
	}

	d.Dispatch(context.Background(), tx, matches)
	require.Len(t, notifier.calls, 1)
	require.Contains(t, notifier.calls[0], "group-chat|warning|")
}

func TestDispatch_AlertRoutesArchiveChannelToArchiver(t *testing.T) {
	archiver := &fakeArchiver{}
	d := New(zerolog.Nop(), Config{Archiver: archiver})

	tx := &models.CanonicalTransaction{Signature: "sig1", Slot: 10}
	matches := []models.MatchedFilter{
		{
			FilterID: "f1",
			Name:     "big transfer",
			Actions: []models.Action{
				{Kind: models.ActionAlert, Severity: "critical", Channels: []string{"archive"}},
			},
		},
	}

	d.Dispatch(context.Background(), tx, matches)
	require.Len(t, archiver.records, 1)
	require.Equal(t, "f1", archiver.records[0].FilterID)
}

func TestDispatch_StoreActionAppendsToCollection(t *testing.T) {
	d := New(zerolog.Nop(), Config{})

	tx := &models.CanonicalTransaction{Signature: "sig1", Slot: 10}
	matches := []models.MatchedFilter{
		{
			FilterID: "f1",
			Actions:  []models.Action{{Kind: models.ActionStore, Collection: "usdc-transfers"}},
		},
	}

	d.Dispatch(context.Background(), tx, matches)
	stored := d.store.Collection("usdc-transfers")
	require.Len(t, stored, 1)
	require.Equal(t, "sig1", stored[0].Transaction.Signature)
}

func TestDispatch_OneActionFailureDoesNotBlockSiblings(t *testing.T) {
	notifier := &fakeNotifier{}
	d := New(zerolog.Nop(), Config{Notifier: notifier})

	tx := &models.CanonicalTransaction{Signature: "sig1", Slot: 10}
	matches := []models.MatchedFilter{
		{
			FilterID: "f1",
			Actions: []models.Action{
				{Kind: models.ActionWebhook, URL: "://not-a-valid-url"},
				{Kind: models.ActionAlert, Severity: "info", Channels: []string{"group-chat"}},
			},
		},
	}

	d.Dispatch(context.Background(), tx, matches)
	require.Len(t, notifier.calls, 1)
}

func TestFirstChannel(t *testing.T) {
	require.Equal(t, "", firstChannel(nil))
	require.Equal(t, "a", firstChannel([]string{"a", "b"}))
}

func TestParseLevel_UnknownFallsBackToInfo(t *testing.T) {
	require.Equal(t, zerolog.InfoLevel, parseLevel("not-a-level"))
	require.Equal(t, zerolog.WarnLevel, parseLevel("warn"))
}
