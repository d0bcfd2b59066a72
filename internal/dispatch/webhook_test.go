package dispatch

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/0xkanth/slot-monitor/pkg/models"
)

func TestShapePayload_SlackUsesTextField(t *testing.T) {
	tx := &models.CanonicalTransaction{Signature: "sig1", Slot: 42}
	match := models.MatchedFilter{Name: "big transfer"}

	payload := shapePayload("https://hooks.slack.com/services/T000/B000/XXXX", tx, match)
	body, ok := payload.(map[string]any)
	require.True(t, ok)
	require.Contains(t, body["text"], "big transfer")
}

func TestShapePayload_DiscordUsesContentField(t *testing.T) {
	tx := &models.CanonicalTransaction{Signature: "sig1", Slot: 42}
	match := models.MatchedFilter{Name: "big transfer"}

	payload := shapePayload("https://discord.com/api/webhooks/123/abc", tx, match)
	body, ok := payload.(map[string]any)
	require.True(t, ok)
	require.Contains(t, body, "content")
}

func TestShapePayload_TelegramIncludesParseMode(t *testing.T) {
	tx := &models.CanonicalTransaction{Signature: "sig1", Slot: 42}
	match := models.MatchedFilter{Name: "big transfer"}

	payload := shapePayload("https://api.telegram.org/bot123/sendMessage", tx, match)
	body, ok := payload.(map[string]any)
	require.True(t, ok)
	require.Equal(t, "Markdown", body["parse_mode"])
}

func TestShapePayload_UnknownURLUsesGenericEnvelope(t *testing.T) {
	tx := &models.CanonicalTransaction{Signature: "sig1", Slot: 42}
	match := models.MatchedFilter{FilterID: "f1", Name: "big transfer"}

	payload := shapePayload("https://example.com/hook", tx, match)
	body, ok := payload.(map[string]any)
	require.True(t, ok)
	require.Equal(t, "f1", body["filter_id"])
	require.Equal(t, uint64(42), body["slot"])
}
