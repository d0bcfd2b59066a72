package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/0xkanth/slot-monitor/pkg/models"
)

const webhookTimeout = 10 * time.Second

// WebhookSender performs the generic JSON POST (or configured method) of
// spec.md §4.7, with special-cased payload shaping for URLs belonging to a
// known external chat service. Those services' actual delivery semantics
// are out of scope (spec.md §1); only the payload shape each expects at its
// webhook ingress is in scope, per the original monitor's
// discord_notifier.rs/slack_notifier.rs/telegram_notifier.rs split.
type WebhookSender struct {
	client *http.Client
}

// NewWebhookSender builds a WebhookSender using a client bounded by the
// spec's 10-second transport timeout.
func NewWebhookSender() *WebhookSender {
	return &WebhookSender{client: &http.Client{Timeout: webhookTimeout}}
}

// Send posts a payload describing the match to action.URL.
func (w *WebhookSender) Send(ctx context.Context, action models.Action, tx *models.CanonicalTransaction, match models.MatchedFilter) error {
	method := action.Method
	if method == "" {
		method = http.MethodPost
	}

	payload := shapePayload(action.URL, tx, match)
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("dispatch: marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, action.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("dispatch: build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("dispatch: webhook request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("dispatch: webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// shapePayload picks the payload shape a known chat-webhook ingress
// expects, falling back to a generic envelope otherwise.
func shapePayload(url string, tx *models.CanonicalTransaction, match models.MatchedFilter) any {
	text := fmt.Sprintf("%s matched %s (slot %d)", match.Name, tx.Signature, tx.Slot)

	switch {
	case strings.Contains(url, "hooks.slack.com"):
		return map[string]any{"text": text}
	case strings.Contains(url, "discord.com/api/webhooks"):
		return map[string]any{"content": text}
	case strings.Contains(url, "api.telegram.org"):
		return map[string]any{"text": text, "parse_mode": "Markdown"}
	default:
		return map[string]any{
			"filter_id": match.FilterID,
			"filter":    match.Name,
			"signature": tx.Signature,
			"slot":      tx.Slot,
		}
	}
}
