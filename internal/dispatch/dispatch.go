// Package dispatch runs a matched transaction's actions: alert routing,
// in-memory storage, webhook delivery, and structured logging, per
// spec.md §4.7.
//
// Grounded on the teacher's internal/nats/publisher.go (JetStream stream
// setup, per-message dedup window, subject-per-category publish) for the
// Alert path, and pkg/config/config.go's plain-struct loading style for the
// dispatch-time config shapes below. A dispatch failure on one action never
// blocks or rolls back any other action on the same match, per spec.md §7.
package dispatch

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/0xkanth/slot-monitor/pkg/models"
)

// ChatNotifier is the out-of-scope collaborator interface for a named chat
// destination (group-chat, incident-chat). The core dispatches to it; the
// transport itself (Slack, Telegram, Discord client) is a collaborator
// concern outside this module's scope, per spec.md §1.
type ChatNotifier interface {
	Notify(ctx context.Context, channel, severity, message string) error
}

// Archiver is the out-of-scope collaborator interface for the on-disk
// notification archive channel.
type Archiver interface {
	Archive(ctx context.Context, record ArchiveRecord) error
}

// ArchiveRecord is what gets handed to the Archiver collaborator for an
// "archive" channel alert.
type ArchiveRecord struct {
	FilterID  string
	Severity  string
	Message   string
	Signature string
	Slot      uint64
}

// Config wires a Dispatcher's collaborators. Notifier and Archiver may be
// nil; no default is substituted, and an alert channel whose collaborator is
// nil is skipped without delivery.
type Config struct {
	Notifier ChatNotifier
	Archiver Archiver
	Webhook  *WebhookSender
	Store    *Store
	Templates map[string]map[string]string // filter id -> channel -> template
}

// Dispatcher runs every action attached to a matched filter.
type Dispatcher struct {
	logger    zerolog.Logger
	notifier  ChatNotifier
	archiver  Archiver
	webhook   *WebhookSender
	store     *Store
	templates map[string]map[string]string
}

// New builds a Dispatcher. A nil Webhook/Store falls back to safe,
// functioning defaults (a new in-memory Store owned by this Dispatcher, a
// webhook sender from NewWebhookSender with its 10-second client timeout).
func New(logger zerolog.Logger, cfg Config) *Dispatcher {
	webhook := cfg.Webhook
	if webhook == nil {
		webhook = NewWebhookSender()
	}
	store := cfg.Store
	if store == nil {
		store = NewStore()
	}
	return &Dispatcher{
		logger:    logger.With().Str("component", "dispatch").Logger(),
		notifier:  cfg.Notifier,
		archiver:  cfg.Archiver,
		webhook:   webhook,
		store:     store,
		templates: cfg.Templates,
	}
}

// Dispatch runs every action for every matched filter against tx. Per
// spec.md §4.7/§7, each action's failure is logged and isolated: it neither
// blocks sibling actions nor causes the match to be reprocessed.
func (d *Dispatcher) Dispatch(ctx context.Context, tx *models.CanonicalTransaction, matches []models.MatchedFilter) {
	for _, match := range matches {
		for _, action := range match.Actions {
			d.runAction(ctx, tx, match, action)
		}
	}
}

func (d *Dispatcher) runAction(ctx context.Context, tx *models.CanonicalTransaction, match models.MatchedFilter, action models.Action) {
	var err error
	switch action.Kind {
	case models.ActionAlert:
		err = d.runAlert(ctx, tx, match, action)
	case models.ActionStore:
		d.store.Append(action.Collection, StoredTransaction{Transaction: *tx, FilterID: match.FilterID})
	case models.ActionWebhook:
		err = d.webhook.Send(ctx, action, tx, match)
	case models.ActionLog:
		d.runLog(tx, match, action)
	}

	if err != nil {
		d.logger.Error().
			Err(err).
			Str("filter_id", match.FilterID).
			Str("signature", tx.Signature).
			Str("action", string(action.Kind)).
			Msg("action dispatch failed")
	}
}

func (d *Dispatcher) runAlert(ctx context.Context, tx *models.CanonicalTransaction, match models.MatchedFilter, action models.Action) error {
	message := d.renderAlertMessage(tx, match, action)

	var lastErr error
	for _, channel := range action.Channels {
		var err error
		switch channel {
		case "archive":
			if d.archiver != nil {
				err = d.archiver.Archive(ctx, ArchiveRecord{
					FilterID:  match.FilterID,
					Severity:  action.Severity,
					Message:   message,
					Signature: tx.Signature,
					Slot:      tx.Slot,
				})
			}
		default: // "group-chat", "incident-chat", or any other configured channel name
			if d.notifier != nil {
				err = d.notifier.Notify(ctx, channel, action.Severity, message)
			}
		}
		if err != nil {
			lastErr = err
			d.logger.Error().Err(err).Str("channel", channel).Msg("alert channel delivery failed")
		}
	}
	return lastErr
}

func (d *Dispatcher) renderAlertMessage(tx *models.CanonicalTransaction, match models.MatchedFilter, action models.Action) string {
	tmpl, ok := d.templates[match.FilterID][firstChannel(action.Channels)]
	if !ok || tmpl == "" {
		return action.Severity + ": " + match.Name + " matched " + tx.Signature
	}
	return renderTemplate(tmpl, txTemplateValues(tx, match))
}

func firstChannel(channels []string) string {
	if len(channels) == 0 {
		return ""
	}
	return channels[0]
}

func (d *Dispatcher) runLog(tx *models.CanonicalTransaction, match models.MatchedFilter, action models.Action) {
	event := d.logger.WithLevel(parseLevel(action.Level))
	event.
		Str("filter_id", match.FilterID).
		Str("filter_name", match.Name).
		Str("signature", tx.Signature).
		Uint64("slot", tx.Slot).
		Msg(action.Message)
}

func parseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}

func txTemplateValues(tx *models.CanonicalTransaction, match models.MatchedFilter) map[string]any {
	changes := make([]any, 0, len(tx.TokenBalanceChanges))
	for _, c := range tx.TokenBalanceChanges {
		changes = append(changes, map[string]any{
			"mint":   c.Mint,
			"change": c.Change,
			"owner":  c.Owner,
		})
	}
	return map[string]any{
		"slot":      tx.Slot,
		"signature": tx.Signature,
		"fee":       tx.Fee,
		"success":   tx.Success,
		"filter": map[string]any{
			"id":   match.FilterID,
			"name": match.Name,
		},
		"token_balance_changes": changes,
	}
}
