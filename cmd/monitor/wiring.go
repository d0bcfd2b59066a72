package main

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog"

	"github.com/0xkanth/slot-monitor/internal/checkpoint"
	"github.com/0xkanth/slot-monitor/internal/dispatch"
	"github.com/0xkanth/slot-monitor/internal/prefilter"
	"github.com/0xkanth/slot-monitor/internal/rpcfailover"
	"github.com/0xkanth/slot-monitor/pkg/models"
)

// rpcEndpoints assembles the primary RPC URL plus up to four alternates
// from configuration, per spec.md §6's environment-inputs contract.
func rpcEndpoints(cfg *koanf.Koanf) []string {
	endpoints := []string{cfg.String("rpc.primary.url")}
	for i := 1; i <= 4; i++ {
		key := "rpc.alternate." + strconv.Itoa(i) + ".url"
		if alt := cfg.String(key); alt != "" {
			endpoints = append(endpoints, alt)
		}
	}
	return endpoints
}

// selectPreFilterTier chooses exactly one pre-filter tier by configuration
// presence, per spec.md §4.4: a focused single-mint config takes
// precedence, then a selective multi-monitor config, falling back to
// generic over whatever addresses the loaded filters reference.
func selectPreFilterTier(cfg *koanf.Koanf, client *rpcfailover.Client, logger zerolog.Logger, filters []models.FilterConfig, tracker *prefilter.ActivityTracker) prefilter.Tier {
	if mint := cfg.String("prefilter.focused_mint"); mint != "" {
		return prefilter.NewFocused(client, logger, mint)
	}

	mints, programIDs := addressUnion(filters)

	if cfg.Bool("prefilter.selective_enabled") {
		var hours *prefilter.ActiveHours
		if cfg.Exists("prefilter.active_hours_start") {
			hours = &prefilter.ActiveHours{
				Start: cfg.Int("prefilter.active_hours_start"),
				End:   cfg.Int("prefilter.active_hours_end"),
			}
		}
		return prefilter.NewSelective(client, logger, prefilter.SelectiveConfig{
			Mints:               mints,
			ProgramIDs:          programIDs,
			SkipAfterEmptySlots: cfg.Int("prefilter.skip_after_empty_slots"),
			ActiveHours:         hours,
		}, tracker)
	}

	return prefilter.NewGeneric(client, logger, mints, programIDs)
}

// addressUnion extracts the union of mints referenced by token conditions
// and program ids referenced by ProgramInvoked conditions, across every
// loaded filter's condition tree, per spec.md §4.4.
func addressUnion(filters []models.FilterConfig) (mints, programIDs []string) {
	mintSet := map[string]bool{}
	programSet := map[string]bool{}

	visit := func(conditions []models.Condition) {
		for _, c := range conditions {
			switch c.Kind {
			case models.ConditionTokenTransfer, models.ConditionTokenMint, models.ConditionTokenBurn:
				if c.Mint != "" {
					mintSet[c.Mint] = true
				}
			case models.ConditionProgramInvoked:
				if c.ProgramID != "" {
					programSet[c.ProgramID] = true
				}
			}
		}
	}

	for _, f := range filters {
		visit(f.Condition.AllOf)
		visit(f.Condition.AnyOf)
		visit(f.Condition.NoneOf)
	}

	for m := range mintSet {
		mints = append(mints, m)
	}
	for p := range programSet {
		programIDs = append(programIDs, p)
	}
	return mints, programIDs
}

// buildNotifier wires the NATS-backed default ChatNotifier/Archiver when
// nats.url is configured. The actual chat/archive transports are
// out-of-scope collaborators (spec.md §1); this is the in-scope publish
// boundary they would subscribe to.
func buildNotifier(cfg *koanf.Koanf, logger zerolog.Logger) (dispatch.ChatNotifier, dispatch.Archiver, func()) {
	natsURL := cfg.String("nats.url")
	if natsURL == "" {
		return nil, nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	notifier, err := dispatch.NewNATSNotifier(ctx, natsURL, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to initialize nats notifier, alert channels will not be delivered")
		return nil, nil, nil
	}
	return notifier, notifier, notifier.Close
}

const activitySnapshotKey = "current"

// restoreActivity loads a previously persisted ActivityTracker snapshot from
// the bbolt-backed store, if one exists. Absence or a malformed snapshot is
// non-fatal: the tracker simply starts cold.
func restoreActivity(store *checkpoint.ActivityStore, tracker *prefilter.ActivityTracker, logger *zerolog.Logger) {
	data, err := store.Load(activitySnapshotKey)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to load persisted activity state")
		return
	}
	if data == nil {
		return
	}
	var snap prefilter.ActivitySnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		logger.Warn().Err(err).Msg("failed to parse persisted activity state")
		return
	}
	tracker.Restore(snap)
}

// persistActivity snapshots the ActivityTracker's learned state to bbolt so
// a restart resumes the selective pre-filter's empty-slot/active-hours
// history instead of starting cold.
func persistActivity(store *checkpoint.ActivityStore, tracker *prefilter.ActivityTracker, logger *zerolog.Logger) {
	data, err := json.Marshal(tracker.Export())
	if err != nil {
		logger.Error().Err(err).Msg("failed to marshal activity state")
		return
	}
	if err := store.Save(activitySnapshotKey, data); err != nil {
		logger.Error().Err(err).Msg("failed to persist activity state")
	}
}
