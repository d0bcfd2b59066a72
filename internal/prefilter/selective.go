package prefilter

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/0xkanth/slot-monitor/internal/rpcfailover"
)

const (
	defaultSkipAfterEmptySlots = 10
	downsampleEmptyThreshold   = 5
	downsampleLookbackSlots    = 1000
	downsampleKeepEvery        = 10
)

// ActivityTracker is the selective pre-filter's mutable state (spec.md §3):
// a consecutive-empty-slots counter, the slot of last observed activity, a
// 24-cell hourly counter array, and a per-mint last-seen-slot map. It is
// mutated through Update (called for each matched transaction with non-zero
// token deltas, via the processor's ActivityFeeder), MarkEmpty (called by the
// scheduler for each catch-up batch the pre-filter reduced to nothing), and
// Restore.
type ActivityTracker struct {
	mu sync.RWMutex

	consecutiveEmptySlots uint64
	lastActivitySlot      uint64
	hourlyCounts          [24]uint64
	tokenLastSeen         map[string]uint64
	tokenVolume           map[string]float64
}

// NewActivityTracker builds an empty tracker.
func NewActivityTracker() *ActivityTracker {
	return &ActivityTracker{
		tokenLastSeen: make(map[string]uint64),
		tokenVolume:   make(map[string]float64),
	}
}

// TokenVolume is one (mint, volume) observation passed to Update.
type TokenVolume struct {
	Mint   string
	Volume float64
}

// Update, when activity is non-empty, resets the empty-slot counter,
// advances last-activity-slot, increments the current UTC hour's bucket, and
// records per-mint last-seen slot and rolling volume; with no activity it
// increments the empty-slot counter instead. The scheduler's
// ActivityFeederAdapter calls it once per matched transaction that carries
// non-zero token deltas.
func (a *ActivityTracker) Update(slot uint64, activity []TokenVolume) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(activity) > 0 {
		a.consecutiveEmptySlots = 0
		a.lastActivitySlot = slot
		a.hourlyCounts[time.Now().UTC().Hour()]++
	} else {
		a.consecutiveEmptySlots++
	}
	for _, tv := range activity {
		a.tokenLastSeen[tv.Mint] = slot
		a.tokenVolume[tv.Mint] += tv.Volume
	}
}

// MarkEmpty increments the consecutive-empty-slots counter without
// recording activity, for batches the selective filter itself determined
// were irrelevant before the scheduler ever ran extraction.
func (a *ActivityTracker) MarkEmpty() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.consecutiveEmptySlots++
}

func (a *ActivityTracker) snapshot() (consecutiveEmpty uint64, tokenLastSeen map[string]uint64) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make(map[string]uint64, len(a.tokenLastSeen))
	for k, v := range a.tokenLastSeen {
		out[k] = v
	}
	return a.consecutiveEmptySlots, out
}

// ActivitySnapshot is the JSON-serializable form of an ActivityTracker,
// written to and read from internal/checkpoint's bbolt-backed ActivityStore
// so the selective pre-filter's learned state survives a restart.
type ActivitySnapshot struct {
	ConsecutiveEmptySlots uint64             `json:"consecutive_empty_slots"`
	LastActivitySlot      uint64             `json:"last_activity_slot"`
	HourlyCounts          [24]uint64         `json:"hourly_counts"`
	TokenLastSeen         map[string]uint64  `json:"token_last_seen"`
	TokenVolume           map[string]float64 `json:"token_volume"`
}

// Export returns the tracker's current state for persistence.
func (a *ActivityTracker) Export() ActivitySnapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	snap := ActivitySnapshot{
		ConsecutiveEmptySlots: a.consecutiveEmptySlots,
		LastActivitySlot:      a.lastActivitySlot,
		HourlyCounts:          a.hourlyCounts,
		TokenLastSeen:         make(map[string]uint64, len(a.tokenLastSeen)),
		TokenVolume:           make(map[string]float64, len(a.tokenVolume)),
	}
	for k, v := range a.tokenLastSeen {
		snap.TokenLastSeen[k] = v
	}
	for k, v := range a.tokenVolume {
		snap.TokenVolume[k] = v
	}
	return snap
}

// Restore replaces the tracker's state with a previously exported snapshot.
func (a *ActivityTracker) Restore(snap ActivitySnapshot) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.consecutiveEmptySlots = snap.ConsecutiveEmptySlots
	a.lastActivitySlot = snap.LastActivitySlot
	a.hourlyCounts = snap.HourlyCounts
	a.tokenLastSeen = make(map[string]uint64, len(snap.TokenLastSeen))
	for k, v := range snap.TokenLastSeen {
		a.tokenLastSeen[k] = v
	}
	a.tokenVolume = make(map[string]float64, len(snap.TokenVolume))
	for k, v := range snap.TokenVolume {
		a.tokenVolume[k] = v
	}
}

// ActiveHours is an inclusive UTC hour window, with wrap-around supported
// (e.g. (22, 4) covers 22:00 through 04:59).
type ActiveHours struct {
	Start int
	End   int
}

func (h ActiveHours) contains(hour int) bool {
	if h.Start <= h.End {
		return hour >= h.Start && hour <= h.End
	}
	return hour >= h.Start || hour <= h.End
}

// SelectiveConfig parameterizes the Selective tier, derived by the caller
// from the union of configured monitors (spec.md §4.4).
type SelectiveConfig struct {
	Mints               []string
	ProgramIDs          []string
	MinAmountByMint     map[string]float64
	SkipAfterEmptySlots int
	ActiveHours         *ActiveHours
}

// Selective is the activity-aware pre-filter tier. It delegates block
// scanning to a Generic filter over the monitored address union, then
// applies the empty-run skip, active-hours gate, and dynamic downsampling
// described in spec.md §4.4.
type Selective struct {
	logger    zerolog.Logger
	generic   *Generic
	tracker   *ActivityTracker
	cfg       SelectiveConfig
	skipAfter uint64
}

// NewSelective builds a Selective tier. tracker is shared with the
// scheduler (which calls MarkEmpty for empty catch-up batches) and the
// processor's activity feeder (which calls Update for matched transactions).
func NewSelective(client *rpcfailover.Client, logger zerolog.Logger, cfg SelectiveConfig, tracker *ActivityTracker) *Selective {
	skipAfter := uint64(cfg.SkipAfterEmptySlots)
	if skipAfter == 0 {
		skipAfter = defaultSkipAfterEmptySlots
	}
	return &Selective{
		logger:    logger.With().Str("component", "prefilter.selective").Logger(),
		generic:   NewGeneric(client, logger, cfg.Mints, cfg.ProgramIDs),
		tracker:   tracker,
		cfg:       cfg,
		skipAfter: skipAfter,
	}
}

func (s *Selective) Filter(ctx context.Context, slots []uint64) []uint64 {
	consecutiveEmpty, tokenLastSeen := s.tracker.snapshot()

	if consecutiveEmpty > s.skipAfter {
		s.logger.Debug().Uint64("consecutive_empty_slots", consecutiveEmpty).Msg("empty-run skip, not scanning")
		return nil
	}

	if s.cfg.ActiveHours != nil && !s.cfg.ActiveHours.contains(time.Now().UTC().Hour()) {
		s.logger.Debug().Msg("outside active hours, not scanning")
		return nil
	}

	matched := s.generic.Filter(ctx, slots)
	if len(matched) == 0 {
		return matched
	}

	if s.shouldDownsample(slots, tokenLastSeen, consecutiveEmpty) {
		return downsampleEveryNth(matched, downsampleKeepEvery)
	}
	return matched
}

// shouldDownsample implements spec.md §4.4's dynamic downsampling: active
// only once the run has gone quiet (consecutive_empty_slots > 5) and no
// monitored token has been seen within the last 1000 slots of the batch's
// tail.
func (s *Selective) shouldDownsample(slots []uint64, tokenLastSeen map[string]uint64, consecutiveEmpty uint64) bool {
	if consecutiveEmpty <= downsampleEmptyThreshold || len(slots) == 0 {
		return false
	}
	tail := slots[len(slots)-1]
	for _, lastSeen := range tokenLastSeen {
		if tail >= lastSeen && tail-lastSeen <= downsampleLookbackSlots {
			return false
		}
		if tail < lastSeen {
			return false
		}
	}
	return true
}

func downsampleEveryNth(slots []uint64, n int) []uint64 {
	out := make([]uint64, 0, len(slots)/n+1)
	for i, slot := range slots {
		if i%n == 0 {
			out = append(out, slot)
		}
	}
	return out
}
