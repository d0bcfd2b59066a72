// Package scheduler runs the catch-up / live polling loop of spec.md §4.6:
// mode selection by how far behind the chain tip the monitor is, checkpoint
// persistence, and match dedup (see dedup.go) before dispatch.
//
// Grounded on the teacher's internal/syncer.go: the same runBackfill/
// runRealtime split, the same currentSlot/latestSlot/RWMutex status fields,
// and the same promauto gauge/counter set, generalized from EVM block
// numbers to Solana slots and from a fixed confirmation-depth safe-head to
// the spec's behind>10 catch-up/live threshold.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/0xkanth/slot-monitor/internal/checkpoint"
	"github.com/0xkanth/slot-monitor/internal/prefilter"
	"github.com/0xkanth/slot-monitor/internal/rpcfailover"
	"github.com/0xkanth/slot-monitor/internal/slotproc"
	"github.com/0xkanth/slot-monitor/pkg/models"
)

const (
	catchUpThreshold    = 10
	catchUpBatchMax     = 500
	maxConsecutiveSlotErrors = 5
	liveCheckpointCadence    = 10
	catchingUpLiveCadence    = 500
	liveLoopSleep       = 400 * time.Millisecond
	slotFetchRetrySleep = 2 * time.Second
)

var (
	currentSlotGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "slot_monitor_current_slot",
		Help: "Last slot processed by the scheduler.",
	})
	latestSlotGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "slot_monitor_latest_slot",
		Help: "Most recently observed chain tip slot.",
	})
	slotsBehindGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "slot_monitor_slots_behind",
		Help: "latest_slot - current_slot as of the last loop iteration.",
	})
	matchesFoundCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slot_monitor_matches_found_total",
		Help: "Total matched transactions dispatched.",
	})
	schedulerErrorsCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "slot_monitor_scheduler_errors_total",
		Help: "Scheduler-loop errors by stage.",
	}, []string{"stage"})
)

// Config wires a Scheduler's collaborators.
type Config struct {
	RPCClient        *rpcfailover.Client
	Processor        *slotproc.Processor
	PreFilter        prefilter.Tier
	ActivityTracker  *prefilter.ActivityTracker
	CheckpointStore  *checkpoint.Store
	StartSlot        *uint64
	Logger           zerolog.Logger
	// ResultsCh, if non-nil, receives every SlotProcessingResult that
	// carried at least one match. Sends are non-blocking: a slow or absent
	// consumer never stalls the loop.
	ResultsCh chan models.SlotProcessingResult
}

// Scheduler drives the catch-up / live loop.
type Scheduler struct {
	cfg    Config
	logger zerolog.Logger

	mu                sync.RWMutex
	currentSlot       uint64
	latestSlot        uint64
	totalScanned      uint64
	totalMatched      uint64
	consecutiveErrors int
	started           bool
}

// New builds a Scheduler. It does not start the loop.
func New(cfg Config) *Scheduler {
	return &Scheduler{
		cfg:    cfg,
		logger: cfg.Logger.With().Str("component", "scheduler").Logger(),
	}
}

// Start resumes from a checkpoint if one exists, seeds current_slot
// otherwise, and runs the loop until ctx is cancelled. In-flight slot work
// is allowed to finish; its results are discarded once the loop has
// already decided to stop, per spec.md §5's cooperative-cancellation model.
func (s *Scheduler) Start(ctx context.Context) error {
	if err := s.resume(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("scheduler loop stopping on context cancellation")
			return nil
		default:
		}

		if err := s.loopOnce(ctx); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(liveLoopSleep):
		}
	}
}

func (s *Scheduler) resume(ctx context.Context) error {
	cp, err := s.cfg.CheckpointStore.Load()
	if err != nil {
		return fmt.Errorf("scheduler: load checkpoint: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case cp != nil:
		s.currentSlot = cp.LastProcessedSlot + 1
		s.totalScanned = cp.TotalSlotsProcessed
		s.totalMatched = cp.TotalMatchesFound
		s.logger.Info().Uint64("resume_slot", s.currentSlot).Msg("resumed from checkpoint")
	case s.cfg.StartSlot != nil:
		s.currentSlot = *s.cfg.StartSlot
		s.logger.Info().Uint64("start_slot", s.currentSlot).Msg("starting from configured start slot")
	default:
		tip, err := s.cfg.RPCClient.GetSlot(ctx)
		if err != nil {
			return fmt.Errorf("scheduler: fetch tip slot: %w", err)
		}
		s.currentSlot = tip
		s.logger.Info().Uint64("tip_slot", tip).Msg("starting at current chain tip")
	}
	s.started = true
	return nil
}

// loopOnce runs a single catch-up-or-live iteration.
func (s *Scheduler) loopOnce(ctx context.Context) error {
	latest, err := s.fetchLatestSlot(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.latestSlot = latest
	current := s.currentSlot
	s.mu.Unlock()

	behind := int64(latest) - int64(current)
	if behind < 0 {
		behind = 0
	}
	latestSlotGauge.Set(float64(latest))
	currentSlotGauge.Set(float64(current))
	slotsBehindGauge.Set(float64(behind))

	if behind > catchUpThreshold {
		return s.runCatchUpBatch(ctx, current, uint64(behind))
	}
	return s.runLiveSlot(ctx, current, behind > 0)
}

// fetchLatestSlot retries on failure with a 2s backoff, and fails the loop
// after 5 consecutive errors (spec.md §4.6 step 1 / §7 category 1).
func (s *Scheduler) fetchLatestSlot(ctx context.Context) (uint64, error) {
	for {
		latest, err := s.cfg.RPCClient.GetSlot(ctx)
		if err == nil {
			s.mu.Lock()
			s.consecutiveErrors = 0
			s.mu.Unlock()
			return latest, nil
		}

		s.mu.Lock()
		s.consecutiveErrors++
		attempts := s.consecutiveErrors
		s.mu.Unlock()

		schedulerErrorsCounter.WithLabelValues("get_slot").Inc()
		s.logger.Warn().Err(err).Int("consecutive_errors", attempts).Msg("get_slot failed")

		if attempts >= maxConsecutiveSlotErrors {
			return 0, fmt.Errorf("scheduler: aborting after %d consecutive get_slot failures: %w", attempts, err)
		}

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(slotFetchRetrySleep):
		}
	}
}

// runCatchUpBatch processes up to catchUpBatchMax slots as a batch.
func (s *Scheduler) runCatchUpBatch(ctx context.Context, start uint64, behind uint64) error {
	batchSize := behind
	if batchSize > catchUpBatchMax {
		batchSize = catchUpBatchMax
	}

	batch := make([]uint64, 0, batchSize)
	for i := uint64(0); i < batchSize; i++ {
		batch = append(batch, start+i)
	}

	reduced := batch
	if s.cfg.PreFilter != nil {
		reduced = s.runPreFilter(ctx, batch)
	}

	if len(reduced) == 0 {
		s.advanceAndCheckpoint(start+batchSize, batchSize, 0)
		if s.cfg.ActivityTracker != nil {
			s.cfg.ActivityTracker.MarkEmpty()
		}
		return nil
	}

	results, _ := s.cfg.Processor.ProcessSlots(ctx, reduced)
	matchCount := s.emitResults(results)

	s.advanceAndCheckpoint(start+batchSize, batchSize, matchCount)
	return nil
}

// runPreFilter degrades to "treat all slots as relevant" if the pre-filter
// itself fails, per spec.md §7 category 4. prefilter.Tier.Filter has no
// error return in this design (errors are swallowed per-slot as
// non-matches, spec.md §4.4), so this wrapper exists for the degradation
// contract should a Tier implementation choose to panic.
func (s *Scheduler) runPreFilter(ctx context.Context, batch []uint64) (reduced []uint64) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn().Interface("panic", r).Msg("pre-filter panicked, treating batch as fully relevant")
			reduced = batch
		}
	}()
	return s.cfg.PreFilter.Filter(ctx, batch)
}

// runLiveSlot processes exactly one slot. catchingUp distinguishes the
// checkpoint cadence: every 10 live slots normally, every 500 while
// `behind` is still nonzero but at or below the catch-up threshold (the
// "technically catching up" branch named in spec.md §4.6 step 4 and
// resolved as an explicit interpretation in spec.md §9 Open Question 3).
func (s *Scheduler) runLiveSlot(ctx context.Context, slot uint64, catchingUp bool) error {
	results, _ := s.cfg.Processor.ProcessSlots(ctx, []uint64{slot})
	matchCount := s.emitResults(results)

	s.mu.Lock()
	s.currentSlot = slot + 1
	s.totalScanned++
	s.totalMatched += matchCount
	scanned := s.totalScanned
	s.mu.Unlock()

	cadence := uint64(liveCheckpointCadence)
	if catchingUp {
		cadence = catchingUpLiveCadence
	}
	if scanned%cadence == 0 {
		s.saveCheckpoint()
	}

	return nil
}

func (s *Scheduler) advanceAndCheckpoint(newCurrent uint64, slotsProcessed uint64, matches uint64) {
	s.mu.Lock()
	s.currentSlot = newCurrent
	s.totalScanned += slotsProcessed
	s.totalMatched += matches
	s.mu.Unlock()

	// Catch-up batches checkpoint unconditionally at the batch boundary,
	// per spec.md §4.6 step 3.
	s.saveCheckpoint()
}

func (s *Scheduler) saveCheckpoint() {
	s.mu.RLock()
	cp := models.SlotCheckpoint{
		LastProcessedSlot:   s.currentSlot - 1,
		Timestamp:           uint64(time.Now().Unix()),
		TotalSlotsProcessed: s.totalScanned,
		TotalMatchesFound:   s.totalMatched,
	}
	s.mu.RUnlock()

	if err := s.cfg.CheckpointStore.Save(cp); err != nil {
		// Non-fatal per spec.md §7 category 6: the next save supersedes it.
		s.logger.Error().Err(err).Msg("checkpoint save failed")
	}
}

// emitResults sends every result carrying matches to the optional results
// channel and returns the total match count across all results.
func (s *Scheduler) emitResults(results []models.SlotProcessingResult) uint64 {
	var total uint64
	for _, r := range results {
		if len(r.MatchedTransactions) == 0 {
			continue
		}
		total += uint64(len(r.MatchedTransactions))
		matchesFoundCounter.Add(float64(len(r.MatchedTransactions)))

		if s.cfg.ResultsCh != nil {
			select {
			case s.cfg.ResultsCh <- r:
			default:
			}
		}
	}
	return total
}

// ActivityFeederAdapter adapts a prefilter.ActivityTracker into the
// slotproc.ActivityFeeder interface, extracting non-zero token deltas from
// each observed transaction so the selective pre-filter can learn from
// them (spec.md §4.4/§4.6). This is what Config.Processor should be built
// with when ActivityTracker is set.
type ActivityFeederAdapter struct {
	Tracker *prefilter.ActivityTracker
}

// Observe implements slotproc.ActivityFeeder.
func (a ActivityFeederAdapter) Observe(slot uint64, tx *models.CanonicalTransaction) {
	if a.Tracker == nil || len(tx.TokenBalanceChanges) == 0 {
		return
	}
	volumes := make([]prefilter.TokenVolume, 0, len(tx.TokenBalanceChanges))
	for _, c := range tx.TokenBalanceChanges {
		if c.Change == 0 {
			continue
		}
		magnitude := c.Change
		if magnitude < 0 {
			magnitude = -magnitude
		}
		volumes = append(volumes, prefilter.TokenVolume{Mint: c.Mint, Volume: magnitude})
	}
	if len(volumes) > 0 {
		a.Tracker.Update(slot, volumes)
	}
}

// Status is a point-in-time snapshot for health reporting.
type Status struct {
	CurrentSlot  uint64
	LatestSlot   uint64
	TotalScanned uint64
	TotalMatched uint64
	Healthy      bool
}

// GetStatus returns a snapshot of the scheduler's progress.
func (s *Scheduler) GetStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{
		CurrentSlot:  s.currentSlot,
		LatestSlot:   s.latestSlot,
		TotalScanned: s.totalScanned,
		TotalMatched: s.totalMatched,
		Healthy:      s.started && s.consecutiveErrors < maxConsecutiveSlotErrors,
	}
}

// Healthy reports whether the scheduler is making progress.
func (s *Scheduler) Healthy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started && s.consecutiveErrors < maxConsecutiveSlotErrors
}
