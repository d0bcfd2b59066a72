// Package slotproc runs the extract -> evaluate -> dispatch pipeline for a
// set of slots under a bounded semaphore, per spec.md §4.5.
//
// Grounded on the teacher's internal/syncer.go processBatch (a fixed worker
// count draining a range via goroutines, a WaitGroup, and a buffered result
// channel), generalized from a block-number range walked by N workers to a
// semaphore-bounded one-goroutine-per-slot model so the range and streaming
// entry points can share the same per-slot task.
package slotproc

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/0xkanth/slot-monitor/internal/filterengine"
	"github.com/0xkanth/slot-monitor/internal/txextract"
	"github.com/0xkanth/slot-monitor/pkg/models"
)

const (
	defaultMaxConcurrentSlots = 20
	defaultStreamBufferSize   = 100
)

// Dispatcher is the subset of internal/dispatch's interface the processor
// needs: run every matched filter's actions for one transaction.
type Dispatcher interface {
	Dispatch(ctx context.Context, tx *models.CanonicalTransaction, matches []models.MatchedFilter)
}

// Deduper collapses a transaction's raw matched-filter list down to one
// entry per category. Ownership of this logic belongs to the scheduler per
// spec.md §4.3 ("applied by the scheduler, not the engine") — the processor
// only calls it, at the point in the pipeline where the scheduler's matched
// transactions are produced.
type Deduper interface {
	Dedup(matches []models.MatchedFilter) []models.MatchedFilter
}

type identityDeduper struct{}

func (identityDeduper) Dedup(matches []models.MatchedFilter) []models.MatchedFilter { return matches }

// ActivityFeeder receives every transaction that produced at least one
// match, so the selective pre-filter's ActivityTracker can learn from the
// token deltas the processor already extracted (spec.md §4.6: "feed
// non-zero token deltas into the selective filter's update_activity").
type ActivityFeeder interface {
	Observe(slot uint64, tx *models.CanonicalTransaction)
}

// Processor owns the counting semaphore bounding in-flight slot work.
type Processor struct {
	extractor  *txextract.Extractor
	engine     *filterengine.Engine
	dispatcher Dispatcher
	dedup      Deduper
	activity   ActivityFeeder
	logger     zerolog.Logger
	sem        chan struct{}
}

// Config configures a Processor's concurrency bound and optional deduper.
type Config struct {
	MaxConcurrentSlots int
	Dedup              Deduper
	Activity           ActivityFeeder
}

// New builds a Processor. A zero or negative MaxConcurrentSlots falls back
// to the spec's default of 20 permits. A nil Dedup leaves matches
// untouched, for callers (tests, the focused single-filter case) that don't
// need category collapsing.
func New(extractor *txextract.Extractor, engine *filterengine.Engine, dispatcher Dispatcher, logger zerolog.Logger, cfg Config) *Processor {
	width := cfg.MaxConcurrentSlots
	if width <= 0 {
		width = defaultMaxConcurrentSlots
	}
	dedup := cfg.Dedup
	if dedup == nil {
		dedup = identityDeduper{}
	}
	return &Processor{
		extractor:  extractor,
		engine:     engine,
		dispatcher: dispatcher,
		dedup:      dedup,
		activity:   cfg.Activity,
		logger:     logger.With().Str("component", "slotproc").Logger(),
		sem:        make(chan struct{}, width),
	}
}

// RangeStats summarizes a ProcessSlots run.
type RangeStats struct {
	TotalSlots    int
	SuccessCount  int
	TotalMatches  int
	P50ms         int64
	P95ms         int64
	P99ms         int64
}

// ProcessSlots runs the range-mode entry point: process every slot in
// slots, wait for all of them, and return results sorted by slot alongside
// aggregate statistics.
func (p *Processor) ProcessSlots(ctx context.Context, slots []uint64) ([]models.SlotProcessingResult, RangeStats) {
	type indexed struct {
		idx    int
		result models.SlotProcessingResult
	}

	resultsCh := make(chan indexed, len(slots))
	for i, slot := range slots {
		go func(i int, slot uint64) {
			resultsCh <- indexed{idx: i, result: p.processOne(ctx, slot)}
		}(i, slot)
	}

	results := make([]models.SlotProcessingResult, len(slots))
	for range slots {
		r := <-resultsCh
		results[r.idx] = r.result
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Slot < results[j].Slot })
	return results, computeStats(results)
}

func computeStats(results []models.SlotProcessingResult) RangeStats {
	stats := RangeStats{TotalSlots: len(results)}
	durations := make([]int64, 0, len(results))
	for _, r := range results {
		if r.Success {
			stats.SuccessCount++
		}
		stats.TotalMatches += len(r.MatchedTransactions)
		durations = append(durations, r.ProcessingTimeMS)
	}
	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
	stats.P50ms = percentile(durations, 50)
	stats.P95ms = percentile(durations, 95)
	stats.P99ms = percentile(durations, 99)
	return stats
}

func percentile(sorted []int64, p int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (len(sorted) - 1) * p / 100
	return sorted[idx]
}

// ProcessSlotRange runs the streaming-mode entry point: results are emitted
// on a bounded channel as each slot task completes. With maintainOrder,
// results are held back and drained strictly in the order of the slots
// argument (slot order when slots is ascending); otherwise they
// are emitted as soon as they are ready. The channel is closed once every
// slot has been emitted.
func (p *Processor) ProcessSlotRange(ctx context.Context, slots []uint64, maintainOrder bool) <-chan models.SlotProcessingResult {
	out := make(chan models.SlotProcessingResult, defaultStreamBufferSize)

	go func() {
		defer close(out)

		type indexed struct {
			idx    int
			result models.SlotProcessingResult
		}
		resultsCh := make(chan indexed, len(slots))
		for i, slot := range slots {
			go func(i int, slot uint64) {
				resultsCh <- indexed{idx: i, result: p.processOne(ctx, slot)}
			}(i, slot)
		}

		if !maintainOrder {
			for range slots {
				r := <-resultsCh
				out <- r.result
			}
			return
		}

		pending := make(map[int]models.SlotProcessingResult, len(slots))
		next := 0
		for received := 0; received < len(slots); {
			r := <-resultsCh
			received++
			pending[r.idx] = r.result
			for {
				result, ok := pending[next]
				if !ok {
					break
				}
				out <- result
				delete(pending, next)
				next++
			}
		}
	}()

	return out
}

// processOne acquires a permit, runs extract -> evaluate -> dispatch for a
// single slot, and releases the permit. Errors at any stage degrade to a
// failed SlotProcessingResult; they are never propagated to the caller.
func (p *Processor) processOne(ctx context.Context, slot uint64) models.SlotProcessingResult {
	p.sem <- struct{}{}
	defer func() { <-p.sem }()

	start := time.Now()
	result := models.SlotProcessingResult{Slot: slot, Success: true}

	txs, err := p.extractor.ExtractSlot(ctx, slot)
	if err != nil {
		result.Success = false
		result.Error = err.Error()
		result.ProcessingTimeMS = time.Since(start).Milliseconds()
		return result
	}

	for i := range txs {
		tx := &txs[i]
		matches := p.engine.Evaluate(tx)
		if len(matches) == 0 {
			continue
		}
		matches = p.dedup.Dedup(matches)
		p.dispatcher.Dispatch(ctx, tx, matches)
		if p.activity != nil {
			p.activity.Observe(slot, tx)
		}
		result.MatchedTransactions = append(result.MatchedTransactions, models.SlotMatch{
			Signature: tx.Signature,
			Matches:   matches,
		})
	}

	result.ProcessingTimeMS = time.Since(start).Milliseconds()
	return result
}
