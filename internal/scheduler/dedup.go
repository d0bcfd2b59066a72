package scheduler

import (
	"strconv"
	"strings"

	"github.com/0xkanth/slot-monitor/pkg/models"
)

// matchDeduper is the scheduler's implementation of filter-match dedup
// (spec.md §4.3): matches are grouped by a category derived from the filter
// id, keeping only the highest-threshold match per category. It satisfies
// internal/slotproc.Deduper.
type matchDeduper struct{}

// NewDeduper returns the scheduler's category dedup as an
// internal/slotproc.Deduper.
func NewDeduper() matchDeduper { return matchDeduper{} }

// Dedup groups matches by category and keeps the highest-threshold entry
// per category. Filter ids without a recognized `NNm` suffix, and
// categories outside mint/burn, pass through untouched (spec.md §9: suffix
// parsing is intentionally brittle, not to be "fixed" without direction).
func (matchDeduper) Dedup(matches []models.MatchedFilter) []models.MatchedFilter {
	if len(matches) <= 1 {
		return matches
	}

	type ranked struct {
		match     models.MatchedFilter
		threshold int
		hasRank   bool
	}

	best := make(map[string]ranked)
	var order []string
	var passthrough []models.MatchedFilter

	for _, m := range matches {
		category := categoryFor(m.FilterID)
		threshold, ok := parseThresholdSuffix(m.FilterID)
		if category != "mint" && category != "burn" {
			passthrough = append(passthrough, m)
			continue
		}
		if !ok {
			passthrough = append(passthrough, m)
			continue
		}

		current, exists := best[category]
		if !exists {
			order = append(order, category)
			best[category] = ranked{match: m, threshold: threshold, hasRank: true}
			continue
		}
		if threshold > current.threshold {
			best[category] = ranked{match: m, threshold: threshold, hasRank: true}
		}
	}

	out := make([]models.MatchedFilter, 0, len(order)+len(passthrough))
	for _, category := range order {
		out = append(out, best[category].match)
	}
	out = append(out, passthrough...)
	return out
}

// categoryFor derives a dedup category from a filter id: `*_mint_*` -> mint,
// `*_burn_*` -> burn, otherwise the id itself (spec.md §4.3).
func categoryFor(filterID string) string {
	lower := strings.ToLower(filterID)
	if strings.Contains(lower, "_mint_") || strings.HasSuffix(lower, "_mint") || strings.HasPrefix(lower, "mint_") {
		return "mint"
	}
	if strings.Contains(lower, "_burn_") || strings.HasSuffix(lower, "_burn") || strings.HasPrefix(lower, "burn_") {
		return "burn"
	}
	return filterID
}

// parseThresholdSuffix extracts the trailing `30m`/`10m`/`1m`-style
// threshold from a filter id, returning (the number before `m`, ok). Only
// the literal `m` unit suffix (millions of tokens, per the builtin example
// filters) is recognized; anything else is "no recognized suffix".
func parseThresholdSuffix(filterID string) (int, bool) {
	parts := strings.Split(filterID, "_")
	if len(parts) == 0 {
		return 0, false
	}
	last := parts[len(parts)-1]
	if !strings.HasSuffix(last, "m") {
		return 0, false
	}
	numeric := strings.TrimSuffix(last, "m")
	value, err := strconv.Atoi(numeric)
	if err != nil {
		return 0, false
	}
	return value, true
}
