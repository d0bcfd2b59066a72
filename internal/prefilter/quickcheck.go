package prefilter

import (
	"context"
	"strings"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"

	"github.com/0xkanth/slot-monitor/internal/rpcfailover"
)

// QuickCheck is a supplemental zeroth tier, not named in the distilled
// spec's §4.4 but present in the original Rust monitor's
// quick_filter_check.rs/fast_slot_monitor.rs: a log-substring scan over each
// slot's fully fetched block, keeping only slots whose logs carry one of the
// configured markers. It implements Tier on its own; nothing in this module
// constructs it or chains it in front of another tier.
type QuickCheck struct {
	client     *rpcfailover.Client
	logger     zerolog.Logger
	logMarkers []string
}

// NewQuickCheck builds a QuickCheck tier that looks for any of logMarkers
// (case-insensitive) in a slot's transaction logs.
func NewQuickCheck(client *rpcfailover.Client, logger zerolog.Logger, logMarkers []string) *QuickCheck {
	lowered := make([]string, len(logMarkers))
	for i, m := range logMarkers {
		lowered[i] = strings.ToLower(m)
	}
	return &QuickCheck{
		client:     client,
		logger:     logger.With().Str("component", "prefilter.quickcheck").Logger(),
		logMarkers: lowered,
	}
}

func (q *QuickCheck) Filter(ctx context.Context, slots []uint64) []uint64 {
	if len(q.logMarkers) == 0 {
		return slots
	}
	return fetchChunked(ctx, q.client, q.logger, slots, func(block *rpc.GetBlockResult) bool {
		return quickLogHint(block, q.logMarkers)
	})
}
