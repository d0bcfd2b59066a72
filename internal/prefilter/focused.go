package prefilter

import (
	"context"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"

	"github.com/0xkanth/slot-monitor/internal/rpcfailover"
)

// Focused is the single-asset pre-filter tier: a slot matches iff some
// transaction in it carries the configured mint in its pre- or post-token
// balances.
type Focused struct {
	client *rpcfailover.Client
	logger zerolog.Logger
	mint   string
}

// NewFocused builds a Focused tier watching a single mint.
func NewFocused(client *rpcfailover.Client, logger zerolog.Logger, mint string) *Focused {
	return &Focused{
		client: client,
		logger: logger.With().Str("component", "prefilter.focused").Str("mint", mint).Logger(),
		mint:   mint,
	}
}

func (f *Focused) Filter(ctx context.Context, slots []uint64) []uint64 {
	return fetchChunked(ctx, f.client, f.logger, slots, func(block *rpc.GetBlockResult) bool {
		return blockMentionsMint(block, f.mint)
	})
}
