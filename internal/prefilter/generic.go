package prefilter

import (
	"context"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"

	"github.com/0xkanth/slot-monitor/internal/rpcfailover"
)

// Generic is the address-set pre-filter tier: the union of watched mints and
// program ids forms a single hashed address set, and a slot matches iff a
// transaction in it mentions any member via token balance or account-key
// list.
type Generic struct {
	client *rpcfailover.Client
	logger zerolog.Logger
	mints  map[string]bool
	accts  map[string]bool
}

// NewGeneric builds a Generic tier over the union of mints and program ids.
// The one union set is checked against both token-balance mints and the
// account-key list.
func NewGeneric(client *rpcfailover.Client, logger zerolog.Logger, mints, programIDs []string) *Generic {
	union := toSet(mints)
	for _, id := range programIDs {
		union[id] = true
	}
	return &Generic{
		client: client,
		logger: logger.With().Str("component", "prefilter.generic").Logger(),
		mints:  union,
		accts:  union,
	}
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

func (g *Generic) Filter(ctx context.Context, slots []uint64) []uint64 {
	return fetchChunked(ctx, g.client, g.logger, slots, func(block *rpc.GetBlockResult) bool {
		return blockMentionsAny(block, g.mints, g.accts)
	})
}
