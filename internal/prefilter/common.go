// Package prefilter implements the tiered slot pre-filters of spec.md §4.4:
// a cheap skip layer that elides slots before the expensive extract-and-
// evaluate path runs. Exactly one tier is active per run.
//
// Grounded on the teacher's internal/syncer.go processBatch fan-out pattern
// (split a range across a fixed worker count, collect via a buffered result
// channel) applied here to block-presence checks instead of full event
// processing.
package prefilter

import (
	"context"
	"strings"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"

	"github.com/0xkanth/slot-monitor/internal/rpcfailover"
)

// Tier is the shared contract every pre-filter satisfies: reduce a slot list
// to the subset worth fully extracting.
type Tier interface {
	Filter(ctx context.Context, slots []uint64) []uint64
}

const parallelFetchWidth = 20

var maxSupportedTxVersion uint64 = 0

func blockOpts() *rpc.GetBlockOpts {
	return &rpc.GetBlockOpts{
		Encoding:                       solana.EncodingJSONParsed,
		TransactionDetails:             rpc.TransactionDetailsFull,
		MaxSupportedTransactionVersion: &maxSupportedTxVersion,
		Commitment:                     rpc.CommitmentConfirmed,
	}
}

// slotMatch is satisfied if the block at slot contains a transaction that
// predicate accepts. Errors and missing blocks count as non-matches, per
// spec.md §4.4.
func slotMatch(ctx context.Context, client *rpcfailover.Client, logger zerolog.Logger, slot uint64, predicate func(*rpc.GetBlockResult) bool) bool {
	block, err := client.GetBlockWithConfig(ctx, slot, blockOpts())
	if err != nil {
		logger.Debug().Err(err).Uint64("slot", slot).Msg("prefilter: treating fetch error as non-match")
		return false
	}
	if block == nil {
		return false
	}
	return predicate(block)
}

// fetchChunked runs predicate over every slot using up to parallelFetchWidth
// concurrent fetches, returning the matching subset in input order.
func fetchChunked(ctx context.Context, client *rpcfailover.Client, logger zerolog.Logger, slots []uint64, predicate func(*rpc.GetBlockResult) bool) []uint64 {
	type result struct {
		index   int
		matched bool
	}

	resultsCh := make(chan result, len(slots))
	sem := make(chan struct{}, parallelFetchWidth)
	var wg sync.WaitGroup

	for i, slot := range slots {
		wg.Add(1)
		go func(i int, slot uint64) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			matched := slotMatch(ctx, client, logger, slot, predicate)
			resultsCh <- result{index: i, matched: matched}
		}(i, slot)
	}

	go func() {
		wg.Wait()
		close(resultsCh)
	}()

	matched := make([]bool, len(slots))
	for r := range resultsCh {
		matched[r.index] = r.matched
	}

	out := make([]uint64, 0, len(slots))
	for i, slot := range slots {
		if matched[i] {
			out = append(out, slot)
		}
	}
	return out
}

// blockMentionsMint reports whether any transaction in block references
// mint in its pre- or post-token balances.
func blockMentionsMint(block *rpc.GetBlockResult, mint string) bool {
	for _, txWithMeta := range block.Transactions {
		if txWithMeta.Meta == nil {
			continue
		}
		for _, tb := range txWithMeta.Meta.PreTokenBalances {
			if tb.Mint.String() == mint {
				return true
			}
		}
		for _, tb := range txWithMeta.Meta.PostTokenBalances {
			if tb.Mint.String() == mint {
				return true
			}
		}
	}
	return false
}

// blockMentionsAny reports whether any transaction in block mentions a
// member of mints via token balances, or a member of accounts via its
// message account-key list.
func blockMentionsAny(block *rpc.GetBlockResult, mints, accounts map[string]bool) bool {
	for _, txWithMeta := range block.Transactions {
		if txWithMeta.Meta != nil {
			for _, tb := range txWithMeta.Meta.PreTokenBalances {
				if mints[tb.Mint.String()] {
					return true
				}
			}
			for _, tb := range txWithMeta.Meta.PostTokenBalances {
				if mints[tb.Mint.String()] {
					return true
				}
			}
		}

		parsed, err := txWithMeta.Transaction.GetParsedTransaction()
		if err != nil || parsed == nil {
			continue
		}
		for _, acc := range parsed.Message.AccountKeys {
			if accounts[acc.PublicKey.String()] {
				return true
			}
		}
	}
	return false
}

// quickLogHint is a cheap, non-authoritative signal used only by QuickCheck:
// it looks for any log line bearing the given substrings before committing
// to a full block-level scan.
func quickLogHint(block *rpc.GetBlockResult, substrings []string) bool {
	for _, txWithMeta := range block.Transactions {
		if txWithMeta.Meta == nil {
			continue
		}
		for _, line := range txWithMeta.Meta.LogMessages {
			lower := strings.ToLower(line)
			for _, s := range substrings {
				if strings.Contains(lower, s) {
					return true
				}
			}
		}
	}
	return false
}
