// Package rpcfailover provides a Solana RPC client that rotates across a
// fixed list of endpoints on rate-limit or transport failure.
//
// WHAT THIS DOES:
// Holds an ordered list of RPC endpoint URLs and a current-index guarded by
// a reader/writer lock. Every operation goes through a single generic
// wrapper (callCtx) that picks the client New built for the current
// endpoint, invokes the operation, and on failure rotates to the next endpoint and
// retries — up to once per configured endpoint.
//
// WHY IT EXISTS:
// Public Solana RPC endpoints rate-limit aggressively. A monitor that stalls
// on the first 429 falls behind the chain immediately; rotating across a
// small pool of endpoints keeps the catch-up/live scheduler (internal/scheduler)
// moving. None of the operations below are idempotent at the network layer,
// but all are read-only and safe to retry against a different endpoint.
package rpcfailover

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"
)

const transportTimeout = 10 * time.Second

// AllEndpointsExhausted is returned once every endpoint has been tried and
// failed for a single operation.
type AllEndpointsExhausted struct {
	Attempts int
	LastErr  error
}

func (e *AllEndpointsExhausted) Error() string {
	return fmt.Sprintf("all %d rpc endpoints exhausted: %v", e.Attempts, e.LastErr)
}

func (e *AllEndpointsExhausted) Unwrap() error { return e.LastErr }

// Client multiplexes a fixed list of RPC endpoints, rotating on rate-limit
// or transport error.
type Client struct {
	logger zerolog.Logger

	mu        sync.RWMutex
	endpoints []string
	index     int
	clients   []*rpc.Client
}

// New builds a failover client from an ordered endpoint list. The first
// entry is the primary; the rest are alternates. At least one endpoint is
// required.
func New(logger zerolog.Logger, endpoints []string) (*Client, error) {
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("rpcfailover: at least one endpoint is required")
	}

	clients := make([]*rpc.Client, len(endpoints))
	for i, url := range endpoints {
		clients[i] = rpc.NewWithCustomRPCClient(rpc.NewWithTimeout(url, transportTimeout))
	}

	return &Client{
		logger:    logger.With().Str("component", "rpcfailover").Logger(),
		endpoints: endpoints,
		clients:   clients,
	}, nil
}

// currentIndex returns the active endpoint index under a read lock.
func (c *Client) currentIndex() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.index
}

// rotate advances the active endpoint index by one, modulo the endpoint
// count. Only the failover wrapper writes the index.
func (c *Client) rotate() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index = (c.index + 1) % len(c.endpoints)
	return c.index
}

// isRateLimited reports whether err's textual form indicates a 429 /
// Too Many Requests response, per spec.md §6 (case-insensitive substring
// match).
func isRateLimited(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "too many requests")
}

// callCtx runs op against the current endpoint, rotating and retrying on
// failure until every endpoint has been tried once.
func callCtx[T any](ctx context.Context, c *Client, name string, op func(context.Context, *rpc.Client) (T, error)) (T, error) {
	var zero T
	attempts := len(c.endpoints)
	var lastErr error

	idx := c.currentIndex()
	for attempt := 0; attempt < attempts; attempt++ {
		client := c.clients[idx]
		endpoint := c.endpoints[idx]

		result, err := op(ctx, client)
		if err == nil {
			if attempt > 0 {
				c.logger.Info().
					Str("op", name).
					Str("endpoint", endpoint).
					Int("attempt", attempt).
					Msg("recovered on alternate endpoint")
			}
			return result, nil
		}

		lastErr = err
		if isRateLimited(err) {
			c.logger.Warn().
				Err(err).
				Str("op", name).
				Str("endpoint", endpoint).
				Msg("rate limited, rotating endpoint")
		} else {
			c.logger.Error().
				Err(err).
				Str("op", name).
				Str("endpoint", endpoint).
				Msg("rpc operation failed, rotating endpoint")
		}
		idx = c.rotate()
	}

	return zero, &AllEndpointsExhausted{Attempts: attempts, LastErr: lastErr}
}

// GetSlot returns the slot that has reached confirmed commitment.
func (c *Client) GetSlot(ctx context.Context) (uint64, error) {
	return callCtx(ctx, c, "get_slot", func(ctx context.Context, client *rpc.Client) (uint64, error) {
		return client.GetSlot(ctx, rpc.CommitmentConfirmed)
	})
}

// GetBlockWithConfig fetches a block with the given configuration.
func (c *Client) GetBlockWithConfig(ctx context.Context, slot uint64, cfg *rpc.GetBlockOpts) (*rpc.GetBlockResult, error) {
	return callCtx(ctx, c, "get_block", func(ctx context.Context, client *rpc.Client) (*rpc.GetBlockResult, error) {
		return client.GetBlockWithOpts(ctx, slot, cfg)
	})
}

// GetAccount fetches account info for a pubkey.
func (c *Client) GetAccount(ctx context.Context, pubkey solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
	return callCtx(ctx, c, "get_account", func(ctx context.Context, client *rpc.Client) (*rpc.GetAccountInfoResult, error) {
		return client.GetAccountInfo(ctx, pubkey)
	})
}

// GetSignaturesForAddress fetches confirmed transaction signatures
// referencing the given address.
func (c *Client) GetSignaturesForAddress(ctx context.Context, pubkey solana.PublicKey) ([]*rpc.TransactionSignature, error) {
	return callCtx(ctx, c, "get_signatures_for_address", func(ctx context.Context, client *rpc.Client) ([]*rpc.TransactionSignature, error) {
		return client.GetSignaturesForAddress(ctx, pubkey)
	})
}

// GetLatestBlockhash fetches the latest blockhash.
func (c *Client) GetLatestBlockhash(ctx context.Context) (*rpc.GetLatestBlockhashResult, error) {
	return callCtx(ctx, c, "get_latest_blockhash", func(ctx context.Context, client *rpc.Client) (*rpc.GetLatestBlockhashResult, error) {
		return client.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
	})
}

// GetSlotLeaders fetches the slot leaders for a slot range.
func (c *Client) GetSlotLeaders(ctx context.Context, start, limit uint64) ([]solana.PublicKey, error) {
	return callCtx(ctx, c, "get_slot_leaders", func(ctx context.Context, client *rpc.Client) ([]solana.PublicKey, error) {
		return client.GetSlotLeaders(ctx, start, limit)
	})
}

// GetVersion fetches the node's Solana version.
func (c *Client) GetVersion(ctx context.Context) (*rpc.GetVersionResult, error) {
	return callCtx(ctx, c, "get_version", func(ctx context.Context, client *rpc.Client) (*rpc.GetVersionResult, error) {
		return client.GetVersion(ctx)
	})
}

// CurrentEndpoint returns the endpoint currently active, for diagnostics.
func (c *Client) CurrentEndpoint() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.endpoints[c.index]
}

// EndpointCount returns the number of configured endpoints.
func (c *Client) EndpointCount() int {
	return len(c.endpoints)
}

// Close releases all underlying endpoint clients. solana-go's rpc.Client
// has no persistent connection to tear down beyond its HTTP transport, but
// Close is kept for symmetry with the teacher's chain client lifecycle.
func (c *Client) Close() {
	for _, client := range c.clients {
		_ = client.Close()
	}
}
