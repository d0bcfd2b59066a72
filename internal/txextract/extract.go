// Package txextract converts a raw RPC block response into the canonical
// transaction model (pkg/models) that the rest of the pipeline operates on.
//
// Grounded on the teacher's internal/chain/on_chain_client.go fetch-then-shape
// pattern (GetBlockByNumber -> typed domain objects) and the field surface of
// github.com/gagliardetto/solana-go's rpc.GetBlockResult / rpc.ParsedTransaction
// types (confirmed against other_examples/eee8a999_cielu-go-solana and
// other_examples/5c0feb22_cielu-go-solana response-type files).
package txextract

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"

	"github.com/0xkanth/slot-monitor/internal/rpcfailover"
	"github.com/0xkanth/slot-monitor/pkg/models"
)

// Extractor fetches a slot's block and normalizes every transaction in it
// into models.CanonicalTransaction.
type Extractor struct {
	client *rpcfailover.Client
	logger zerolog.Logger
}

// New builds an Extractor bound to a failover RPC client.
func New(client *rpcfailover.Client, logger zerolog.Logger) *Extractor {
	return &Extractor{
		client: client,
		logger: logger.With().Str("component", "txextract").Logger(),
	}
}

var maxSupportedTxVersion uint64 = 0

func blockOpts() *rpc.GetBlockOpts {
	return &rpc.GetBlockOpts{
		Encoding:                       solana.EncodingJSONParsed,
		TransactionDetails:             rpc.TransactionDetailsFull,
		MaxSupportedTransactionVersion: &maxSupportedTxVersion,
		Commitment:                     rpc.CommitmentConfirmed,
	}
}

// ExtractSlot fetches the block at slot and returns every transaction in it
// as a CanonicalTransaction. A slot with no produced block (skipped slot)
// returns an empty slice and a nil error, per spec.md §4.2 edge cases.
func (e *Extractor) ExtractSlot(ctx context.Context, slot uint64) ([]models.CanonicalTransaction, error) {
	block, err := e.client.GetBlockWithConfig(ctx, slot, blockOpts())
	if err != nil {
		if isSlotSkipped(err) {
			e.logger.Debug().Uint64("slot", slot).Msg("slot skipped, no block produced")
			return nil, nil
		}
		return nil, fmt.Errorf("txextract: fetch block %d: %w", slot, err)
	}
	if block == nil {
		return nil, nil
	}

	out := make([]models.CanonicalTransaction, 0, len(block.Transactions))
	for _, txWithMeta := range block.Transactions {
		canonical, err := e.extractOne(slot, block, txWithMeta)
		if err != nil {
			e.logger.Warn().
				Err(err).
				Uint64("slot", slot).
				Msg("skipping malformed transaction")
			continue
		}
		out = append(out, canonical)
	}
	return out, nil
}

func isSlotSkipped(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, rpc.ErrNotFound) || err.Error() == "not found"
}

func (e *Extractor) extractOne(slot uint64, block *rpc.GetBlockResult, txWithMeta rpc.TransactionWithMeta) (models.CanonicalTransaction, error) {
	parsed, err := txWithMeta.Transaction.GetParsedTransaction()
	if err != nil || parsed == nil {
		return models.CanonicalTransaction{}, fmt.Errorf("parse transaction envelope: %w", err)
	}
	if len(parsed.Signatures) == 0 {
		return models.CanonicalTransaction{}, fmt.Errorf("transaction has no signatures")
	}

	canonical := models.CanonicalTransaction{
		Signature:       parsed.Signatures[0].String(),
		Slot:            slot,
		RecentBlockhash: parsed.Message.RecentBlockhash.String(),
	}
	if block.BlockTime != nil {
		bt := int64(*block.BlockTime)
		canonical.BlockTime = &bt
	}

	meta := txWithMeta.Meta
	if meta == nil {
		// Degrade to a bare transaction shell: no balance/log/fee data available.
		canonical.Accounts = []models.AccountBalance{}
		canonical.BalanceChanges = map[string]models.AccountBalance{}
		canonical.Instructions = extractInstructions(parsed.Message.Instructions)
		return canonical, nil
	}

	canonical.Success = meta.Err == nil
	if meta.Err != nil {
		canonical.Error = fmt.Sprintf("%v", meta.Err)
	}
	canonical.Fee = meta.Fee

	canonical.Accounts, canonical.BalanceChanges = extractAccountBalances(parsed.Message.AccountKeys, meta.PreBalances, meta.PostBalances)
	canonical.PreTokenBalances = convertTokenBalances(meta.PreTokenBalances, parsed.Message.AccountKeys)
	canonical.PostTokenBalances = convertTokenBalances(meta.PostTokenBalances, parsed.Message.AccountKeys)
	canonical.TokenBalanceChanges = diffTokenBalances(canonical.PreTokenBalances, canonical.PostTokenBalances)

	canonical.Instructions = extractInstructions(parsed.Message.Instructions)
	canonical.InnerInstructions = extractInnerInstructions(meta.InnerInstructions)
	canonical.LogMessages = meta.LogMessages

	if meta.ReturnData != nil {
		canonical.ReturnData = &models.ReturnData{
			ProgramID: meta.ReturnData.ProgramId.String(),
			Data:      string(meta.ReturnData.Data),
		}
	}
	canonical.AddressTableLookups = extractAddressTableLookups(parsed.Message.AddressTableLookups)

	return canonical, nil
}

func extractAccountBalances(accounts []rpc.ParsedMessageAccount, pre, post []uint64) ([]models.AccountBalance, map[string]models.AccountBalance) {
	n := len(accounts)
	if len(pre) < n {
		n = len(pre)
	}
	if len(post) < n {
		n = len(post)
	}

	balances := make([]models.AccountBalance, 0, n)
	changes := make(map[string]models.AccountBalance, n)
	for i := 0; i < n; i++ {
		pubkey := accounts[i].PublicKey.String()
		bal := models.AccountBalance{
			Pubkey: pubkey,
			Pre:    int64(pre[i]),
			Post:   int64(post[i]),
			Delta:  int64(post[i]) - int64(pre[i]),
		}
		balances = append(balances, bal)
		if bal.Delta != 0 {
			changes[pubkey] = bal
		}
	}
	return balances, changes
}

func convertTokenBalances(in []rpc.TokenBalance, accounts []rpc.ParsedMessageAccount) []models.TokenBalance {
	out := make([]models.TokenBalance, 0, len(in))
	for _, tb := range in {
		var owner string
		if tb.Owner != (solana.PublicKey{}) {
			owner = tb.Owner.String()
		} else if int(tb.AccountIndex) < len(accounts) {
			owner = accounts[tb.AccountIndex].PublicKey.String()
		}

		amount, decimals, uiAmount := parseUITokenAmount(tb.UiTokenAmount)
		out = append(out, models.TokenBalance{
			AccountIndex: int(tb.AccountIndex),
			Mint:         tb.Mint.String(),
			Owner:        owner,
			Amount:       amount,
			Decimals:     decimals,
			UIAmount:     uiAmount,
		})
	}
	return out
}

func parseUITokenAmount(ui *rpc.UiTokenAmount) (amount int64, decimals uint8, uiAmount float64) {
	if ui == nil {
		return 0, 0, 0
	}
	decimals = ui.Decimals
	if ui.UiAmount != nil {
		uiAmount = *ui.UiAmount
	}
	var parsed int64
	_, _ = fmt.Sscan(ui.Amount, &parsed)
	return parsed, decimals, uiAmount
}

// tokenBalanceKey identifies the (account_index, mint) pair a pre/post
// TokenBalance pair is diffed on.
type tokenBalanceKey struct {
	AccountIndex int
	Mint         string
}

// diffTokenBalances pairs pre and post token balances sharing an
// (account_index, mint) key and emits the non-zero deltas. A key present on
// only one side is zero-filled on the other, per spec.md §4.2.
func diffTokenBalances(pre, post []models.TokenBalance) []models.TokenBalanceChange {
	preByKey := make(map[tokenBalanceKey]models.TokenBalance, len(pre))
	for _, tb := range pre {
		preByKey[tokenBalanceKey{tb.AccountIndex, tb.Mint}] = tb
	}
	postByKey := make(map[tokenBalanceKey]models.TokenBalance, len(post))
	for _, tb := range post {
		postByKey[tokenBalanceKey{tb.AccountIndex, tb.Mint}] = tb
	}

	var keys []tokenBalanceKey
	for k := range preByKey {
		keys = append(keys, k)
	}
	for k := range postByKey {
		if _, ok := preByKey[k]; !ok {
			keys = append(keys, k)
		}
	}

	out := make([]models.TokenBalanceChange, 0, len(keys))
	for _, k := range keys {
		preTB, hasPre := preByKey[k]
		postTB, hasPost := postByKey[k]

		owner := preTB.Owner
		decimals := preTB.Decimals
		if hasPost {
			owner = postTB.Owner
			decimals = postTB.Decimals
		}

		change := postTB.UIAmount - preTB.UIAmount
		if !hasPre && !hasPost {
			continue
		}
		if change == 0 {
			continue
		}

		out = append(out, models.TokenBalanceChange{
			AccountIndex: k.AccountIndex,
			Mint:         k.Mint,
			Owner:        owner,
			PreAmount:    preTB.Amount,
			PostAmount:   postTB.Amount,
			Change:       change,
			PreUIAmount:  preTB.UIAmount,
			PostUIAmount: postTB.UIAmount,
			Decimals:     decimals,
		})
	}
	return out
}

func extractInstructions(in []*rpc.ParsedInstruction) []models.Instruction {
	out := make([]models.Instruction, 0, len(in))
	for _, ix := range in {
		if ix == nil {
			continue
		}
		out = append(out, convertParsedInstruction(ix))
	}
	return out
}

func convertParsedInstruction(ix *rpc.ParsedInstruction) models.Instruction {
	result := models.Instruction{
		ProgramID: ix.ProgramId.String(),
		Data:      string(ix.Data),
	}
	if ix.StackHeight != nil {
		h := int(*ix.StackHeight)
		result.StackHeight = &h
	}

	accounts := make([]string, 0, len(ix.Accounts))
	for _, a := range ix.Accounts {
		accounts = append(accounts, a.String())
	}
	result.Accounts = accounts

	if ix.Parsed != nil {
		result.Kind = models.InstructionParsed
		var parsedBody struct {
			Type string         `json:"type"`
			Info map[string]any `json:"info"`
		}
		if err := ix.Parsed.UnmarshalInto(&parsedBody); err == nil {
			result.ParsedType = parsedBody.Type
			result.ParsedInfo = parsedBody.Info
		}
	} else if len(result.Accounts) > 0 {
		result.Kind = models.InstructionPartiallyDecoded
	} else {
		result.Kind = models.InstructionCompiled
	}
	return result
}

func extractInnerInstructions(in []rpc.InnerInstruction) []models.InnerInstructionGroup {
	out := make([]models.InnerInstructionGroup, 0, len(in))
	for _, group := range in {
		converted := make([]models.Instruction, 0, len(group.Instructions))
		for i := range group.Instructions {
			converted = append(converted, convertParsedInstruction(&group.Instructions[i]))
		}
		out = append(out, models.InnerInstructionGroup{
			OuterIndex:   int(group.Index),
			Instructions: converted,
		})
	}
	return out
}

func extractAddressTableLookups(in []rpc.MessageAddressTableLookup) []models.AddressTableLookup {
	out := make([]models.AddressTableLookup, 0, len(in))
	for _, l := range in {
		writable := make([]int, 0, len(l.WritableIndexes))
		for _, idx := range l.WritableIndexes {
			writable = append(writable, int(idx))
		}
		readonly := make([]int, 0, len(l.ReadonlyIndexes))
		for _, idx := range l.ReadonlyIndexes {
			readonly = append(readonly, int(idx))
		}
		out = append(out, models.AddressTableLookup{
			AccountKey:      l.AccountKey.String(),
			WritableIndexes: writable,
			ReadonlyIndexes: readonly,
		})
	}
	return out
}
