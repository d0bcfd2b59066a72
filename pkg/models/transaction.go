// Package models defines the canonical data structures shared by the
// extractor, filter engine, pre-filters, processor, scheduler, and dispatcher.
package models

// AccountBalance describes one account's pre/post base-currency balance
// within a transaction, and the signed delta between them.
type AccountBalance struct {
	Pubkey  string `json:"pubkey"`
	Pre     int64  `json:"pre"`
	Post    int64  `json:"post"`
	Delta   int64  `json:"delta"`
}

// TokenBalance is one (account_index, mint) token balance snapshot, taken
// either before or after the transaction executes.
type TokenBalance struct {
	AccountIndex int     `json:"account_index"`
	Mint         string  `json:"mint"`
	Owner        string  `json:"owner,omitempty"`
	Amount       int64   `json:"amount"`
	Decimals     uint8   `json:"decimals"`
	UIAmount     float64 `json:"ui_amount"`
}

// TokenBalanceChange is the derived, non-zero delta between a pre and post
// TokenBalance sharing the same (account_index, mint) key. Exactly one side
// may be the synthetic zero used when the account only appears on one side.
// Change is the decimal-adjusted (UI) delta, post_ui_amount - pre_ui_amount,
// not the raw base-unit delta — thresholds in filter conditions are
// expressed in human-readable token amounts.
type TokenBalanceChange struct {
	AccountIndex int     `json:"account_index"`
	Mint         string  `json:"mint"`
	Owner        string  `json:"owner,omitempty"`
	PreAmount    int64   `json:"pre_amount"`
	PostAmount   int64   `json:"post_amount"`
	Change       float64 `json:"change"`
	PreUIAmount  float64 `json:"pre_ui_amount"`
	PostUIAmount float64 `json:"post_ui_amount"`
	Decimals     uint8   `json:"decimals"`
}

// InstructionKind distinguishes the three wire shapes a Solana instruction
// can arrive in once the RPC node has (optionally) parsed it.
type InstructionKind string

const (
	InstructionCompiled         InstructionKind = "compiled"
	InstructionParsed           InstructionKind = "parsed"
	InstructionPartiallyDecoded InstructionKind = "partially_decoded"
)

// Instruction is a normalized top-level or inner instruction. Only the
// fields relevant to its Kind are populated.
type Instruction struct {
	Kind         InstructionKind `json:"kind"`
	ProgramID    string          `json:"program_id"`
	Accounts     []string        `json:"accounts,omitempty"`
	Data         string          `json:"data,omitempty"`
	ParsedType   string          `json:"parsed_type,omitempty"`
	ParsedInfo   map[string]any  `json:"parsed_info,omitempty"`
	StackHeight  *int            `json:"stack_height,omitempty"`
}

// InnerInstructionGroup groups inner instructions by the index of the
// outer-level instruction that invoked them.
type InnerInstructionGroup struct {
	OuterIndex   int           `json:"outer_index"`
	Instructions []Instruction `json:"instructions"`
}

// ReturnData is a program's optional return-data payload.
type ReturnData struct {
	ProgramID string `json:"program_id"`
	Data      string `json:"data"`
}

// AddressTableLookup references an on-chain address lookup table used to
// resolve additional accounts for a versioned transaction.
type AddressTableLookup struct {
	AccountKey      string `json:"account_key"`
	WritableIndexes []int  `json:"writable_indexes"`
	ReadonlyIndexes []int  `json:"readonly_indexes"`
}

// CanonicalTransaction is the extractor's normalized projection of one
// transaction within a slot. It is immutable once constructed and is the
// sole input to the filter engine.
type CanonicalTransaction struct {
	Signature   string `json:"signature"`
	Slot        uint64 `json:"slot"`
	BlockTime   *int64 `json:"block_time,omitempty"`
	Success     bool   `json:"success"`
	Error       string `json:"error,omitempty"`
	Fee         uint64 `json:"fee"`

	Accounts       []AccountBalance         `json:"accounts"`
	BalanceChanges map[string]AccountBalance `json:"balance_changes"`

	PreTokenBalances  []TokenBalance        `json:"pre_token_balances"`
	PostTokenBalances []TokenBalance        `json:"post_token_balances"`
	TokenBalanceChanges []TokenBalanceChange `json:"token_balance_changes"`

	Instructions      []Instruction           `json:"instructions"`
	InnerInstructions []InnerInstructionGroup `json:"inner_instructions"`
	LogMessages       []string                `json:"log_messages"`

	ReturnData          *ReturnData          `json:"return_data,omitempty"`
	AddressTableLookups []AddressTableLookup `json:"address_table_lookups,omitempty"`
	RecentBlockhash     string               `json:"recent_blockhash,omitempty"`
}

// AllProgramIDs returns every program id invoked at the top level or as an
// inner instruction, in occurrence order with duplicates retained.
func (tx *CanonicalTransaction) AllProgramIDs() []string {
	ids := make([]string, 0, len(tx.Instructions))
	for _, ix := range tx.Instructions {
		ids = append(ids, ix.ProgramID)
	}
	for _, group := range tx.InnerInstructions {
		for _, ix := range group.Instructions {
			ids = append(ids, ix.ProgramID)
		}
	}
	return ids
}

// AllInstructions returns every top-level and inner instruction in a single
// flattened sequence, outer instructions first.
func (tx *CanonicalTransaction) AllInstructions() []Instruction {
	out := make([]Instruction, 0, len(tx.Instructions))
	out = append(out, tx.Instructions...)
	for _, group := range tx.InnerInstructions {
		out = append(out, group.Instructions...)
	}
	return out
}

// MentionsMint reports whether the transaction's pre- or post-token
// balances reference the given mint.
func (tx *CanonicalTransaction) MentionsMint(mint string) bool {
	for _, tb := range tx.PreTokenBalances {
		if tb.Mint == mint {
			return true
		}
	}
	for _, tb := range tx.PostTokenBalances {
		if tb.Mint == mint {
			return true
		}
	}
	return false
}

// MentionsAddress reports whether the transaction's account-key list
// contains the given address.
func (tx *CanonicalTransaction) MentionsAddress(address string) bool {
	for _, acc := range tx.Accounts {
		if acc.Pubkey == address {
			return true
		}
	}
	return false
}
