package models

import "encoding/json"

// ComparisonOperator is the set of relational operators usable in threshold
// conditions.
type ComparisonOperator string

const (
	OpGreaterThan        ComparisonOperator = "gt"
	OpLessThan           ComparisonOperator = "lt"
	OpEqual              ComparisonOperator = "eq"
	OpGreaterThanOrEqual ComparisonOperator = "gte"
	OpLessThanOrEqual    ComparisonOperator = "lte"
	OpNotEqual           ComparisonOperator = "ne"
)

// Compare applies op to (actual, threshold) using float64 comparison. Equal
// uses machine epsilon, which is effectively unusable for amounts at token
// magnitudes (see DESIGN.md Open Question 1) — this is intentionally left as
// spec.md describes it, undefined for large-magnitude Equal comparisons.
func (op ComparisonOperator) Compare(actual, threshold float64) bool {
	const epsilon = 2.220446049250313e-16 // float64 machine epsilon
	switch op {
	case OpGreaterThan:
		return actual > threshold
	case OpLessThan:
		return actual < threshold
	case OpGreaterThanOrEqual:
		return actual >= threshold
	case OpLessThanOrEqual:
		return actual <= threshold
	case OpNotEqual:
		return actual != threshold
	case OpEqual:
		diff := actual - threshold
		if diff < 0 {
			diff = -diff
		}
		return diff < epsilon
	default:
		return false
	}
}

// ConditionKind tags the variant held by a Condition.
type ConditionKind string

const (
	ConditionProgramInvoked    ConditionKind = "program_invoked"
	ConditionTokenTransfer     ConditionKind = "token_transfer"
	ConditionTokenMint         ConditionKind = "token_mint"
	ConditionTokenBurn         ConditionKind = "token_burn"
	ConditionBalanceChange     ConditionKind = "balance_change"
	ConditionTransactionStatus ConditionKind = "transaction_status"
	ConditionFeeAmount         ConditionKind = "fee_amount"
	ConditionInstructionCount  ConditionKind = "instruction_count"
	ConditionAccountInvolved   ConditionKind = "account_involved"
	ConditionLogContains       ConditionKind = "log_contains"
)

// Condition is a closed tagged union over the ten condition variants of
// spec.md §4.3. Only the fields relevant to Kind are populated; JSON
// (de)serialization keeps every field so round-trips are lossless.
type Condition struct {
	Kind ConditionKind `json:"kind"`

	// ProgramInvoked
	ProgramID string `json:"program_id,omitempty"`

	// TokenTransfer / TokenMint / TokenBurn
	Mint   string             `json:"mint,omitempty"`
	Op     ComparisonOperator `json:"op,omitempty"`
	Amount float64            `json:"amount,omitempty"`

	// BalanceChange
	Account string `json:"account,omitempty"`

	// TransactionStatus
	Success bool `json:"success,omitempty"`

	// InstructionCount / FeeAmount reuse Amount/Op above.

	// AccountInvolved
	Pubkey string `json:"pubkey,omitempty"`

	// LogContains
	Pattern       string `json:"pattern,omitempty"`
	CaseSensitive bool   `json:"case_sensitive,omitempty"`
}

// ConditionSet is the composite `all_of` / `any_of` / `none_of` structure
// evaluated per spec.md §4.3. Absent lists (nil, as opposed to empty and
// present) are vacuously satisfied per the semantics table; JSON uses
// `omitempty` plus explicit presence tracking via pointer-to-slice semantics
// is avoided in favor of nil-slice-means-absent, matching Go JSON defaults.
type ConditionSet struct {
	AllOf  []Condition `json:"all_of,omitempty"`
	AnyOf  []Condition `json:"any_of,omitempty"`
	NoneOf []Condition `json:"none_of,omitempty"`
}

// ActionKind tags the variant held by an Action.
type ActionKind string

const (
	ActionAlert   ActionKind = "alert"
	ActionStore   ActionKind = "store"
	ActionWebhook ActionKind = "webhook"
	ActionLog     ActionKind = "log"
)

// Action is a closed tagged union over the four action variants of
// spec.md §4.7.
type Action struct {
	Kind ActionKind `json:"kind"`

	// Alert
	Severity string   `json:"severity,omitempty"`
	Channels []string `json:"channels,omitempty"`

	// Store
	Collection string `json:"collection,omitempty"`

	// Webhook
	URL    string `json:"url,omitempty"`
	Method string `json:"method,omitempty"`

	// Log
	Level   string `json:"level,omitempty"`
	Message string `json:"message,omitempty"`
}

// FilterConfig is one declarative filter definition: an identifier, a
// ConditionSet, and the actions to run on a match.
type FilterConfig struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Enabled   bool         `json:"enabled"`
	Condition ConditionSet `json:"conditions"`
	Actions   []Action     `json:"actions"`
}

// MatchedFilter is the result of evaluating one FilterConfig against one
// CanonicalTransaction that matched.
type MatchedFilter struct {
	FilterID string   `json:"filter_id"`
	Name     string   `json:"name"`
	Actions  []Action `json:"actions"`
}

// Clone returns a deep copy sufficient for round-trip comparisons in tests.
func (fc FilterConfig) Clone() FilterConfig {
	data, err := json.Marshal(fc)
	if err != nil {
		return fc
	}
	var out FilterConfig
	_ = json.Unmarshal(data, &out)
	return out
}
