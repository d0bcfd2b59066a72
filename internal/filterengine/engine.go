// Package filterengine evaluates declarative ConditionSet trees against a
// CanonicalTransaction, per spec.md §4.3.
//
// Grounded on the teacher's internal/router/event_log_handler_router.go
// dispatch-by-predicate structure, generalized from "route to one handler by
// topic0" to "evaluate every configured filter's boolean tree and collect the
// matches" — the control flow (iterate definitions in order, short-circuit
// each predicate) is the same shape, applied to a richer condition language.
package filterengine

import (
	"strings"

	"github.com/0xkanth/slot-monitor/pkg/models"
)

// Engine evaluates a fixed set of FilterConfig definitions against
// transactions. It holds no mutable state; dedup across a slot's matches is
// the scheduler's responsibility, not the engine's.
type Engine struct {
	filters []models.FilterConfig
}

// New builds an Engine over the given filter definitions, in the order they
// should be evaluated. Disabled filters are retained but skipped.
func New(filters []models.FilterConfig) *Engine {
	return &Engine{filters: filters}
}

// Evaluate returns every enabled filter that matches tx, in definition
// order. An empty result means no filter matched; it is never an error.
func (e *Engine) Evaluate(tx *models.CanonicalTransaction) []models.MatchedFilter {
	var matches []models.MatchedFilter
	for _, f := range e.filters {
		if !f.Enabled {
			continue
		}
		if evaluateSet(f.Condition, tx) {
			matches = append(matches, models.MatchedFilter{
				FilterID: f.ID,
				Name:     f.Name,
				Actions:  f.Actions,
			})
		}
	}
	return matches
}

// evaluateSet applies the all_of / any_of / none_of composition. A nil list
// is vacuously satisfied: absent all_of and any_of are true, absent none_of
// is true (nothing to exclude on).
func evaluateSet(set models.ConditionSet, tx *models.CanonicalTransaction) bool {
	if set.AllOf != nil {
		for _, c := range set.AllOf {
			if !evaluateCondition(c, tx) {
				return false
			}
		}
	}
	if set.AnyOf != nil {
		matched := false
		for _, c := range set.AnyOf {
			if evaluateCondition(c, tx) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	if set.NoneOf != nil {
		for _, c := range set.NoneOf {
			if evaluateCondition(c, tx) {
				return false
			}
		}
	}
	return true
}

func evaluateCondition(c models.Condition, tx *models.CanonicalTransaction) bool {
	switch c.Kind {
	case models.ConditionProgramInvoked:
		return evaluateProgramInvoked(c, tx)
	case models.ConditionTokenTransfer:
		return evaluateTokenTransfer(c, tx)
	case models.ConditionTokenMint:
		return evaluateTokenMint(c, tx)
	case models.ConditionTokenBurn:
		return evaluateTokenBurn(c, tx)
	case models.ConditionBalanceChange:
		return evaluateBalanceChange(c, tx)
	case models.ConditionTransactionStatus:
		return tx.Success == c.Success
	case models.ConditionFeeAmount:
		return c.Op.Compare(float64(tx.Fee), c.Amount)
	case models.ConditionInstructionCount:
		return c.Op.Compare(float64(len(tx.Instructions)), c.Amount)
	case models.ConditionAccountInvolved:
		return tx.MentionsAddress(c.Pubkey)
	case models.ConditionLogContains:
		return evaluateLogContains(c, tx)
	default:
		return false
	}
}

func evaluateProgramInvoked(c models.Condition, tx *models.CanonicalTransaction) bool {
	for _, id := range tx.AllProgramIDs() {
		if id == c.ProgramID {
			return true
		}
	}
	return false
}

// evaluateTokenTransfer matches any non-zero balance change for the given
// mint whose absolute magnitude satisfies op/threshold. When mint is empty
// it matches across all mints.
func evaluateTokenTransfer(c models.Condition, tx *models.CanonicalTransaction) bool {
	for _, change := range tx.TokenBalanceChanges {
		if c.Mint != "" && change.Mint != c.Mint {
			continue
		}
		magnitude := change.Change
		if magnitude < 0 {
			magnitude = -magnitude
		}
		if c.Op.Compare(magnitude, c.Amount) {
			return true
		}
	}
	return false
}

// evaluateTokenMint matches a token-balance increase on the given mint that
// carries at least one of three disjoint mint signals: a parsed instruction
// type naming "mint", a zero pre-amount (freshly created token position), or
// a log line mentioning "MintTo"/"mint". All three are OR-joined per the
// mint/burn heuristic — dropping any of them loses recall on custom token
// programs that only surface one signal.
func evaluateTokenMint(c models.Condition, tx *models.CanonicalTransaction) bool {
	parsedMint := hasParsedInstructionType(tx, "mint")
	loggedMint := hasLogSubstring(tx, "mintto") || hasLogSubstring(tx, "mint")

	for _, change := range tx.TokenBalanceChanges {
		if change.Mint != c.Mint || change.Change <= 0 {
			continue
		}
		if !(parsedMint || loggedMint || change.PreAmount == 0) {
			continue
		}
		if c.Op.Compare(change.Change, c.Amount) {
			return true
		}
	}
	return false
}

// evaluateTokenBurn mirrors evaluateTokenMint for balance decreases; the
// spec's burn heuristic has no "new account" analogue, only the parsed-type
// and log-line disjuncts.
func evaluateTokenBurn(c models.Condition, tx *models.CanonicalTransaction) bool {
	parsedBurn := hasParsedInstructionType(tx, "burn")
	loggedBurn := hasLogSubstring(tx, "burn")

	for _, change := range tx.TokenBalanceChanges {
		if change.Mint != c.Mint || change.Change >= 0 {
			continue
		}
		if !(parsedBurn || loggedBurn) {
			continue
		}
		magnitude := -change.Change
		if c.Op.Compare(magnitude, c.Amount) {
			return true
		}
	}
	return false
}

func hasParsedInstructionType(tx *models.CanonicalTransaction, substr string) bool {
	for _, ix := range tx.AllInstructions() {
		if strings.Contains(strings.ToLower(ix.ParsedType), substr) {
			return true
		}
	}
	return false
}

func hasLogSubstring(tx *models.CanonicalTransaction, substr string) bool {
	for _, line := range tx.LogMessages {
		if strings.Contains(strings.ToLower(line), substr) {
			return true
		}
	}
	return false
}

// lamportsPerSOL scales a BalanceChange condition's amt_sol into base units,
// matching the base-currency accounting used by AccountBalance.
const lamportsPerSOL = 1_000_000_000

func evaluateBalanceChange(c models.Condition, tx *models.CanonicalTransaction) bool {
	threshold := c.Amount * lamportsPerSOL
	if c.Account != "" {
		bal, ok := tx.BalanceChanges[c.Account]
		if !ok {
			return false
		}
		return c.Op.Compare(float64(abs64(bal.Delta)), threshold)
	}
	for _, bal := range tx.BalanceChanges {
		if c.Op.Compare(float64(abs64(bal.Delta)), threshold) {
			return true
		}
	}
	return false
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func evaluateLogContains(c models.Condition, tx *models.CanonicalTransaction) bool {
	for _, line := range tx.LogMessages {
		if c.CaseSensitive {
			if strings.Contains(line, c.Pattern) {
				return true
			}
		} else if strings.Contains(strings.ToLower(line), strings.ToLower(c.Pattern)) {
			return true
		}
	}
	return false
}
